package utils

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Layouts tried for date-like strings, in order of likelihood.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeTimestamp converts a heterogeneous incoming time value into a
// single point in time. Device firmware sends Unix seconds, Unix milliseconds,
// or ISO strings depending on revision, so all three are accepted without
// configuration:
//
//   - absent/nil input -> current time
//   - numeric input whose integer part has <= 10 decimal digits -> Unix seconds
//   - numeric input with more digits -> Unix milliseconds
//   - anything else -> date-string parse, falling back to current time
//
// A 10-digit millisecond value (pre-2001 range) is misread as seconds; this
// ambiguity is inherent to the rule and accepted.
//
// NormalizeTimestamp never fails.
func NormalizeTimestamp(v any) time.Time {
	now := time.Now().UTC()

	switch t := v.(type) {
	case nil:
		return now
	case float64:
		return fromEpochNumber(strconv.FormatFloat(t, 'f', -1, 64))
	case int64:
		return fromEpochNumber(strconv.FormatInt(t, 10))
	case int:
		return fromEpochNumber(strconv.Itoa(t))
	case json.Number:
		return fromEpochNumber(t.String())
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return now
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpochNumber(s)
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC()
			}
		}
		return now
	default:
		return now
	}
}

// fromEpochNumber interprets a decimal string as seconds or milliseconds
// since epoch depending on the length of its integer part.
func fromEpochNumber(s string) time.Time {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Now().UTC()
	}

	digits := strings.TrimLeft(s, "+-")
	if i := strings.IndexByte(digits, '.'); i >= 0 {
		digits = digits[:i]
	}

	ms := int64(n)
	if len(digits) <= 10 {
		ms = int64(n * 1000)
	}
	return time.UnixMilli(ms).UTC()
}
