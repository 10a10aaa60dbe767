package utils

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		{
			name:  "ten digit number is seconds",
			input: float64(1700000000),
			want:  time.UnixMilli(1700000000000).UTC(),
		},
		{
			name:  "thirteen digit number is milliseconds",
			input: float64(1700000000123),
			want:  time.UnixMilli(1700000000123).UTC(),
		},
		{
			name:  "nine digit number is seconds",
			input: float64(999999999),
			want:  time.UnixMilli(999999999000).UTC(),
		},
		{
			name:  "numeric string seconds",
			input: "1700000000",
			want:  time.UnixMilli(1700000000000).UTC(),
		},
		{
			name:  "numeric string milliseconds",
			input: "1700000000123",
			want:  time.UnixMilli(1700000000123).UTC(),
		},
		{
			name:  "json number seconds",
			input: json.Number("1700000000"),
			want:  time.UnixMilli(1700000000000).UTC(),
		},
		{
			name:  "fractional seconds keep sub-second precision",
			input: "1700000000.5",
			want:  time.UnixMilli(1700000000500).UTC(),
		},
		{
			name:  "RFC3339 string",
			input: "2025-01-15T14:30:00Z",
			want:  time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC),
		},
		{
			name:  "ISO string without zone",
			input: "2025-01-15T14:30:00",
			want:  time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTimestamp(tt.input)
			if !got.Equal(tt.want) {
				t.Errorf("NormalizeTimestamp(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTimestampFallsBackToNow(t *testing.T) {
	inputs := []any{
		nil,
		"",
		"   ",
		"not a timestamp",
		struct{}{},
	}

	for _, input := range inputs {
		before := time.Now().UTC()
		got := NormalizeTimestamp(input)
		after := time.Now().UTC()

		if got.Before(before.Add(-time.Second)) || got.After(after.Add(time.Second)) {
			t.Errorf("NormalizeTimestamp(%v) = %v, want a value close to now", input, got)
		}
	}
}
