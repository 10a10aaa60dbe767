package utils

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// ExtractGPS reads GPS coordinates embedded in image EXIF data.
// Used as a fallback when a device upload arrives without form coordinates.
func ExtractGPS(imageData []byte) (lat, lon float64, err error) {
	x, err := exif.Decode(bytes.NewReader(imageData))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode EXIF: %w", err)
	}

	lat, lon, err = x.LatLong()
	if err != nil {
		return 0, 0, fmt.Errorf("no GPS data found: %w", err)
	}

	return lat, lon, nil
}

// ExtractCaptureTime reads the capture timestamp from image EXIF data.
// It tries DateTime first, then DateTimeOriginal.
func ExtractCaptureTime(imageData []byte) (time.Time, error) {
	x, err := exif.Decode(bytes.NewReader(imageData))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to decode EXIF: %w", err)
	}

	if dt, err := x.DateTime(); err == nil {
		return dt, nil
	}

	dateTag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return time.Time{}, fmt.Errorf("no capture time found: %w", err)
	}
	dateStr, err := dateTag.StringVal()
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid capture time tag: %w", err)
	}

	// EXIF DateTimeOriginal is typically "2006:01:02 15:04:05"
	t, err := time.Parse("2006:01:02 15:04:05", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse capture time %q: %w", dateStr, err)
	}
	return t, nil
}
