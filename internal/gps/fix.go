package gps

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56"
	Date       string  `json:"date"`        // e.g. "06/12/25"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	Altitude   float64 `json:"alt_m"`       // meters above mean sea level, from GGA
	Satellites int64   `json:"satellites"`  // satellites in use, from GGA
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void), etc.
}

// Valid reports whether the receiver flagged the fix as active.
func (f Fix) Valid() bool {
	return f.Validity == "A"
}

// DecodeFixes accepts either a single JSON fix or a JSON array of fixes.
func DecodeFixes(payload []byte) ([]Fix, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	if payload[0] == '[' {
		var fixes []Fix
		if err := json.Unmarshal(payload, &fixes); err != nil {
			return nil, fmt.Errorf("decode fix batch: %w", err)
		}
		return fixes, nil
	}

	var f Fix
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, fmt.Errorf("decode fix: %w", err)
	}
	return []Fix{f}, nil
}
