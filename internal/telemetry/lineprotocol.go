package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/relabs-tech/gps_tracker/internal/gps"
)

const Measurement = "gps"

var (
	measurementEscaper = strings.NewReplacer(",", `\,`, " ", `\ `)
	tagEscaper         = strings.NewReplacer(",", `\,`, "=", `\=`, " ", `\ `)
)

// EncodePoint renders a fix as one line-protocol point without timestamp:
//
//	gps,device=<device> latitude=<lat>,longitude=<lon>
func EncodePoint(device string, fix gps.Fix) (string, error) {
	lat, err := formatField(fix.Latitude)
	if err != nil {
		return "", fmt.Errorf("latitude: %w", err)
	}
	lon, err := formatField(fix.Longitude)
	if err != nil {
		return "", fmt.Errorf("longitude: %w", err)
	}

	var b strings.Builder
	b.WriteString(measurementEscaper.Replace(Measurement))
	b.WriteString(",device=")
	b.WriteString(tagEscaper.Replace(device))
	b.WriteString(" latitude=")
	b.WriteString(lat)
	b.WriteString(",longitude=")
	b.WriteString(lon)
	return b.String(), nil
}

// formatField always keeps a decimal point so the field stays a float: 0 -> "0.0".
func formatField(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite value %v", f)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}
