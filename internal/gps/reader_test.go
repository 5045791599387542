package gps

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"
)

// sentence wraps an NMEA body with '$' and its XOR checksum.
func sentence(body string) string {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, cs)
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestReaderCombinesGGAAndRMC(t *testing.T) {
	stream := strings.Join([]string{
		"garbage from a half-open port",
		sentence("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"),
		"$GPRMC,broken*00",
		sentence("GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W"),
	}, "\r\n") + "\r\n"

	r := NewReader(strings.NewReader(stream))
	fix, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	if !near(fix.Latitude, 51.0+33.82/60.0) {
		t.Fatalf("want lat %g, have %g", 51.0+33.82/60.0, fix.Latitude)
	}
	if !near(fix.Longitude, -42.24/60.0) {
		t.Fatalf("want lon %g, have %g", -42.24/60.0, fix.Longitude)
	}
	if fix.Altitude != 545.4 || fix.Satellites != 8 {
		t.Fatalf("want alt 545.4 with 8 sats, have %g with %d", fix.Altitude, fix.Satellites)
	}
	if !fix.Valid() {
		t.Fatalf("want valid fix, have validity %q", fix.Validity)
	}
	if fix.SpeedKnots != 173.8 || fix.CourseDeg != 231.8 {
		t.Fatalf("want speed 173.8 course 231.8, have %g %g", fix.SpeedKnots, fix.CourseDeg)
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("want io.EOF at end of stream, have %v", err)
	}
}

func TestReaderHandlesMissingTrailingNewline(t *testing.T) {
	r := NewReader(strings.NewReader(sentence("GPRMC,220516,V,5133.82,N,00042.24,W,0.0,0.0,130694,004.2,W")))
	fix, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if fix.Valid() {
		t.Fatalf("want void fix, have validity %q", fix.Validity)
	}
}

func TestDecodeFixes(t *testing.T) {
	one, err := DecodeFixes([]byte(`{"lat":52.5,"lon":13.4,"validity":"A"}`))
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if len(one) != 1 || one[0].Latitude != 52.5 || one[0].Longitude != 13.4 {
		t.Fatalf("want one fix at 52.5,13.4, have %+v", one)
	}

	batch, err := DecodeFixes([]byte(` [{"lat":1,"lon":2},{"lat":3,"lon":4}]`))
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(batch) != 2 || batch[1].Latitude != 3 {
		t.Fatalf("want two fixes, have %+v", batch)
	}

	if _, err := DecodeFixes([]byte("  ")); err == nil {
		t.Fatalf("want error for empty payload")
	}
	if _, err := DecodeFixes([]byte("{nope")); err == nil {
		t.Fatalf("want error for bad json")
	}
}
