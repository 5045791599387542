package gps

import (
	"bufio"
	"io"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// Reader turns a stream of NMEA sentences into fixes. GGA sentences update
// altitude and satellite count; every RMC sentence completes one fix.
type Reader struct {
	r       *bufio.Reader
	current Fix
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next blocks until the next RMC sentence and returns the accumulated fix.
// Unparseable lines are skipped. Read errors (including io.EOF) are returned as is.
func (r *Reader) Next() (Fix, error) {
	for {
		line, err := r.r.ReadString('\n')
		if fix, ok := r.consume(line); ok {
			return fix, nil
		}
		if err != nil {
			return Fix{}, err
		}
	}
}

func (r *Reader) consume(line string) (Fix, bool) {
	line = strings.TrimSpace(line)

	// NMEA sentences usually start with '$'
	if !strings.HasPrefix(line, "$") {
		return Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy GPS or partial sentences
		return Fix{}, false
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		r.current.Altitude = m.Altitude
		r.current.Satellites = m.NumSatellites

	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		r.current.Time = m.Time.String()
		r.current.Date = m.Date.String()
		r.current.Latitude = m.Latitude   // decimal degrees
		r.current.Longitude = m.Longitude // decimal degrees
		r.current.SpeedKnots = m.Speed    // already in knots
		r.current.CourseDeg = m.Course
		r.current.Validity = string(m.Validity)
		return r.current, true
	}
	return Fix{}, false
}
