// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package location

import (
	"context"
	"math"
	"time"

	"github.com/relabs-tech/gps_tracker/internal/gps"
)

type mockSource struct {
	lat, lon float64
	start    time.Time
}

// NewMockSource creates a mock location source that circles slowly
// around the given center, one fix every Interval.
func NewMockSource(lat, lon float64) Source {
	return &mockSource{lat: lat, lon: lon, start: time.Now()}
}

func (m *mockSource) Subscribe(ctx context.Context, req Request, results chan<- Result) error {
	if err := req.Validate(); err != nil {
		return err
	}

	ticker := time.NewTicker(req.Interval)
	defer ticker.Stop()

	// first fix right away, like a provider with a cached location
	if err := deliver(ctx, results, Result{Fixes: []gps.Fix{m.fixAt(time.Now())}}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-ticker.C:
			if err := deliver(ctx, results, Result{Fixes: []gps.Fix{m.fixAt(t)}}); err != nil {
				return err
			}
		}
	}
}

func (m *mockSource) fixAt(t time.Time) gps.Fix {
	elapsed := t.Sub(m.start).Seconds()
	utc := t.UTC()

	return gps.Fix{
		Time:       utc.Format("15:04:05"),
		Date:       utc.Format("02/01/06"),
		Latitude:   m.lat + 0.002*math.Sin(elapsed/120),
		Longitude:  m.lon + 0.002*math.Cos(elapsed/120),
		Satellites: 8,
		Validity:   "A",
	}
}
