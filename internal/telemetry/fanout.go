package telemetry

import (
	"errors"
	"io"

	"github.com/relabs-tech/gps_tracker/internal/gps"
)

// Fanout sends every fix to each sink independently.
type Fanout []Sink

func (f Fanout) Send(fix gps.Fix) {
	for _, s := range f {
		s.Send(fix)
	}
}

// Wait blocks on sinks that track in-flight sends.
func (f Fanout) Wait() {
	for _, s := range f {
		if w, ok := s.(interface{ Wait() }); ok {
			w.Wait()
		}
	}
}

// Close closes every sink that can be closed and waits on the rest.
// Closed sinks drop later fixes.
func (f Fanout) Close() error {
	var errs []error
	for _, s := range f {
		switch s := s.(type) {
		case io.Closer:
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		case interface{ Wait() }:
			s.Wait()
		}
	}
	return errors.Join(errs...)
}
