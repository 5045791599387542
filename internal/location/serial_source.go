package location

import (
	"context"
	"fmt"
	"io"
	"log"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gps_tracker/internal/gps"
)

// SerialOptions returns the 8N1 settings used for NMEA receivers.
func SerialOptions(portName string, baudRate int) serial.OpenOptions {
	return serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
}

// streamSource reads NMEA from anything that can be opened as a byte stream.
type streamSource struct {
	name string
	open func() (io.ReadCloser, error)
}

// NewSerialSource reads fixes from an NMEA receiver on a serial port,
// e.g. /dev/serial0, /dev/ttyAMA0 or /dev/ttyUSB0.
func NewSerialSource(portName string, baudRate int) Source {
	opts := SerialOptions(portName, baudRate)
	return &streamSource{
		name: portName,
		open: func() (io.ReadCloser, error) {
			return serial.Open(opts)
		},
	}
}

func (s *streamSource) Subscribe(ctx context.Context, req Request, results chan<- Result) error {
	if err := req.Validate(); err != nil {
		return err
	}

	port, err := s.open()
	if err != nil {
		return fmt.Errorf("open %s: %w", s.name, err)
	}
	defer port.Close()
	log.Printf("location: reading NMEA from %s (%s, min interval %v)", s.name, req.Priority, req.MinUpdateInterval)

	// Closing the port unblocks the pending read.
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()

	reader := gps.NewReader(port)
	gate := newThrottle(req)

	for {
		fix, err := reader.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("gps read from %s: %w", s.name, err)
		}

		if !gate.admit(fix) {
			continue
		}

		if err := deliver(ctx, results, Result{Fixes: []gps.Fix{fix}}); err != nil {
			return err
		}
	}
}
