// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/relabs-tech/gps_tracker/internal/gps"
	"github.com/relabs-tech/gps_tracker/internal/location"
	"github.com/relabs-tech/gps_tracker/internal/telemetry"
)

// ErrPermissionRequired is returned by StartTracking when location access has
// not been granted. A prompt has been raised; tracking is not retried.
var ErrPermissionRequired = errors.New("location permission required")

// Permission is the access check performed on every start request.
type Permission interface {
	Granted() bool
	Request()
}

// View is redrawn with every fix.
type View interface {
	Update(fix gps.Fix)
}

// Tracker wires a location source to the map view and the telemetry sink.
// All fixes are handled on the goroutine running Run.
type Tracker struct {
	perm   Permission
	source location.Source
	req    location.Request
	view   View
	sink   telemetry.Sink

	start   chan struct{}
	results chan location.Result
	errc    chan error

	mu       sync.Mutex
	tracking bool
}

func New(perm Permission, source location.Source, req location.Request, view View, sink telemetry.Sink) *Tracker {
	return &Tracker{
		perm:    perm,
		source:  source,
		req:     req,
		view:    view,
		sink:    sink,
		start:   make(chan struct{}, 1),
		results: make(chan location.Result),
		errc:    make(chan error, 1),
	}
}

// StartTracking is the "Start Tracking" action. Without permission it raises
// the prompt and returns ErrPermissionRequired. Otherwise it asks Run to
// subscribe; calls while already tracking do nothing.
func (t *Tracker) StartTracking() error {
	if !t.perm.Granted() {
		t.perm.Request()
		log.Println("tracker: location permission not granted, prompting")
		return ErrPermissionRequired
	}

	if err := t.req.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tracking {
		return nil
	}
	t.tracking = true

	t.start <- struct{}{}
	log.Printf("tracker: tracking started (%s, interval %v, min %v)",
		t.req.Priority, t.req.Interval, t.req.MinUpdateInterval)
	return nil
}

func (t *Tracker) Tracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// Run processes start requests and location results until ctx is done.
// A provider failure ends Run with that error.
func (t *Tracker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-t.start:
			go func() {
				t.errc <- t.source.Subscribe(ctx, t.req, t.results)
			}()

		case res := <-t.results:
			t.handle(res)

		case err := <-t.errc:
			if ctx.Err() != nil {
				return nil
			}
			if err == nil {
				err = errors.New("subscription ended")
			}
			return fmt.Errorf("location provider: %w", err)
		}
	}
}

func (t *Tracker) handle(res location.Result) {
	for _, fix := range res.Fixes {
		t.view.Update(fix)
		t.sink.Send(fix)
	}
}
