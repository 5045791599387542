// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package location

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/relabs-tech/gps_tracker/internal/gps"
)

// Priority selects which fixes a subscription accepts.
type Priority int

const (
	// PriorityHighAccuracy only accepts fixes the receiver marked active.
	PriorityHighAccuracy Priority = iota
	// PriorityBalanced also accepts void fixes that still carry coordinates.
	PriorityBalanced
)

func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "high_accuracy":
		return PriorityHighAccuracy, nil
	case "balanced":
		return PriorityBalanced, nil
	default:
		return 0, fmt.Errorf("unknown location priority %q", s)
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityHighAccuracy:
		return "high_accuracy"
	case PriorityBalanced:
		return "balanced"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Admits reports whether a fix satisfies the priority.
func (p Priority) Admits(f gps.Fix) bool {
	if f.Valid() {
		return true
	}
	return p == PriorityBalanced && (f.Latitude != 0 || f.Longitude != 0)
}

// Request is the interval policy of a location subscription.
type Request struct {
	Priority Priority
	// Interval is the desired time between updates. Sources that pace
	// themselves (the mock) use it; receivers push at their own rate.
	Interval time.Duration
	// MinUpdateInterval is the fastest rate at which fixes are delivered.
	MinUpdateInterval time.Duration
}

// DefaultRequest: high accuracy, 60s desired interval, never faster than 5s.
func DefaultRequest() Request {
	return Request{
		Priority:          PriorityHighAccuracy,
		Interval:          60 * time.Second,
		MinUpdateInterval: 5 * time.Second,
	}
}

func (r Request) Validate() error {
	if r.Interval <= 0 {
		return fmt.Errorf("location request: interval must be positive, got %v", r.Interval)
	}
	if r.MinUpdateInterval <= 0 {
		return fmt.Errorf("location request: min update interval must be positive, got %v", r.MinUpdateInterval)
	}
	if r.MinUpdateInterval > r.Interval {
		return fmt.Errorf("location request: min update interval %v exceeds interval %v", r.MinUpdateInterval, r.Interval)
	}
	return nil
}

// Result carries the fixes of one delivery. It may be empty.
type Result struct {
	Fixes []gps.Fix
}

// Source is anything that can deliver location updates.
// Subscribe blocks until ctx is done or the provider fails; it returns
// ctx.Err() on cancellation and the provider error otherwise.
type Source interface {
	Subscribe(ctx context.Context, req Request, results chan<- Result) error
}

// throttle drops fixes that fail the priority or arrive faster than
// MinUpdateInterval.
type throttle struct {
	priority Priority
	limiter  *rate.Limiter
}

func newThrottle(req Request) *throttle {
	return &throttle{
		priority: req.Priority,
		limiter:  rate.NewLimiter(rate.Every(req.MinUpdateInterval), 1),
	}
}

func (t *throttle) admit(f gps.Fix) bool {
	return t.priority.Admits(f) && t.limiter.Allow()
}

func deliver(ctx context.Context, results chan<- Result, res Result) error {
	select {
	case results <- res:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
