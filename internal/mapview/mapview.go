// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mapview

import (
	"sync"

	"github.com/relabs-tech/gps_tracker/internal/gps"
)

const (
	DefaultZoom       = 15.0
	DefaultTileSource = "MAPNIK"
	MarkerTitle       = "Here"

	// world view until the first fix arrives
	initialZoom = 2.0

	AnchorCenter = 0.5
	AnchorBottom = 1.0
)

type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Marker is a single point-of-interest overlay.
type Marker struct {
	Position GeoPoint `json:"position"`
	Title    string   `json:"title"`
	AnchorU  float64  `json:"anchor_u"`
	AnchorV  float64  `json:"anchor_v"`
}

// State is what a client needs to draw the map.
type State struct {
	TileSource string   `json:"tile_source"`
	Center     GeoPoint `json:"center"`
	Zoom       float64  `json:"zoom"`
	Markers    []Marker `json:"markers"`
	HasFix     bool     `json:"has_fix"`
	Altitude   float64  `json:"alt_m"`
}

// MapView holds the map widget state: a base tile layer and its overlays.
// Writers are expected to be a single goroutine; readers may be many.
type MapView struct {
	mu         sync.RWMutex
	tileSource string
	fixZoom    float64
	center     GeoPoint
	zoom       float64
	overlays   []Marker
	hasFix     bool
	altitude   float64

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

// New constructs the map once. zoom is the level applied on every fix;
// zero selects DefaultZoom.
func New(tileSource string, zoom float64) *MapView {
	if tileSource == "" {
		tileSource = DefaultTileSource
	}
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	return &MapView{
		tileSource: tileSource,
		fixZoom:    zoom,
		zoom:       initialZoom,
		observers:  make(map[int]func(State)),
	}
}

// Update redraws the map for a new fix: exactly one "Here" marker at the fix,
// fixed zoom, recentered. Prior overlays are discarded.
func (m *MapView) Update(fix gps.Fix) {
	point := GeoPoint{Latitude: fix.Latitude, Longitude: fix.Longitude}

	m.mu.Lock()
	m.zoom = m.fixZoom
	m.center = point
	m.overlays = m.overlays[:0]
	m.overlays = append(m.overlays, Marker{
		Position: point,
		Title:    MarkerTitle,
		AnchorU:  AnchorCenter,
		AnchorV:  AnchorBottom,
	})
	m.hasFix = true
	m.altitude = fix.Altitude
	m.mu.Unlock()

	m.Invalidate()
}

func (m *MapView) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	markers := make([]Marker, len(m.overlays))
	copy(markers, m.overlays)

	return State{
		TileSource: m.tileSource,
		Center:     m.center,
		Zoom:       m.zoom,
		Markers:    markers,
		HasFix:     m.hasFix,
		Altitude:   m.altitude,
	}
}

// Observe registers fn to be called with the new state after every redraw.
// fn runs on the updating goroutine and must not block.
func (m *MapView) Observe(fn func(State)) (cancel func()) {
	m.obsMu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

// Invalidate notifies observers of the current state.
func (m *MapView) Invalidate() {
	s := m.Snapshot()

	m.obsMu.Lock()
	fns := make([]func(State), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.obsMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
