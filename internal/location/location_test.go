package location

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/gps_tracker/internal/gps"
)

func nmeaSentence(body string) string {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", body, cs)
}

func TestDefaultRequest(t *testing.T) {
	req := DefaultRequest()
	if req.Priority != PriorityHighAccuracy {
		t.Fatalf("want high accuracy, have %s", req.Priority)
	}
	if req.Interval != 60*time.Second || req.MinUpdateInterval != 5*time.Second {
		t.Fatalf("want 60s/5s, have %v/%v", req.Interval, req.MinUpdateInterval)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("default request invalid: %v", err)
	}
}

func TestRequestValidate(t *testing.T) {
	bad := []Request{
		{Interval: 0, MinUpdateInterval: time.Second},
		{Interval: time.Second, MinUpdateInterval: 0},
		{Interval: time.Second, MinUpdateInterval: 2 * time.Second},
	}
	for _, req := range bad {
		if err := req.Validate(); err == nil {
			t.Fatalf("want error for %+v", req)
		}
	}
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("Balanced")
	if err != nil || p != PriorityBalanced {
		t.Fatalf("want balanced, have %v (%v)", p, err)
	}
	if _, err := ParsePriority("psychic"); err == nil {
		t.Fatalf("want error for unknown priority")
	}
}

func TestPriorityAdmits(t *testing.T) {
	valid := gps.Fix{Latitude: 1, Longitude: 2, Validity: "A"}
	void := gps.Fix{Latitude: 1, Longitude: 2, Validity: "V"}
	empty := gps.Fix{Validity: "V"}

	if !PriorityHighAccuracy.Admits(valid) || PriorityHighAccuracy.Admits(void) {
		t.Fatalf("high accuracy must only admit active fixes")
	}
	if !PriorityBalanced.Admits(void) || PriorityBalanced.Admits(empty) {
		t.Fatalf("balanced must admit void fixes with coordinates only")
	}
}

func TestThrottleHonorsMinUpdateInterval(t *testing.T) {
	gate := newThrottle(Request{Priority: PriorityHighAccuracy, Interval: time.Hour, MinUpdateInterval: time.Hour})
	fix := gps.Fix{Latitude: 1, Longitude: 1, Validity: "A"}

	if gate.admit(gps.Fix{Validity: "V"}) {
		t.Fatalf("void fix must be rejected")
	}
	if !gate.admit(fix) {
		t.Fatalf("first fix must pass")
	}
	if gate.admit(fix) {
		t.Fatalf("second fix inside min interval must be dropped")
	}
}

func TestStreamSourceDeliversFixesThenFails(t *testing.T) {
	stream := nmeaSentence("GPRMC,220516,V,5133.82,N,00042.24,W,0.0,0.0,130694,004.2,W") +
		nmeaSentence("GPRMC,220517,A,5133.82,N,00042.24,W,0.0,0.0,130694,004.2,W")
	src := &streamSource{
		name: "test",
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(stream)), nil
		},
	}

	results := make(chan Result, 4)
	err := src.Subscribe(context.Background(), Request{Interval: time.Minute, MinUpdateInterval: time.Second}, results)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("want provider error wrapping io.EOF, have %v", err)
	}

	close(results)
	var got []gps.Fix
	for res := range results {
		got = append(got, res.Fixes...)
	}
	if len(got) != 1 || !got[0].Valid() {
		t.Fatalf("want exactly the active fix, have %+v", got)
	}
}

func TestStreamSourceOpenError(t *testing.T) {
	src := &streamSource{
		name: "/dev/nothing",
		open: func() (io.ReadCloser, error) { return nil, errors.New("no such device") },
	}
	err := src.Subscribe(context.Background(), DefaultRequest(), make(chan Result))
	if err == nil || !strings.Contains(err.Error(), "/dev/nothing") {
		t.Fatalf("want open error naming the port, have %v", err)
	}
}

func TestStreamSourceStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := &streamSource{
		name: "pipe",
		open: func() (io.ReadCloser, error) { return pr, nil },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Subscribe(ctx, DefaultRequest(), make(chan Result)) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, have %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Subscribe did not return after cancel")
	}
}

func TestMockSourceDeliversImmediately(t *testing.T) {
	src := NewMockSource(52.5, 13.4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan Result, 1)
	go src.Subscribe(ctx, DefaultRequest(), results)

	select {
	case res := <-results:
		if len(res.Fixes) != 1 {
			t.Fatalf("want one fix, have %d", len(res.Fixes))
		}
		f := res.Fixes[0]
		if !f.Valid() || f.Latitude < 52.49 || f.Latitude > 52.51 || f.Longitude < 13.39 || f.Longitude > 13.41 {
			t.Fatalf("want active fix near 52.5,13.4, have %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no fix from mock source")
	}
}

func TestMockSourcePacesAtInterval(t *testing.T) {
	src := NewMockSource(52.5, 13.4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := Request{Priority: PriorityHighAccuracy, Interval: 200 * time.Millisecond, MinUpdateInterval: time.Millisecond}
	results := make(chan Result, 4)
	go src.Subscribe(ctx, req, results)

	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatalf("no first fix from mock source")
	}

	select {
	case res := <-results:
		t.Fatalf("want next fix after Interval, have early %+v", res)
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatalf("no second fix from mock source")
	}
}

func TestPermissions(t *testing.T) {
	p := NewPermissions(false)
	if p.Granted() || p.Pending() {
		t.Fatalf("want fresh gate denied and idle")
	}

	p.Request()
	if !p.Pending() {
		t.Fatalf("want prompt pending after Request")
	}

	p.Resolve(true)
	if !p.Granted() || p.Pending() {
		t.Fatalf("want granted and no prompt after Resolve(true)")
	}
}
