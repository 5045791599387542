package telemetry

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/relabs-tech/gps_tracker/internal/gps"
)

// Sink receives every fix. Send must not block on the network.
type Sink interface {
	Send(fix gps.Fix)
}

type InfluxConfig struct {
	URL       string // e.g. https://eu-central-1-1.aws.cloud2.influxdata.com
	Org       string
	Bucket    string
	Precision string // defaults to "s"
	Token     string
	Device    string // value of the device tag
}

// WriteURL builds the InfluxDB v2 write endpoint.
func WriteURL(base, org, bucket, precision string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("invalid influx url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid influx url %q: scheme must be http or https", base)
	}
	if precision == "" {
		precision = "s"
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/api/v2/write"
	q := url.Values{}
	q.Set("org", org)
	q.Set("bucket", bucket)
	q.Set("precision", precision)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// InfluxSender posts each fix as a line-protocol point. Sends are
// fire-and-forget: no retry, no queue, failures are only logged.
type InfluxSender struct {
	client   *http.Client
	endpoint string
	token    string
	device   string

	mu     sync.Mutex // guards closed and wg.Add
	closed bool
	wg     sync.WaitGroup
}

// NewInfluxSender uses http.DefaultClient when client is nil.
func NewInfluxSender(cfg InfluxConfig, client *http.Client) (*InfluxSender, error) {
	endpoint, err := WriteURL(cfg.URL, cfg.Org, cfg.Bucket, cfg.Precision)
	if err != nil {
		return nil, err
	}
	if cfg.Device == "" {
		return nil, fmt.Errorf("influx sender: device tag is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &InfluxSender{
		client:   client,
		endpoint: endpoint,
		token:    cfg.Token,
		device:   cfg.Device,
	}, nil
}

// NewRequest builds the write request for one fix.
func (s *InfluxSender) NewRequest(fix gps.Fix) (*http.Request, error) {
	body, err := EncodePoint(s.device, fix)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+s.token)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return req, nil
}

// Send builds the request synchronously and submits it on its own goroutine.
// Fixes sent after Close are dropped.
func (s *InfluxSender) Send(fix gps.Fix) {
	req, err := s.NewRequest(fix)
	if err != nil {
		log.Printf("telemetry: dropping fix %.6f,%.6f: %v", fix.Latitude, fix.Longitude, err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		log.Printf("telemetry: influx sender closed, dropping fix %.6f,%.6f", fix.Latitude, fix.Longitude)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		resp, err := s.client.Do(req)
		if err != nil {
			log.Printf("telemetry: influx write failed: %v", err)
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		log.Printf("influx response: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}()
}

// Wait blocks until every in-flight send has completed. Sends started
// meanwhile wait for it.
func (s *InfluxSender) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wg.Wait()
}

// Close stops accepting fixes and waits for in-flight sends.
func (s *InfluxSender) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}
