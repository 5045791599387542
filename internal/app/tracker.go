// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relabs-tech/gps_tracker/internal/config"
	"github.com/relabs-tech/gps_tracker/internal/location"
	"github.com/relabs-tech/gps_tracker/internal/mapview"
	"github.com/relabs-tech/gps_tracker/internal/telemetry"
	"github.com/relabs-tech/gps_tracker/internal/tracker"
)

// RunTracker serves the map UI and runs the tracker until ctx is done or the
// location provider fails.
func RunTracker(ctx context.Context) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	req, err := locationRequest(cfg)
	if err != nil {
		return err
	}

	source, err := newLocationSource(cfg)
	if err != nil {
		return err
	}

	sink, err := newTelemetrySink(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Printf("tracker: telemetry close error: %v", err)
		}
	}()

	perms := location.NewPermissions(cfg.LocationPermission == "granted")
	view := mapview.New(cfg.MapTileSource, cfg.MapZoom)
	t := tracker.New(perms, source, req, view, sink)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: NewRouter(t, perms, view, cfg.WebStaticDir),
	}

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	errc := make(chan error, 2)
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		errc <- t.Run(runCtx)
	}()
	go func() {
		log.Printf("web server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("web server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		err = nil
	case err = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Printf("web server shutdown error: %v", serr)
	}

	// No fix reaches the sinks once Run has returned.
	stopRun()
	<-runDone
	return err
}

func locationRequest(cfg *config.Config) (location.Request, error) {
	priority, err := location.ParsePriority(cfg.LocationPriority)
	if err != nil {
		return location.Request{}, err
	}
	req := location.Request{
		Priority:          priority,
		Interval:          time.Duration(cfg.LocationInterval) * time.Millisecond,
		MinUpdateInterval: time.Duration(cfg.LocationMinInterval) * time.Millisecond,
	}
	return req, req.Validate()
}

func newLocationSource(cfg *config.Config) (location.Source, error) {
	switch cfg.LocationSource {
	case "serial":
		log.Printf("tracker: using serial GPS on %s at %d baud", cfg.GPSSerialPort, cfg.GPSBaudRate)
		return location.NewSerialSource(cfg.GPSSerialPort, cfg.GPSBaudRate), nil
	case "mqtt":
		log.Printf("tracker: using MQTT fixes from %s on %s", cfg.MQTTBroker, cfg.TopicGPS)
		return location.NewMQTTSource(cfg.MQTTBroker, cfg.MQTTClientIDTracker, cfg.TopicGPS), nil
	case "mock":
		log.Printf("tracker: using mock location source around %.4f,%.4f", cfg.MockCenterLat, cfg.MockCenterLon)
		return location.NewMockSource(cfg.MockCenterLat, cfg.MockCenterLon), nil
	default:
		return nil, fmt.Errorf("unknown location source %q", cfg.LocationSource)
	}
}

func newTelemetrySink(cfg *config.Config) (telemetry.Fanout, error) {
	influx, err := telemetry.NewInfluxSender(telemetry.InfluxConfig{
		URL:       cfg.InfluxURL,
		Org:       cfg.InfluxOrg,
		Bucket:    cfg.InfluxBucket,
		Precision: cfg.InfluxPrecision,
		Token:     cfg.InfluxToken,
		Device:    cfg.DeviceTag,
	}, nil)
	if err != nil {
		return nil, err
	}

	sinks := telemetry.Fanout{influx}
	if len(cfg.KafkaBrokers) > 0 {
		log.Printf("tracker: also publishing fixes to kafka topic %s", cfg.KafkaTopic)
		sinks = append(sinks, telemetry.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.DeviceTag))
	}
	return sinks, nil
}
