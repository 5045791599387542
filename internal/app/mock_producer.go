// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gps_tracker/internal/config"
	"github.com/relabs-tech/gps_tracker/internal/location"
)

// RunMockProducer publishes mock fixes to the GPS topic, for running the
// MQTT pipeline without a receiver attached.
func RunMockProducer(ctx context.Context) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	req, err := locationRequest(cfg)
	if err != nil {
		return err
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDGPS + "-mock")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("mock producer connected to MQTT broker at %s", cfg.MQTTBroker)

	src := location.NewMockSource(cfg.MockCenterLat, cfg.MockCenterLon)
	results := make(chan location.Result)
	errc := make(chan error, 1)
	go func() { errc <- src.Subscribe(ctx, req, results) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case res := <-results:
			for _, fix := range res.Fixes {
				payload, err := json.Marshal(fix)
				if err != nil {
					log.Printf("json marshal error: %v", err)
					continue
				}

				token := client.Publish(cfg.TopicGPS, 0, true, payload)
				token.Wait()
				if token.Error() != nil {
					log.Printf("publish error: %v", token.Error())
					continue
				}
				log.Printf("published mock fix: %.6f,%.6f", fix.Latitude, fix.Longitude)
			}
		}
	}
}
