// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/gps_tracker/internal/app"
	"github.com/relabs-tech/gps_tracker/internal/config"
)

func main() {
	configPath := flag.String("config", "tracker_config.txt", "path to KEY=VALUE config file")
	flag.Parse()

	log.Println("starting gps-tracker (location → map + InfluxDB)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunTracker(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	log.Println("gps-tracker stopped")
}
