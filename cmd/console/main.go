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

	log.Println("starting gps-tracker console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunConsoleMQTT(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
