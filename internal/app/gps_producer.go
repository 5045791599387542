package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gps_tracker/internal/config"
	"github.com/relabs-tech/gps_tracker/internal/gps"
	"github.com/relabs-tech/gps_tracker/internal/location"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes every combined fix as JSON to the GPS topic.
func RunGPSProducer(ctx context.Context) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	// ---- 1) Connect to MQTT broker ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDGPS)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("GPS producer connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- 2) Open GPS serial port ----
	serialOpts := location.SerialOptions(cfg.GPSSerialPort, cfg.GPSBaudRate)
	port, err := serial.Open(serialOpts)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("GPS serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()

	reader := gps.NewReader(port)
	for {
		fix, err := reader.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("GPS read error: %v", err)
			return err
		}

		payload, err := json.Marshal(fix)
		if err != nil {
			log.Printf("GPS JSON marshal error: %v", err)
			continue
		}

		token := client.Publish(cfg.TopicGPS, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("GPS publish error: %v", token.Error())
			continue
		}

		log.Printf("published GPS fix: %+v", fix)
	}
}
