package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gps_tracker/internal/config"
	"github.com/relabs-tech/gps_tracker/internal/gps"
)

// RunConsoleMQTT prints every fix published on the GPS topic until ctx is done.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		fixes, err := gps.DecodeFixes(msg.Payload())
		if err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}

		for _, f := range fixes {
			fmt.Println(formatFix(f))
		}
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPS)

	<-ctx.Done()

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatFix(f gps.Fix) string {
	return fmt.Sprintf(
		"[GPS ]  time=%s date=%s lat=%.6f lon=%.6f alt=%.1fm sats=%d speed=%.1fkn course=%.1f° validity=%s",
		f.Time, f.Date, f.Latitude, f.Longitude, f.Altitude, f.Satellites, f.SpeedKnots, f.CourseDeg, f.Validity,
	)
}
