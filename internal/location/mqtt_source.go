package location

import (
	"context"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gps_tracker/internal/gps"
)

type mqttSource struct {
	newClient func(onConnect mqtt.OnConnectHandler) mqtt.Client
	broker    string
	topic     string
}

// NewMQTTSource subscribes to fixes published by the GPS producer.
// A message may carry one fix or a JSON array of fixes.
func NewMQTTSource(broker, clientID, topic string) Source {
	return &mqttSource{
		broker: broker,
		topic:  topic,
		newClient: func(onConnect mqtt.OnConnectHandler) mqtt.Client {
			opts := mqtt.NewClientOptions().
				AddBroker(broker).
				SetClientID(clientID).
				SetAutoReconnect(true).
				SetOnConnectHandler(onConnect).
				SetConnectionLostHandler(func(_ mqtt.Client, err error) {
					log.Printf("location: MQTT connection to %s lost: %v", broker, err)
				})
			return mqtt.NewClient(opts)
		},
	}
}

// onMessage turns one payload into a delivery, keeping only the fixes the
// gate admits. ok is false when nothing is left to deliver.
func (s *mqttSource) onMessage(gate *throttle, payload []byte) (res Result, ok bool) {
	fixes, err := gps.DecodeFixes(payload)
	if err != nil {
		log.Printf("location: %s unmarshal error: %v", s.topic, err)
		return Result{}, false
	}

	for _, f := range fixes {
		if gate.admit(f) {
			res.Fixes = append(res.Fixes, f)
		}
	}
	return res, len(res.Fixes) > 0
}

func (s *mqttSource) Subscribe(ctx context.Context, req Request, results chan<- Result) error {
	if err := req.Validate(); err != nil {
		return err
	}

	gate := newThrottle(req)
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if res, ok := s.onMessage(gate, msg.Payload()); ok {
			_ = deliver(ctx, results, res)
		}
	}

	// The session is clean, so every (re)connect subscribes again.
	subscribed := make(chan error, 1)
	onConnect := func(c mqtt.Client) {
		token := c.Subscribe(s.topic, 0, handler)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("location: mqtt subscribe %s: %v", s.topic, err)
		} else {
			log.Printf("location: subscribed to MQTT topic %s", s.topic)
		}
		select {
		case subscribed <- token.Error():
		default:
		}
	}

	client := s.newClient(onConnect)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect to %s: %w", s.broker, token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("location: connected to MQTT broker at %s", s.broker)

	select {
	case err := <-subscribed:
		if err != nil {
			return fmt.Errorf("mqtt subscribe %s: %w", s.topic, err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	<-ctx.Done()
	client.Unsubscribe(s.topic).Wait()
	return ctx.Err()
}
