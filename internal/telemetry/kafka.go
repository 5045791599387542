package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/relabs-tech/gps_tracker/internal/gps"
)

// KafkaSender publishes each fix as JSON, keyed by device tag.
type KafkaSender struct {
	writer *kafka.Writer
	device string

	mu     sync.Mutex
	closed bool
}

func NewKafkaSender(brokers []string, topic, device string) *KafkaSender {
	return &KafkaSender{
		device: device,
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
			Async:    true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Printf("telemetry: kafka write of %d messages failed: %v", len(messages), err)
				}
			},
		},
	}
}

func (k *KafkaSender) message(fix gps.Fix) (kafka.Message, error) {
	payload, err := json.Marshal(fix)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(k.device), Value: payload}, nil
}

func (k *KafkaSender) Send(fix gps.Fix) {
	msg, err := k.message(fix)
	if err != nil {
		log.Printf("telemetry: kafka marshal error: %v", err)
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		log.Printf("telemetry: kafka sender closed, dropping fix %.6f,%.6f", fix.Latitude, fix.Longitude)
		return
	}
	// Async writer: returns once the message is queued.
	if err := k.writer.WriteMessages(context.Background(), msg); err != nil {
		log.Printf("telemetry: kafka enqueue failed: %v", err)
	}
}

// Close flushes pending messages.
func (k *KafkaSender) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	return k.writer.Close()
}
