package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

var _ Notifier = (*KafkaNotifier)(nil)

// KafkaNotifier publishes notification events to a Kafka topic for a
// downstream push/email service to deliver.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// Event is the wire shape of a published notification.
type Event struct {
	ParentID   string    `json:"parent_id"`
	Reason     Reason    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewKafkaNotifier creates a notifier writing to topic on the given brokers.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Notify publishes the event, keyed by parent so one parent's notifications
// stay ordered.
func (n *KafkaNotifier) Notify(ctx context.Context, parentID string, reason Reason) error {
	data, err := json.Marshal(Event{
		ParentID:   parentID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(parentID),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
