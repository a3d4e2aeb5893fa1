package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marketflow/lob/pkg/messaging"
	"github.com/segmentio/kafka-go"
)

const defaultWriteTimeout = 5 * time.Second

// Sender publishes execution results through a kafka-go writer. It is
// the direct-writer alternative to the pooled sarama producer in
// pkg/db/queue; both speak the same JSON wire format.
type Sender struct {
	writer       *kafka.Writer
	writeTimeout time.Duration
}

// NewSender creates a Sender targeting one broker and topic. Messages
// are keyed by order ID so fills for the same order land on the same
// partition in order.
func NewSender(brokerAddr, topic string) *Sender {
	return &Sender{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokerAddr),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
		writeTimeout: defaultWriteTimeout,
	}
}

// SendDoneMessage publishes one execution result.
func (s *Sender) SendDoneMessage(done *messaging.DoneMessage) error {
	data, err := json.Marshal(done)
	if err != nil {
		return fmt.Errorf("failed to encode execution result: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(done.OrderID),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish execution result: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (s *Sender) Close() error {
	return s.writer.Close()
}

var _ messaging.MessageSender = (*Sender)(nil)
