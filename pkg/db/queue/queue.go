package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/marketflow/lob/pkg/messaging"
)

var (
	brokerList = "localhost:9092"
	topic      = "lob-executions"
)

// newSyncProducer allows tests to inject a mock producer.
var newSyncProducer = sarama.NewSyncProducer

// SetBrokerList overrides the default Kafka broker address.
func SetBrokerList(brokers string) {
	brokerList = brokers
}

// SetTopic overrides the default Kafka topic.
func SetTopic(t string) {
	topic = t
}

// QueueMessageSender implements the MessageSender interface for
// publishing execution results to Kafka via sarama.
type QueueMessageSender struct {
	producer sarama.SyncProducer
}

// NewQueueMessageSender creates a sender with a shared sync producer.
func NewQueueMessageSender() (*QueueMessageSender, error) {
	producer, err := newSyncProducer([]string{brokerList}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &QueueMessageSender{producer: producer}, nil
}

// SendDoneMessage publishes the DoneMessage to the Kafka topic.
func (q *QueueMessageSender) SendDoneMessage(done *messaging.DoneMessage) error {
	messageBytes, err := json.Marshal(done)
	if err != nil {
		return fmt.Errorf("failed to marshal done message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(done.OrderID),
		Value: sarama.ByteEncoder(messageBytes),
	}

	if _, _, err := q.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close shuts down the underlying producer.
func (q *QueueMessageSender) Close() error {
	return q.producer.Close()
}

var _ messaging.MessageSender = (*QueueMessageSender)(nil)

// QueueMessageConsumer consumes execution results from Kafka.
type QueueMessageConsumer struct {
	consumer sarama.Consumer
	done     chan struct{}
}

// NewQueueMessageConsumer creates a consumer for the configured topic.
func NewQueueMessageConsumer() (*QueueMessageConsumer, error) {
	consumer, err := sarama.NewConsumer([]string{brokerList}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}
	return &QueueMessageConsumer{
		consumer: consumer,
		done:     make(chan struct{}),
	}, nil
}

// ConsumeDoneMessages reads messages from partition 0 and passes each
// decoded DoneMessage to the handler. It returns when Close is called
// or the handler fails.
func (c *QueueMessageConsumer) ConsumeDoneMessages(handler func(*messaging.DoneMessage) error) error {
	partitionConsumer, err := c.consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	for {
		select {
		case msg, ok := <-partitionConsumer.Messages():
			if !ok {
				return nil
			}
			var done messaging.DoneMessage
			if err := json.Unmarshal(msg.Value, &done); err != nil {
				return fmt.Errorf("failed to unmarshal done message: %w", err)
			}
			if err := handler(&done); err != nil {
				return err
			}
		case <-c.done:
			return nil
		}
	}
}

// Close stops consumption and releases the consumer.
func (c *QueueMessageConsumer) Close() error {
	close(c.done)
	return c.consumer.Close()
}

// SendMessage sends a message using a pooled sender.
func SendMessage(ctx context.Context, msg *messaging.DoneMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sender := GetSender()
	if sender == nil {
		return fmt.Errorf("failed to get message sender from pool")
	}
	defer ReturnSender(sender)

	if err := sender.SendDoneMessage(msg); err != nil {
		return err
	}

	return nil
}
