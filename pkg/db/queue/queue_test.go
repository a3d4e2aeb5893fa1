package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/marketflow/lob/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (m *mockConsumer) ConsumePartition(topic string, partition int32, offset int64) (sarama.PartitionConsumer, error) {
	return &mockPartitionConsumer{
		messages: m.messages,
		errors:   m.errors,
	}, nil
}

func (m *mockConsumer) Topics() ([]string, error) {
	return []string{}, nil
}

func (m *mockConsumer) Partitions(topic string) ([]int32, error) {
	return []int32{}, nil
}

func (m *mockConsumer) HighWaterMarks() map[string]map[int32]int64 {
	return nil
}

func (m *mockConsumer) Close() error {
	close(m.messages)
	close(m.errors)
	return nil
}

func (m *mockConsumer) Pause(topicPartitions map[string][]int32) {}

func (m *mockConsumer) Resume(topicPartitions map[string][]int32) {}

func (m *mockConsumer) PauseAll() {}

func (m *mockConsumer) ResumeAll() {}

type mockPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (m *mockPartitionConsumer) AsyncClose() {}

func (m *mockPartitionConsumer) Close() error {
	return nil
}

func (m *mockPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage {
	return m.messages
}

func (m *mockPartitionConsumer) Errors() <-chan *sarama.ConsumerError {
	return m.errors
}

func (m *mockPartitionConsumer) HighWaterMarkOffset() int64 {
	return 0
}

func (m *mockPartitionConsumer) IsPaused() bool {
	return false
}

func (m *mockPartitionConsumer) Pause() {}

func (m *mockPartitionConsumer) Resume() {}

func TestQueueMessageSender_SendDoneMessage(t *testing.T) {
	doneMessage := &messaging.DoneMessage{
		OrderID:      "test-order-1",
		ExecutedQty:  "100.500",
		RemainingQty: "50.000",
		Stored:       true,
		Trades: []messaging.Trade{
			{
				OrderID:  "resting-1",
				Role:     "MAKER",
				Price:    "100.000",
				Quantity: "50.000",
			},
		},
	}

	mockProd := &mockProducer{}

	oldNewSyncProducer := newSyncProducer
	defer func() { newSyncProducer = oldNewSyncProducer }()
	newSyncProducer = func(addrs []string, config *sarama.Config) (sarama.SyncProducer, error) {
		return mockProd, nil
	}

	sender, err := NewQueueMessageSender()
	require.NoError(t, err)
	defer sender.Close()

	err = sender.SendDoneMessage(doneMessage)
	require.NoError(t, err)

	require.Len(t, mockProd.sentMessages, 1)
	msg := mockProd.sentMessages[0]
	require.Equal(t, topic, msg.Topic)

	var decoded messaging.DoneMessage
	err = json.Unmarshal(msg.Value.(sarama.ByteEncoder), &decoded)
	require.NoError(t, err)

	require.Equal(t, doneMessage.OrderID, decoded.OrderID)
	require.Equal(t, doneMessage.ExecutedQty, decoded.ExecutedQty)
	require.Equal(t, doneMessage.RemainingQty, decoded.RemainingQty)
	require.Equal(t, doneMessage.Stored, decoded.Stored)
	require.Equal(t, len(doneMessage.Trades), len(decoded.Trades))
	require.Equal(t, doneMessage.Trades[0], decoded.Trades[0])
}

func TestQueueMessageConsumer_ConsumeDoneMessages(t *testing.T) {
	expectedMessage := &messaging.DoneMessage{
		OrderID:      "test-order-1",
		ExecutedQty:  "100.500",
		RemainingQty: "50.000",
		Stored:       true,
		Trades: []messaging.Trade{
			{
				OrderID:  "resting-1",
				Role:     "MAKER",
				Price:    "100.000",
				Quantity: "50.000",
			},
		},
	}

	mc := &mockConsumer{
		messages: make(chan *sarama.ConsumerMessage, 1),
		errors:   make(chan *sarama.ConsumerError, 1),
	}

	consumer := &QueueMessageConsumer{
		consumer: mc,
		done:     make(chan struct{}),
	}

	receivedMessage := make(chan *messaging.DoneMessage, 1)

	go func() {
		err := consumer.ConsumeDoneMessages(func(msg *messaging.DoneMessage) error {
			receivedMessage <- msg
			return nil
		})
		assert.NoError(t, err)
	}()

	value, err := json.Marshal(expectedMessage)
	require.NoError(t, err)
	mc.messages <- &sarama.ConsumerMessage{Value: value}

	select {
	case msg := <-receivedMessage:
		assert.Equal(t, expectedMessage.OrderID, msg.OrderID)
		assert.Equal(t, expectedMessage.ExecutedQty, msg.ExecutedQty)
		assert.Equal(t, expectedMessage.RemainingQty, msg.RemainingQty)
		assert.Equal(t, expectedMessage.Stored, msg.Stored)
		assert.Equal(t, expectedMessage.Trades, msg.Trades)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	err = consumer.Close()
	require.NoError(t, err)
}

func TestSendMessage_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SendMessage(ctx, &messaging.DoneMessage{OrderID: "x"})
	require.ErrorIs(t, err, context.Canceled)
}
