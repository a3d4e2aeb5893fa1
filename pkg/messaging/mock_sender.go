package messaging

import "sync"

// MockMessageSender records messages for testing.
type MockMessageSender struct {
	mu   sync.Mutex
	sent []*DoneMessage
}

// NewMockMessageSender creates a new MockMessageSender.
func NewMockMessageSender() *MockMessageSender {
	return &MockMessageSender{}
}

// SendDoneMessage records the message.
func (m *MockMessageSender) SendDoneMessage(done *DoneMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, done)
	return nil
}

// Sent returns all recorded messages.
func (m *MockMessageSender) Sent() []*DoneMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*DoneMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// Close does nothing.
func (m *MockMessageSender) Close() error {
	return nil
}

// Ensure MockMessageSender implements MessageSender
var _ MessageSender = (*MockMessageSender)(nil)
