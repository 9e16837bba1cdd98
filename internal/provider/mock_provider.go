package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/notifyhub/deadline-reminders/internal/domain"
)

// MockProvider is a hand-written Provider used in unit tests. Each call pops
// the next scripted error; once the script is exhausted every call succeeds.
type MockProvider struct {
	mu       sync.Mutex
	script   []error
	payloads []domain.Payload

	// OnDeliver, when set, runs inside Deliver before the scripted outcome.
	OnDeliver func(call int, p domain.Payload)
}

func NewMockProvider(script ...error) *MockProvider {
	return &MockProvider{script: script}
}

func (m *MockProvider) Deliver(_ context.Context, p domain.Payload) (*Receipt, error) {
	m.mu.Lock()
	m.payloads = append(m.payloads, p)
	call := len(m.payloads)
	var err error
	if len(m.script) > 0 {
		err, m.script = m.script[0], m.script[1:]
	}
	hook := m.OnDeliver
	m.mu.Unlock()

	if hook != nil {
		hook(call, p)
	}
	if err != nil {
		return nil, err
	}
	return &Receipt{MessageID: fmt.Sprintf("msg-%d", call), Status: "accepted"}, nil
}

// Calls returns how many times Deliver was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

// Payloads returns every payload passed to Deliver, in call order.
func (m *MockProvider) Payloads() []domain.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Payload(nil), m.payloads...)
}

var _ Provider = (*MockProvider)(nil)
