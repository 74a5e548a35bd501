package mailer

import (
	"context"
	"sync"

	"github.com/versecraft/versecraft/pkg/logger"
)

// Sender delivers outbound mail. Failures are the caller's to log;
// delivery is always best-effort and never blocks a user-facing flow.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Mock records messages instead of sending them; used when Mailgun is
// not configured and in tests.
type Mock struct {
	mu   sync.Mutex
	Sent []MockMessage
}

type MockMessage struct {
	To      string
	Subject string
	Body    string
}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, MockMessage{To: to, Subject: subject, Body: body})
	logger.Debugf("mock mail to=%s subject=%q", to, subject)
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *Mock) Messages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockMessage(nil), m.Sent...)
}
