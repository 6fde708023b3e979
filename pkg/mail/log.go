package mail

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LogMailer writes messages to the logger instead of delivering them.
// Sent messages are retained so callers can inspect them.
type LogMailer struct {
	sender Sender
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

var _ Mailer = (*LogMailer)(nil)

// NewLogMailer builds a development mailer.
func NewLogMailer(sender Sender, logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{sender: sender, logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		recipients = append(recipients, to.Email)
	}
	m.logger.Info("mail sent",
		zap.String("from", m.sender.FromAddress),
		zap.Strings("to", recipients),
		zap.String("subject", m.sender.subject(msg.Subject)),
		zap.Int("attachments", len(msg.Attachments)),
		zap.String("body", msg.TextContent),
	)

	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of every message logged so far.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
