// Package mailer delivers PoliteMail's outgoing mail (sign-in links today).
package mailer

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Message is a plain-text email.
type Message struct {
	From     string
	FromName string
	To       string
	Subject  string
	Text     string
}

// Validate checks the fields every sender needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("mailer: recipient is required")
	}
	if !strings.Contains(m.To, "@") {
		return errors.New("mailer: recipient is not an email address")
	}
	if strings.TrimSpace(m.From) == "" {
		return errors.New("mailer: sender is required")
	}
	return nil
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender "delivers" mail by writing it to a logger. It stands in for a
// real provider during development.
type LogSender struct {
	Logger *zap.Logger
}

// Send implements Sender.
func (s LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("mail delivered to log",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}

// Outbox keeps sent messages in memory.
type Outbox struct {
	mu   sync.Mutex
	sent []Message
	// Err, when set, is returned by Send instead of recording the message.
	Err error
}

// Send implements Sender.
func (o *Outbox) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.sent = append(o.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (o *Outbox) Sent() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.sent...)
}
