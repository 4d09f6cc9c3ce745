package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is a poll-style email: a body plus the options recipients choose
// from.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Options   []string  `json:"options"`
	CreatedAt time.Time `json:"created_at"`
}

// AddMessage stores msg under a fresh id and returns the stored copy. The
// sender is normalized the same way user emails are.
func (s *Store) AddMessage(ctx context.Context, msg Message) (Message, error) {
	msg.From = normalizeEmail(msg.From)
	if msg.From == "" {
		return Message{}, errors.New("store: sender is required")
	}
	msg.ID = uuid.NewString()
	msg.CreatedAt = s.now().UTC()
	if msg.Options == nil {
		msg.Options = []string{}
	}

	options, err := json.Marshal(msg.Options)
	if err != nil {
		return Message{}, fmt.Errorf("store: encode options: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, sender, recipient, subject, body, options, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.From, msg.To, msg.Subject, msg.Body, string(options), msg.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Message{}, fmt.Errorf("store: insert message: %w", err)
	}
	return msg, nil
}

// Message loads one message by id.
func (s *Store) Message(ctx context.Context, id string) (Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, sender, recipient, subject, body, options, created_at FROM messages WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("store: load message: %w", err)
	}
	return msg, nil
}

// MessagesFor lists messages sent by email, oldest first.
func (s *Store) MessagesFor(ctx context.Context, email string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender, recipient, subject, body, options, created_at FROM messages WHERE sender = ? ORDER BY created_at, id`, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (Message, error) {
	var (
		msg     Message
		options string
		created int64
	)
	if err := row.Scan(&msg.ID, &msg.From, &msg.To, &msg.Subject, &msg.Body, &options, &created); err != nil {
		return Message{}, err
	}
	if err := json.Unmarshal([]byte(options), &msg.Options); err != nil {
		return Message{}, fmt.Errorf("decode options: %w", err)
	}
	msg.CreatedAt = time.Unix(0, created).UTC()
	return msg, nil
}
