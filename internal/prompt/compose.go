package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-politemail/internal/store"
)

// MessageSaver persists composed messages.
type MessageSaver interface {
	AddMessage(ctx context.Context, msg store.Message) (store.Message, error)
}

// Composer walks the user through writing a message. Options are collected
// the way the web form grows them: one to start with, then one more each time
// the user asks for another, up to MaxOptions.
type Composer struct {
	Driver     Driver
	Saver      MessageSaver
	MaxOptions int
}

// Compose prompts for a message from sender and stores it.
func (c Composer) Compose(ctx context.Context, sender string) (store.Message, error) {
	if c.Driver == nil || c.Saver == nil {
		return store.Message{}, errors.New("prompt: driver and saver are required")
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return store.Message{}, errors.New("prompt: sender is required")
	}

	to, err := c.Driver.Input(ctx, InputConfig{Message: "To:", Validator: requireEmail})
	if err != nil {
		return store.Message{}, err
	}
	subject, err := c.Driver.Input(ctx, InputConfig{Message: "Subject:"})
	if err != nil {
		return store.Message{}, err
	}
	body, err := c.Driver.TextArea(ctx, TextAreaConfig{Message: "Body:"})
	if err != nil {
		return store.Message{}, err
	}

	options, err := c.collectOptions(ctx)
	if err != nil {
		return store.Message{}, err
	}

	msg, err := c.Saver.AddMessage(ctx, store.Message{
		From:    sender,
		To:      strings.TrimSpace(to),
		Subject: strings.TrimSpace(subject),
		Body:    body,
		Options: options,
	})
	if err != nil {
		return store.Message{}, fmt.Errorf("prompt: save message: %w", err)
	}
	if err := c.Driver.Info(ctx, fmt.Sprintf("Saved message %s with %d options.", msg.ID, len(msg.Options))); err != nil {
		return store.Message{}, err
	}
	return msg, nil
}

func (c Composer) collectOptions(ctx context.Context) ([]string, error) {
	limit := c.MaxOptions
	if limit <= 0 {
		limit = 1
	}

	var options []string
	for i := 1; i <= limit; i++ {
		value, err := c.Driver.Input(ctx, InputConfig{Message: fmt.Sprintf("Option %d:", i)})
		if err != nil {
			return nil, err
		}
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			options = append(options, trimmed)
		}
		if i == limit {
			break
		}
		more, err := c.Driver.Confirm(ctx, ConfirmConfig{Message: "Add another option?"})
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	return options, nil
}

// SetPassword asks for a new password twice and stores it for email.
func SetPassword(ctx context.Context, driver Driver, users interface {
	SetPassword(ctx context.Context, email, password string) error
}, email string) error {
	first, err := driver.Password(ctx, InputConfig{Message: "New password:", Validator: requireNonEmpty})
	if err != nil {
		return err
	}
	second, err := driver.Password(ctx, InputConfig{Message: "Repeat password:"})
	if err != nil {
		return err
	}
	if first != second {
		return errors.New("prompt: passwords do not match")
	}
	if err := users.SetPassword(ctx, email, first); err != nil {
		return err
	}
	return driver.Info(ctx, "Password updated for "+email+".")
}

func requireEmail(value string) error {
	if !strings.Contains(strings.TrimSpace(value), "@") {
		return errors.New("enter an email address")
	}
	return nil
}

func requireNonEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("value is required")
	}
	return nil
}
