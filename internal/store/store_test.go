package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-politemail/internal/store"
)

func openStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "politemail.db"), opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestMessages_AddAndList(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.WithClock(fixedClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))))

	first, err := s.AddMessage(ctx, store.Message{
		From:    "ada@example.com",
		To:      "team@example.com",
		Subject: "Lunch?",
		Body:    "Where should we go?",
		Options: []string{"Tacos", "Ramen"},
	})
	if err != nil {
		t.Fatalf("add message: %v", err)
	}
	if first.ID == "" {
		t.Fatalf("expected generated id")
	}
	second, err := s.AddMessage(ctx, store.Message{From: "ada@example.com", To: "bob@example.com", Subject: "Hi"})
	if err != nil {
		t.Fatalf("add message: %v", err)
	}
	if _, err := s.AddMessage(ctx, store.Message{From: "eve@example.com", Subject: "other"}); err != nil {
		t.Fatalf("add message: %v", err)
	}

	got, err := s.Message(ctx, first.ID)
	if err != nil {
		t.Fatalf("load message: %v", err)
	}
	if diff := cmp.Diff(first, got); diff != "" {
		t.Fatalf("message mismatch (-want +got):\n%s", diff)
	}

	list, err := s.MessagesFor(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]store.Message{first, second}, list); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
	if second.Options == nil || len(second.Options) != 0 {
		t.Fatalf("expected empty options slice, got %#v", second.Options)
	}
}

func TestMessages_SenderNormalized(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if _, err := s.EnsureUser(ctx, "Ada@Example.com"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	msg, err := s.AddMessage(ctx, store.Message{From: "  Ada@Example.COM ", To: "team@example.com", Subject: "Lunch?"})
	if err != nil {
		t.Fatalf("add message: %v", err)
	}
	if msg.From != "ada@example.com" {
		t.Fatalf("sender not normalized: %q", msg.From)
	}

	for _, email := range []string{"ada@example.com", "ADA@example.com"} {
		list, err := s.MessagesFor(ctx, email)
		if err != nil {
			t.Fatalf("list %s: %v", email, err)
		}
		if len(list) != 1 || list[0].ID != msg.ID {
			t.Fatalf("messages for %s: %#v", email, list)
		}
	}

	if _, err := s.AddMessage(ctx, store.Message{From: "  ", Subject: "x"}); err == nil {
		t.Fatalf("expected error for blank sender")
	}
}

func TestMessage_NotFound(t *testing.T) {
	s := openStore(t)
	if _, err := s.Message(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUsers_EnsureAndPassword(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	user, err := s.EnsureUser(ctx, "  Ada@Example.com ")
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.CheckPassword("anything") {
		t.Fatalf("user without password must not authenticate")
	}

	again, err := s.EnsureUser(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("ensure user again: %v", err)
	}
	if !again.CreatedAt.Equal(user.CreatedAt) {
		t.Fatalf("EnsureUser recreated the user")
	}

	if err := s.SetPassword(ctx, "ada@example.com", "correct horse"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	stored, err := s.User(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !stored.CheckPassword("correct horse") {
		t.Fatalf("expected password to match")
	}
	if stored.CheckPassword("wrong") {
		t.Fatalf("wrong password accepted")
	}
}

func TestSetPassword_UnknownUser(t *testing.T) {
	s := openStore(t)
	if err := s.SetPassword(context.Background(), "ghost@example.com", "pw"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLogins_TakeOnce(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	login, err := s.NewLogin(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("new login: %v", err)
	}

	taken, err := s.TakeLogin(ctx, login.Key)
	if err != nil {
		t.Fatalf("take login: %v", err)
	}
	if taken.Email != "ada@example.com" || !taken.CreatedAt.Equal(login.CreatedAt) {
		t.Fatalf("unexpected login %+v", taken)
	}

	if _, err := s.TakeLogin(ctx, login.Key); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected second take to fail with ErrNotFound, got %v", err)
	}
}

func TestNewLogin_RequiresEmail(t *testing.T) {
	s := openStore(t)
	if _, err := s.NewLogin(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty email")
	}
}
