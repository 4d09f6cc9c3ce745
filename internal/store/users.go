package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is an account identified by email. Password is a bcrypt hash and may
// be empty for users who only sign in through email links.
type User struct {
	Email     string
	Password  []byte
	CreatedAt time.Time
}

// SetPassword hashes password into u.Password.
func (u *User) SetPassword(password string) error {
	if password == "" {
		return errors.New("store: password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("store: hash password: %w", err)
	}
	u.Password = hash
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (u User) CheckPassword(password string) bool {
	if len(u.Password) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(u.Password, []byte(password)) == nil
}

// EnsureUser creates the user if missing and returns the stored record.
func (s *Store) EnsureUser(ctx context.Context, email string) (User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return User{}, errors.New("store: email is required")
	}

	s.mu.Lock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, created_at) VALUES (?, ?) ON CONFLICT(email) DO NOTHING`,
		email, s.now().UTC().UnixNano())
	s.mu.Unlock()
	if err != nil {
		return User{}, fmt.Errorf("store: ensure user: %w", err)
	}
	return s.User(ctx, email)
}

// User loads a user by email.
func (s *Store) User(ctx context.Context, email string) (User, error) {
	var (
		user    User
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT email, password, created_at FROM users WHERE email = ?`, normalizeEmail(email),
	).Scan(&user.Email, &user.Password, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("store: load user: %w", err)
	}
	user.CreatedAt = time.Unix(0, created).UTC()
	return user, nil
}

// SetPassword stores a new password hash for an existing user.
func (s *Store) SetPassword(ctx context.Context, email, password string) error {
	user, err := s.User(ctx, email)
	if err != nil {
		return err
	}
	if err := user.SetPassword(password); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET password = ? WHERE email = ?`, user.Password, user.Email); err != nil {
		return fmt.Errorf("store: update password: %w", err)
	}
	return nil
}

// Login is a pending email sign-in.
type Login struct {
	Key       string
	Email     string
	CreatedAt time.Time
}

// NewLogin records a sign-in request for email and returns its key.
func (s *Store) NewLogin(ctx context.Context, email string) (Login, error) {
	email = normalizeEmail(email)
	if email == "" {
		return Login{}, errors.New("store: email is required")
	}
	login := Login{
		Key:       uuid.NewString(),
		Email:     email,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO logins (token, email, created_at) VALUES (?, ?, ?)`,
		login.Key, login.Email, login.CreatedAt.UnixNano()); err != nil {
		return Login{}, fmt.Errorf("store: insert login: %w", err)
	}
	return login, nil
}

// TakeLogin returns the login for key and deletes it, so each key can be
// redeemed once.
func (s *Store) TakeLogin(ctx context.Context, key string) (Login, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Login{}, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	var (
		login   Login
		created int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT token, email, created_at FROM logins WHERE token = ?`, key,
	).Scan(&login.Key, &login.Email, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Login{}, ErrNotFound
	}
	if err != nil {
		return Login{}, fmt.Errorf("store: load login: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM logins WHERE token = ?`, key); err != nil {
		return Login{}, fmt.Errorf("store: delete login: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Login{}, fmt.Errorf("store: commit: %w", err)
	}
	login.CreatedAt = time.Unix(0, created).UTC()
	return login, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
