package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripflow/tripflow/pkg/domain"
)

// CreateUser inserts a new account. The caller supplies an already-hashed
// password.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash, name string) (*User, error) {
	if email == "" || passwordHash == "" || name == "" {
		return nil, fmt.Errorf("%w: email, password, and name are required", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.AvatarURL, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("%w: email already registered", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByEmail looks up an account by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, COALESCE(avatar_url, ''), created_at, updated_at
		 FROM users WHERE email = ?`, strings.ToLower(email)))
}

// GetUserByID looks up an account by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, COALESCE(avatar_url, ''), created_at, updated_at
		 FROM users WHERE id = ?`, id))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name,
		&user.AvatarURL, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}
