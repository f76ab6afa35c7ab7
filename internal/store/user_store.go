package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/shopexplore/internal/domain"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a user. A taken email returns ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, email, name, passwordHash string) (*domain.User, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)
	`, email, name, passwordHash)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("user %s: %w", email, ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.get(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`, id)
}

// GetByEmail matches case-insensitively. Returns nil when no user matches.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.get(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (s *UserStore) get(ctx context.Context, query string, arg any) (*domain.User, error) {
	user := &domain.User{}
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
