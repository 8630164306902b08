package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"

	"github.com/pavelanni/skillmeter/internal/model"
)

// CreateUser inserts a new user with a bcrypt password hash.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, password string) (model.UserID, error) {
	hash, err := hashPassword(password, s.opts.hashCost)
	if err != nil {
		return "", err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)`,
		email, hash, s.opts.now().UTC(),
	)
	if isUniqueViolation(err) {
		return "", model.ErrAlreadyExists
	}
	if err != nil {
		slog.Error("failed to create user", "email", email, "error", err)
		return "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	slog.Info("created user", "id", id, "email", email)
	return model.UserID(strconv.FormatInt(id, 10)), nil
}

// VerifyUser returns the user's ID when the credentials match.
func (s *SQLiteStore) VerifyUser(ctx context.Context, email, password string) (model.UserID, error) {
	u, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", model.ErrAuthFailure
	}
	if err := checkPassword(u.PasswordHash, password); err != nil {
		return "", err
	}
	return u.ID, nil
}

// FindUserByEmail returns a user by email.
func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email,
	)
	return scanUser(row)
}

// GetUser returns a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	uid, err := id.Int64()
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, uid,
	)
	return scanUser(row)
}

func scanUser(r rowScanner) (*model.User, error) {
	var (
		u  model.User
		id int64
	)
	err := r.Scan(&id, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.ID = model.UserID(strconv.FormatInt(id, 10))
	return &u, nil
}
