package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/skillmeter/internal/model"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongodb"
)

// ErrUserNotFound is returned by lookups that require an existing user.
var ErrUserNotFound = errors.New("user not found")

// Store is the credential and session record store. Every session read is
// scoped to the owning user.
type Store interface {
	// CreateUser registers a new user. Returns model.ErrAlreadyExists when
	// the email is taken.
	CreateUser(ctx context.Context, email, password string) (model.UserID, error)
	// VerifyUser checks credentials. Unknown email and wrong password both
	// return model.ErrAuthFailure.
	VerifyUser(ctx context.Context, email, password string) (model.UserID, error)
	// GetUser returns the user, or nil if there is none.
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	// FindUserByEmail returns the user, or nil if there is none.
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)

	SaveSession(ctx context.Context, in model.NewSession) (model.SessionID, error)
	// GetUserSessions returns the user's sessions, newest first.
	GetUserSessions(ctx context.Context, id model.UserID) ([]model.QuizSession, error)
	// GetLatestSession returns the newest session, or nil if there is none.
	GetLatestSession(ctx context.Context, id model.UserID) (*model.QuizSession, error)

	Close() error
}

// Config selects and locates the backend.
type Config struct {
	Backend  string // sqlite or mongodb
	Path     string // SQLite database file
	MongoURI string
	DBName   string
}

// Option customizes a store.
type Option func(*settings)

type settings struct {
	now      func() time.Time
	hashCost int
}

func defaultSettings() settings {
	return settings{
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
}

// WithClock sets the clock used for created_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *settings) { o.now = now }
}

// WithHashCost sets the bcrypt cost for new password hashes.
func WithHashCost(cost int) Option {
	return func(o *settings) { o.hashCost = cost }
}

// Open connects to the configured backend. Any failure is a
// *model.StorageError.
func Open(ctx context.Context, cfg Config, opts ...Option) (Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		s, err := NewSQLite(cfg.Path, opts...)
		if err != nil {
			return nil, &model.StorageError{Backend: BackendSQLite, Err: err}
		}
		return s, nil
	case BackendMongo:
		s, err := NewMongo(ctx, cfg.MongoURI, cfg.DBName, opts...)
		if err != nil {
			return nil, &model.StorageError{Backend: BackendMongo, Err: err}
		}
		return s, nil
	default:
		return nil, &model.StorageError{
			Backend: cfg.Backend,
			Err:     fmt.Errorf("unknown backend %q", cfg.Backend),
		}
	}
}
