// Package auth validates registration and login requests before handing
// them to the credential store.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/skillmeter/internal/model"
	"github.com/pavelanni/skillmeter/internal/store"
)

// MinPasswordLen is the shortest accepted password, in characters.
const MinPasswordLen = 6

// Translation keys for gate outcomes.
const (
	MsgRegistered       = "RegisterSuccess"
	MsgFieldsRequired   = "ErrFieldsRequired"
	MsgPasswordTooShort = "ErrPasswordTooShort"
	MsgEmailExists      = "ErrEmailExists"
	MsgInvalidLogin     = "ErrInvalidLogin"
	MsgInternal         = "ErrInternal"
)

// Gate checks credentials against a store.
type Gate struct {
	store store.Store
}

// New creates a Gate.
func New(s store.Store) *Gate {
	return &Gate{store: s}
}

// Register creates an account. Returns a *model.ValidationError for empty
// fields or a short password, model.ErrAlreadyExists for a taken email.
func (g *Gate) Register(ctx context.Context, email, password string) (model.UserID, error) {
	if err := requireFields(email, password); err != nil {
		return "", err
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return "", &model.ValidationError{Field: "password", Reason: model.ReasonTooShort}
	}
	id, err := g.store.CreateUser(ctx, email, password)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Login returns the user whose credentials match. Every credential
// mismatch is model.ErrAuthFailure.
func (g *Gate) Login(ctx context.Context, email, password string) (*model.User, error) {
	if err := requireFields(email, password); err != nil {
		return nil, err
	}
	id, err := g.store.VerifyUser(ctx, email, password)
	if err != nil {
		if errors.Is(err, model.ErrAuthFailure) {
			slog.Info("login failed", "email", email)
		}
		return nil, err
	}
	u, err := g.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, model.ErrAuthFailure
	}
	return u, nil
}

func requireFields(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return &model.ValidationError{Field: "email", Reason: model.ReasonRequired}
	}
	if password == "" {
		return &model.ValidationError{Field: "password", Reason: model.ReasonRequired}
	}
	return nil
}

// MessageID maps a gate error to the translation key shown to the user.
func MessageID(err error) string {
	var ve *model.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		if ve.Reason == model.ReasonTooShort {
			return MsgPasswordTooShort
		}
		return MsgFieldsRequired
	case errors.Is(err, model.ErrAlreadyExists):
		return MsgEmailExists
	case errors.Is(err, model.ErrAuthFailure):
		return MsgInvalidLogin
	default:
		return MsgInternal
	}
}
