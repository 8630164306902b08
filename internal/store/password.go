package store

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/skillmeter/internal/model"
)

// bcryptInput digests the password so bcrypt always sees 44 bytes. bcrypt
// rejects inputs over 72 bytes, and the base64 form keeps NUL bytes out.
func bcryptInput(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

func hashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword(bcryptInput(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// checkPassword returns model.ErrAuthFailure on any mismatch, including a
// stored hash that is not bcrypt.
func checkPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password)); err != nil {
		return model.ErrAuthFailure
	}
	return nil
}
