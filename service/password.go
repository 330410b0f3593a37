package service

import (
	"errors"
	"fmt"

	"buddy-api/logger"

	"golang.org/x/crypto/bcrypt"
)

// IPasswordHasher turns plaintext passwords into one-way salted digests.
type IPasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches digest. A mismatch is not an
	// error; a malformed digest is.
	Verify(password, digest string) (bool, error)
}

// BcryptHasher implements IPasswordHasher with bcrypt. The salt is generated
// per hash and stored inside the digest.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(bytes), nil
}

func (h *BcryptHasher) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", err)
	}
}
