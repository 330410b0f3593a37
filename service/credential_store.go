package service

import (
	"context"
	"errors"
	"fmt"

	"buddy-api/common"
	"buddy-api/logger"
	"buddy-api/model"
	"buddy-api/repository"

	"github.com/sirupsen/logrus"
)

// ICredentialStore owns user identity records and their password digests.
type ICredentialStore interface {
	// FindByEmail returns repository.ErrNotFound for an unknown email.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	// Create stores a new FREE-tier user. The plaintext password is hashed
	// before it reaches storage.
	Create(ctx context.Context, email, password string) (*model.User, error)
}

type CredentialStore struct {
	users  repository.IUserRepository
	hasher IPasswordHasher
	clock  common.Clock
}

func NewCredentialStore(users repository.IUserRepository, hasher IPasswordHasher, clock common.Clock) *CredentialStore {
	return &CredentialStore{users: users, hasher: hasher, clock: clock}
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.users.GetUserByEmail(ctx, email)
}

func (s *CredentialStore) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

func (s *CredentialStore) Create(ctx context.Context, email, password string) (*model.User, error) {
	if err := common.Validate(&model.CredentialsRequest{Email: email, Password: password}); err != nil {
		return nil, err
	}

	// The unique index still guards the race between this check and the insert.
	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrAlreadyExists
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &model.User{
		Email:     email,
		Password:  digest,
		Tier:      model.TierFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"tier":    user.Tier,
	}).Info("User created")
	return user, nil
}
