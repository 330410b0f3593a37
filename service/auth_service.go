package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"buddy-api/common"
	"buddy-api/logger"
	"buddy-api/metrics"
	"buddy-api/model"
	"buddy-api/repository"

	"github.com/sirupsen/logrus"
)

// IAuthService is the public surface of the auth flows.
type IAuthService interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.LoginResult, error)
	// Session resolves the owner of a valid, unexpired bearer token.
	Session(ctx context.Context, authorization string) (*model.User, error)
	// Refresh mints a new access token for the user named by a possibly
	// expired bearer token, provided refreshToken is in that user's ledger.
	// The refresh token itself stays valid.
	Refresh(ctx context.Context, authorization, refreshToken string) (*model.AccessToken, error)
	// Authenticate is what protected routes use to resolve the caller.
	Authenticate(ctx context.Context, authorization string) (*model.User, error)
}

type AuthService struct {
	credentials ICredentialStore
	hasher      IPasswordHasher
	codec       ITokenCodec
	ledger      IRefreshTokenLedger
	metrics     *metrics.Metrics

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(credentials ICredentialStore, hasher IPasswordHasher, codec ITokenCodec, ledger IRefreshTokenLedger, m *metrics.Metrics) *AuthService {
	return &AuthService{
		credentials: credentials,
		hasher:      hasher,
		codec:       codec,
		ledger:      ledger,
		metrics:     m,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.credentials.Create(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidPayload):
			s.metrics.Registration(metrics.ResultInvalidPayload)
			return nil, err
		case errors.Is(err, common.ErrAlreadyExists):
			s.metrics.Registration(metrics.ResultAlreadyExists)
			return nil, err
		}
		s.metrics.Registration(metrics.ResultError)
		return nil, internal("register", err)
	}

	s.metrics.Registration(metrics.ResultSuccess)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResult, error) {
	if err := common.Validate(&model.CredentialsRequest{Email: email, Password: password}); err != nil {
		s.metrics.Login(metrics.ResultInvalidPayload)
		return nil, err
	}

	user, err := s.credentials.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.metrics.Login(metrics.ResultError)
			return nil, internal("login", err)
		}
		// Spend the same hashing work as for a known user so response
		// times do not reveal which emails are registered.
		s.burnVerify(password)
		return nil, s.loginRejected("unknown email")
	}

	match, err := s.hasher.Verify(password, user.Password)
	if err != nil {
		s.metrics.Login(metrics.ResultError)
		return nil, internal("login", err)
	}
	if !match {
		return nil, s.loginRejected("password mismatch")
	}

	access, err := s.codec.Encode(user)
	if err != nil {
		s.metrics.Login(metrics.ResultError)
		return nil, internal("login", err)
	}

	refresh, err := s.ledger.Create(ctx, user.ID)
	if err != nil {
		s.metrics.Login(metrics.ResultError)
		return nil, internal("login", err)
	}

	s.metrics.Login(metrics.ResultSuccess)
	logger.Log.WithField("user_id", user.ID).Info("User logged in")
	return &model.LoginResult{AccessToken: *access, RefreshToken: refresh.Token}, nil
}

func (s *AuthService) Session(ctx context.Context, authorization string) (*model.User, error) {
	return s.Authenticate(ctx, authorization)
}

func (s *AuthService) Authenticate(ctx context.Context, authorization string) (*model.User, error) {
	return s.userFromHeader(ctx, authorization, true)
}

func (s *AuthService) Refresh(ctx context.Context, authorization, refreshToken string) (*model.AccessToken, error) {
	if err := common.Validate(&model.RefreshRequest{RefreshToken: refreshToken}); err != nil {
		s.metrics.Refresh(metrics.ResultInvalidPayload)
		return nil, err
	}

	user, err := s.userFromHeader(ctx, authorization, false)
	if err != nil {
		s.recordRefreshFailure(err)
		return nil, err
	}

	ok, err := s.ledger.Contains(ctx, user.ID, refreshToken)
	if err != nil {
		s.metrics.Refresh(metrics.ResultError)
		return nil, internal("refresh", err)
	}
	if !ok {
		s.metrics.Refresh(metrics.ResultInvalidCredentials)
		logger.Log.WithField("user_id", user.ID).Debug("Refresh token not in ledger")
		return nil, common.ErrInvalidCredentials
	}

	access, err := s.codec.Encode(user)
	if err != nil {
		s.metrics.Refresh(metrics.ResultError)
		return nil, internal("refresh", err)
	}

	s.metrics.Refresh(metrics.ResultSuccess)
	return access, nil
}

// userFromHeader decodes the bearer token and loads its subject. Every way
// this can fail short of a storage error is ErrInvalidCredentials.
func (s *AuthService) userFromHeader(ctx context.Context, authorization string, verifyExpiry bool) (*model.User, error) {
	claims, ok := s.codec.DecodeAuthorizationHeader(authorization, verifyExpiry)
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	userID, ok := subjectUserID(claims)
	if !ok {
		logger.Log.WithField("subject", claims.Subject).Debug("Token subject is not a user ID")
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.credentials.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Log.WithField("user_id", userID).Debug("Token subject no longer exists")
			return nil, common.ErrInvalidCredentials
		}
		return nil, internal("load user", err)
	}
	return user, nil
}

func (s *AuthService) loginRejected(reason string) error {
	s.metrics.Login(metrics.ResultInvalidCredentials)
	logger.Log.WithField("reason", reason).Debug("Login rejected")
	return common.ErrInvalidCredentials
}

func (s *AuthService) recordRefreshFailure(err error) {
	if errors.Is(err, common.ErrInvalidCredentials) {
		s.metrics.Refresh(metrics.ResultInvalidCredentials)
		return
	}
	s.metrics.Refresh(metrics.ResultError)
}

func (s *AuthService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			logger.Log.WithError(err).Warn("Failed to prepare dummy password digest")
			return
		}
		s.dummyDigest = digest
	})
	if s.dummyDigest != "" {
		_, _ = s.hasher.Verify(password, s.dummyDigest)
	}
}

// internal marks err as an unexpected failure of op.
func internal(op string, err error) error {
	if errors.Is(err, common.ErrInternal) {
		return err
	}
	logger.Log.WithFields(logrus.Fields{
		"op":    op,
		"error": err.Error(),
	}).Error("Auth operation failed")
	return fmt.Errorf("%w: %s: %w", common.ErrInternal, op, err)
}
