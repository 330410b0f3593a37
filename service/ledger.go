package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"buddy-api/common"
	"buddy-api/logger"
	"buddy-api/metrics"
	"buddy-api/model"
	"buddy-api/repository"

	"github.com/sirupsen/logrus"
)

// refreshTokenBytes is the amount of randomness behind one refresh token.
const refreshTokenBytes = 32

// IRefreshTokenLedger keeps at most a fixed number of refresh tokens per
// user. Adding a token to a full ledger evicts the oldest ones first.
type IRefreshTokenLedger interface {
	// ListForUser returns the user's tokens oldest first.
	ListForUser(ctx context.Context, userID int64) ([]*model.RefreshToken, error)
	// MostRecentForUser returns repository.ErrNotFound for an empty ledger.
	MostRecentForUser(ctx context.Context, userID int64) (*model.RefreshToken, error)
	// Create mints a token and records it. The returned value is the only
	// place the plaintext secret ever appears.
	Create(ctx context.Context, userID int64) (*model.RefreshToken, error)
	// Contains reports whether value belongs to the user's ledger.
	Contains(ctx context.Context, userID int64, value string) (bool, error)
}

type RefreshTokenLedger struct {
	tokens   repository.ITokenRepository
	capacity int
	clock    common.Clock
	random   io.Reader
	metrics  *metrics.Metrics
}

// NewRefreshTokenLedger panics on a capacity below one; config validation
// rejects such values before they get here.
func NewRefreshTokenLedger(tokens repository.ITokenRepository, capacity int, clock common.Clock, random io.Reader, m *metrics.Metrics) *RefreshTokenLedger {
	if capacity < 1 {
		panic(fmt.Sprintf("refresh token capacity must be at least 1, got %d", capacity))
	}
	return &RefreshTokenLedger{tokens: tokens, capacity: capacity, clock: clock, random: random, metrics: m}
}

// HashRefreshToken is the digest stored in place of a refresh token.
func HashRefreshToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func (l *RefreshTokenLedger) ListForUser(ctx context.Context, userID int64) ([]*model.RefreshToken, error) {
	return l.tokens.ListByUserID(ctx, userID)
}

func (l *RefreshTokenLedger) MostRecentForUser(ctx context.Context, userID int64) (*model.RefreshToken, error) {
	return l.tokens.GetLatestByUserID(ctx, userID)
}

func (l *RefreshTokenLedger) Create(ctx context.Context, userID int64) (*model.RefreshToken, error) {
	value, err := l.newSecret()
	if err != nil {
		return nil, err
	}

	token := &model.RefreshToken{UserID: userID, TokenHash: HashRefreshToken(value)}
	var evicted int64

	err = l.tokens.WithUserLock(ctx, userID, func(ctx context.Context, tokens repository.ITokenRepository) error {
		existing, err := tokens.ListByUserID(ctx, userID)
		if err != nil {
			return err
		}

		// Make room for the new token: keep only the newest capacity-1.
		if excess := len(existing) - (l.capacity - 1); excess > 0 {
			ids := make([]int64, 0, excess)
			for _, t := range existing[:excess] {
				ids = append(ids, t.ID)
			}
			if evicted, err = tokens.DeleteByIDs(ctx, ids); err != nil {
				return err
			}
		}

		token.CreatedAt = l.clock.Now()
		return tokens.Create(ctx, token)
	})
	if err != nil {
		return nil, fmt.Errorf("create refresh token for user %d: %w", userID, err)
	}

	l.metrics.TokenIssued(evicted)
	logger.Log.WithFields(logrus.Fields{
		"user_id":  userID,
		"token_id": token.ID,
		"evicted":  evicted,
	}).Info("Refresh token issued")

	token.Token = value
	return token, nil
}

func (l *RefreshTokenLedger) Contains(ctx context.Context, userID int64, value string) (bool, error) {
	tokens, err := l.tokens.ListByUserID(ctx, userID)
	if err != nil {
		return false, err
	}

	want := []byte(HashRefreshToken(value))
	found := false
	for _, t := range tokens {
		if subtle.ConstantTimeCompare([]byte(t.TokenHash), want) == 1 {
			found = true
		}
	}
	return found, nil
}

func (l *RefreshTokenLedger) newSecret() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := io.ReadFull(l.random, b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
