// file: repository/token_repository.go

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"buddy-api/logger"
	"buddy-api/model"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

var errNestedLock = errors.New("token repository is already bound to a transaction")

// ITokenRepository defines the contract for refresh token database operations.
type ITokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	// ListByUserID returns the user's tokens oldest first (created_at, then id).
	ListByUserID(ctx context.Context, userID int64) ([]*model.RefreshToken, error)
	// GetLatestByUserID returns ErrNotFound when the user has no tokens.
	GetLatestByUserID(ctx context.Context, userID int64) (*model.RefreshToken, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	// WithUserLock runs fn in a transaction holding the owning user's row
	// lock, handing it a repository bound to that transaction. Concurrent
	// callers for the same user are serialised; other users are unaffected.
	WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context, tokens ITokenRepository) error) error
}

// TokenRepository implements ITokenRepository.
type TokenRepository struct {
	conn *sql.DB
	DB   DBTX
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{conn: db, DB: db}
}

// Create inserts a new refresh token record into the database.
func (r *TokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	log := logger.Log.WithField("user_id", token.UserID)
	log.Info("Executing query to create a new refresh token")

	query := `INSERT INTO refresh_tokens (user_id, token_hash, created_at) VALUES ($1, $2, $3) RETURNING id`
	err := r.DB.QueryRowContext(ctx, query, token.UserID, token.TokenHash, token.CreatedAt).Scan(&token.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("create refresh token: %w", ErrAlreadyExists)
		}
		log.WithError(err).Error("Failed to execute create refresh token query")
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) ListByUserID(ctx context.Context, userID int64) ([]*model.RefreshToken, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Debug("Executing query to list refresh tokens by user ID")

	query := `
		SELECT id, user_id, token_hash, created_at
		FROM refresh_tokens
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for refresh tokens by user ID")
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	defer rows.Close()

	tokens := []*model.RefreshToken{}
	for rows.Next() {
		var t model.RefreshToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt); err != nil {
			log.WithError(err).Error("Failed to scan refresh token row")
			return nil, fmt.Errorf("scan refresh token: %w", err)
		}
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refresh tokens: %w", err)
	}
	return tokens, nil
}

func (r *TokenRepository) GetLatestByUserID(ctx context.Context, userID int64) (*model.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, created_at
		FROM refresh_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	t := &model.RefreshToken{}
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to execute latest refresh token query")
		return nil, fmt.Errorf("get latest refresh token: %w", err)
	}
	return t, nil
}

// DeleteByIDs removes the given tokens and reports how many rows went away.
func (r *TokenRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	log := logger.Log.WithFields(logrus.Fields{"count": len(ids)})
	log.Info("Executing query to delete refresh tokens")

	res, err := r.DB.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		log.WithError(err).Error("Failed to execute delete refresh tokens query")
		return 0, fmt.Errorf("delete refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete refresh tokens: %w", err)
	}
	return n, nil
}

// WithUserLock locks the user row with SELECT ... FOR UPDATE for the life of
// the transaction. A missing user yields ErrNotFound.
func (r *TokenRepository) WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context, tokens ITokenRepository) error) error {
	if r.conn == nil {
		return errNestedLock
	}

	return WithTx(ctx, r.conn, nil, func(ctx context.Context, tx DBTX) error {
		var lockedID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&lockedID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock user %d: %w", userID, err)
		}
		return fn(ctx, &TokenRepository{DB: tx})
	})
}
