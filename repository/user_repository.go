package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"buddy-api/logger"
	"buddy-api/model"

	"github.com/lib/pq"
)

const pqUniqueViolation = pq.ErrorCode("23505")

// IUserRepository defines the contract for user database operations.
type IUserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

type UserRepository struct {
	DB DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{DB: db}
}

// CreateUser inserts user and fills in its ID. A duplicate email yields
// ErrAlreadyExists.
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	log := logger.Log.WithField("tier", user.Tier)
	log.Info("Executing query to create a new user")

	query := `INSERT INTO users (email, password, tier, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.DB.QueryRowContext(ctx, query, user.Email, user.Password, string(user.Tier), user.CreatedAt, user.UpdatedAt).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("create user: %w", ErrAlreadyExists)
		}
		log.WithError(err).Error("Failed to execute create user query")
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, email, password, tier, created_at, updated_at FROM users WHERE email = $1 LIMIT 1`
	return r.getOne(ctx, query, email)
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, email, password, tier, created_at, updated_at FROM users WHERE id = $1 LIMIT 1`
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	var tier string
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &user.Password, &tier, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).Error("Failed to execute get user query")
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.Tier, err = model.ParseTier(tier); err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Error("Stored user has an unknown tier")
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
