package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"buddy-api/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock
}

func TestUserRepository_CreateUser(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	newUser := func() *model.User {
		return &model.User{Email: "yami@bulls.io", Password: "$2a$hash", Tier: model.TierFree, CreatedAt: now, UpdatedAt: now}
	}

	t.Run("success", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		mock.ExpectQuery(`INSERT INTO users \(email, password, tier, created_at, updated_at\)`).
			WithArgs("yami@bulls.io", "$2a$hash", "FREE", now, now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

		user := newUser()
		require.NoError(t, repo.CreateUser(ctx, user))
		assert.Equal(t, int64(1), user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		mock.ExpectQuery(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505"})

		err := repo.CreateUser(ctx, newUser())
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("other failure", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		mock.ExpectQuery(`INSERT INTO users`).WillReturnError(errors.New("db down"))

		err := repo.CreateUser(ctx, newUser())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestUserRepository_Get(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	columns := []string{"id", "email", "password", "tier", "created_at", "updated_at"}

	t.Run("by email", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		mock.ExpectQuery(`FROM users WHERE email = \$1`).
			WithArgs("yami@bulls.io").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(3), "yami@bulls.io", "$2a$hash", "FREE", now, now))

		user, err := repo.GetUserByEmail(ctx, "yami@bulls.io")
		require.NoError(t, err)
		assert.Equal(t, int64(3), user.ID)
		assert.Equal(t, model.TierFree, user.Tier)
	})

	t.Run("by id", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		mock.ExpectQuery(`FROM users WHERE id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(3), "yami@bulls.io", "$2a$hash", "FREE", now, now))

		user, err := repo.GetUserByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "yami@bulls.io", user.Email)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newUserRepoWithMock(t)
		mock.ExpectQuery(`FROM users WHERE email = \$1`).
			WithArgs("nobody@bulls.io").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetUserByEmail(ctx, "nobody@bulls.io")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserRepository_UnknownStoredTier(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "tier", "created_at", "updated_at"}).
			AddRow(int64(3), "yami@bulls.io", "$2a$hash", "GOLD", now, now))

	_, err := repo.GetUserByID(context.Background(), 3)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
