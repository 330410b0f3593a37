package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"buddy-api/model"
	"buddy-api/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memoryUsers is an in-memory IUserRepository.
type memoryUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.User
	err    error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[int64]*model.User{}}
}

func (m *memoryUsers) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, u := range m.byID {
		if u.Email == user.Email {
			return repository.ErrAlreadyExists
		}
	}
	m.nextID++
	user.ID = m.nextID
	stored := *user
	m.byID[user.ID] = &stored
	return nil
}

func (m *memoryUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := *u
	return &found, nil
}

// memoryTokens is an in-memory ITokenRepository. WithUserLock takes a
// per-user mutex, mirroring the row lock held by the SQL implementation.
type memoryTokens struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]*model.RefreshToken
	users   *memoryUsers
	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
	err     error
}

func newMemoryTokens(users *memoryUsers) *memoryTokens {
	return &memoryTokens{
		rows:  map[int64]*model.RefreshToken{},
		users: users,
		locks: map[int64]*sync.Mutex{},
	}
}

func (m *memoryTokens) Create(_ context.Context, token *model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, t := range m.rows {
		if t.TokenHash == token.TokenHash {
			return repository.ErrAlreadyExists
		}
	}
	m.nextID++
	token.ID = m.nextID
	stored := *token
	stored.Token = ""
	m.rows[token.ID] = &stored
	return nil
}

func (m *memoryTokens) ListByUserID(_ context.Context, userID int64) ([]*model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*model.RefreshToken{}
	for _, t := range m.rows {
		if t.UserID == userID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryTokens) GetLatestByUserID(ctx context.Context, userID int64) (*model.RefreshToken, error) {
	tokens, err := m.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, repository.ErrNotFound
	}
	return tokens[len(tokens)-1], nil
}

func (m *memoryTokens) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, id := range ids {
		if _, ok := m.rows[id]; ok {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryTokens) WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context, tokens repository.ITokenRepository) error) error {
	if m.users != nil {
		if _, err := m.users.GetUserByID(ctx, userID); err != nil {
			return err
		}
	}

	m.locksMu.Lock()
	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	m.locksMu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx, m)
}

func (m *memoryTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
