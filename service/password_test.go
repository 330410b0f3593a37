package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestBcryptHasher_HashAndVerify ensures that password hashing and verification work correctly.
func TestBcryptHasher_HashAndVerify(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	password := "mySecretPassword123"

	hashed, err := hasher.Hash(password)
	require.NoError(t, err)
	assert.NotEqual(t, password, hashed, "hashed password should not be the same as the original password")
	assert.NotContains(t, hashed, password)

	match, err := hasher.Verify(password, hashed)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = hasher.Verify("notMyPassword", hashed)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestBcryptHasher_SaltIsRandom(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	first, err := hasher.Hash("same-password")
	require.NoError(t, err)
	second, err := hasher.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBcryptHasher_MalformedDigest(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	match, err := hasher.Verify("whatever1", "not-a-bcrypt-digest")

	assert.Error(t, err)
	assert.False(t, match)
}

func TestBcryptHasher_CostIsApplied(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost + 1)

	hashed, err := hasher.Hash("mySecretPassword123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}
