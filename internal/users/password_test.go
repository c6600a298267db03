package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() { hashCost = bcrypt.MinCost }

func TestHashPasswordIsSalted(t *testing.T) {
	h1, err := HashPassword("secret123")
	require.NoError(t, err)
	h2, err := HashPassword("secret123")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, (&User{PasswordHash: h1}).VerifyPassword("secret123"))
	assert.True(t, (&User{PasswordHash: h2}).VerifyPassword("secret123"))
}

func TestVerifyPasswordRejects(t *testing.T) {
	h, err := HashPassword("secret123")
	require.NoError(t, err)
	u := &User{PasswordHash: h}

	assert.False(t, u.VerifyPassword("secret124"))
	assert.False(t, u.VerifyPassword(""))
	assert.False(t, (&User{}).VerifyPassword("secret123"))

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}
