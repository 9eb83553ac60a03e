package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	password := "secret-password"
	hash, err := HashPassword(password)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPassword("same-password")
	require.NoError(t, err)
	b, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCheckPasswordHash(t *testing.T) {
	password := "secret-password"
	hash, _ := HashPassword(password)

	assert.True(t, CheckPasswordHash(password, hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.False(t, CheckPasswordHash(password, "not-a-hash"))
}

func TestUser_HasPassword(t *testing.T) {
	empty := ""
	hash := "$2a$10$abc"

	assert.False(t, (&User{}).HasPassword())
	assert.False(t, (&User{PasswordHash: &empty}).HasPassword())
	assert.True(t, (&User{PasswordHash: &hash}).HasPassword())
}
