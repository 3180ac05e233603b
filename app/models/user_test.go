package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateUserIsImmediatelyActive(t *testing.T) {
	u, err := CreateUser("alice", "alice@example.com", "secret123")
	assert.NoError(t, err)

	// Login gates on IsActive; a fresh registration must pass it.
	assert.Equal(t, STATUS_ACTIVE, u.Status)
	assert.True(t, u.IsActive())
	assert.Equal(t, ROLE_USER, u.Role)
}

func TestCreateUserHashesPassword(t *testing.T) {
	u, err := CreateUser("bob", "bob@example.com", "secret123")
	assert.NoError(t, err)

	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestCreateUserValidatesInput(t *testing.T) {
	_, err := CreateUser("carol", "not-an-email", "secret123")
	assert.Error(t, err)

	_, err = CreateUser("da", "dave@example.com", "secret123")
	assert.Error(t, err)
}

func TestUserIsActiveStates(t *testing.T) {
	assert.True(t, (&User{Status: STATUS_ACTIVE}).IsActive())
	assert.False(t, (&User{Status: STATUS_INACTIVE}).IsActive())
	assert.False(t, (&User{Status: STATUS_DISABLED}).IsActive())
}
