package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewave/notewave/pkg/models"
)

func TestStaticProvider(t *testing.T) {
	id := models.NewUserID()
	got, err := NewStatic(id).CurrentUserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = NewStatic(models.UserID{}).CurrentUserID()
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestTokenProviderRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	id := models.NewUserID()

	token, err := SignToken(secret, id, time.Hour)
	require.NoError(t, err)

	got, err := NewTokenProvider(secret, token).CurrentUserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokenProviderRejectsBadSignature(t *testing.T) {
	id := models.NewUserID()
	token, err := SignToken([]byte("secret-a"), id, time.Hour)
	require.NoError(t, err)

	_, err = NewTokenProvider([]byte("secret-b"), token).CurrentUserID()
	assert.Error(t, err)
}

func TestTokenProviderRejectsExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := SignToken(secret, models.NewUserID(), -time.Minute)
	require.NoError(t, err)

	_, err = NewTokenProvider(secret, token).CurrentUserID()
	assert.Error(t, err)
}

func TestTokenProviderEmptyToken(t *testing.T) {
	_, err := NewTokenProvider([]byte("s"), "").CurrentUserID()
	assert.ErrorIs(t, err, ErrNoIdentity)
}
