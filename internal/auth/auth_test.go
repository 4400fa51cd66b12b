package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	token, err := Sign("secret", "user-1", "maria@example.com", time.Hour)
	require.NoError(t, err)

	id, err := NewVerifier("secret", false).Parse(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: "user-1", Email: "maria@example.com"}, id)

	_, err = NewVerifier("other", false).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseExpired(t *testing.T) {
	token, err := Sign("secret", "user-1", "", -time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("secret", false).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFromRequest(t *testing.T) {
	token, err := Sign("secret", "user-1", "maria@example.com", time.Hour)
	require.NoError(t, err)

	t.Run("bearer", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		id, err := NewVerifier("secret", false).FromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "user-1", id.ID)
	})

	t.Run("none", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		_, err := NewVerifier("secret", false).FromRequest(r)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("malformed scheme", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Basic abc")
		_, err := NewVerifier("secret", false).FromRequest(r)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("dev bypass only when enabled", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("x-user-sub", "dev-user")

		id, err := NewVerifier("", true).FromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "dev-user", id.ID)

		_, err = NewVerifier("secret", false).FromRequest(r)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "maria", Identity{Email: "maria@example.com"}.DisplayName())
	assert.Equal(t, "Usuário", Identity{}.DisplayName())
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{ID: "u1"})
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", id.ID)
}
