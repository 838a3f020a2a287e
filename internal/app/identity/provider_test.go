package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestTokenProvider_SetToken(t *testing.T) {
	p := NewTokenProvider()

	_, ok := p.Current()
	assert.False(t, ok)

	raw := signedToken(t, "user-42")
	require.NoError(t, p.SetToken(raw))

	id, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "user-42", id.Key)
	assert.Equal(t, raw, id.Token)
	assert.Equal(t, raw, p.Token())
}

func TestTokenProvider_ClearToken(t *testing.T) {
	p := NewTokenProvider()
	require.NoError(t, p.SetToken(signedToken(t, "user-42")))

	p.ClearToken()

	_, ok := p.Current()
	assert.False(t, ok)
	assert.Empty(t, p.Token())
}

func TestTokenProvider_InvalidToken(t *testing.T) {
	p := NewTokenProvider()

	assert.ErrorIs(t, p.SetToken("not-a-jwt"), ErrTokenInvalid)

	_, ok := p.Current()
	assert.False(t, ok)
}

func TestTokenProvider_MissingSubject(t *testing.T) {
	p := NewTokenProvider()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	assert.ErrorIs(t, p.SetToken(raw), ErrNoSubject)
}

func TestTokenProvider_Subscribe(t *testing.T) {
	p := NewTokenProvider()

	type event struct {
		key string
		ok  bool
	}
	var events []event
	p.Subscribe(func(id Identity, ok bool) {
		events = append(events, event{key: id.Key, ok: ok})
	})

	require.NoError(t, p.SetToken(signedToken(t, "user-1")))
	p.ClearToken()
	require.NoError(t, p.SetToken(signedToken(t, "user-2")))

	require.Len(t, events, 3)
	assert.Equal(t, event{key: "user-1", ok: true}, events[0])
	assert.Equal(t, event{key: "", ok: false}, events[1])
	assert.Equal(t, event{key: "user-2", ok: true}, events[2])
}
