package identity

import (
	"errors"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ikkim/cartsync/pkg/logger"
)

var (
	ErrTokenInvalid = errors.New("invalid access token")
	ErrNoSubject    = errors.New("access token has no subject")
)

// Identity is the authenticated account behind the session. Key is
// stable per account and drives merge-on-login; Token is the raw
// bearer token forwarded to the remote store.
type Identity struct {
	Key   string
	Token string
}

// Provider exposes the current identity, or none, and notifies
// subscribers on every transition.
type Provider interface {
	Current() (Identity, bool)
	Subscribe(fn func(id Identity, ok bool))
}

// TokenProvider derives the identity from access tokens handed over by
// the host's auth layer. The token is parsed, not verified: issuing
// and validating tokens is the auth collaborator's job (the reference
// server does verify).
type TokenProvider struct {
	mu      sync.RWMutex
	current *Identity
	subs    []func(Identity, bool)
}

func NewTokenProvider() *TokenProvider {
	return &TokenProvider{}
}

// SetToken installs a new access token and announces the identity it
// carries. Returns an error if the token cannot be parsed or has no
// subject claim.
func (p *TokenProvider) SetToken(raw string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		logger.Warn("Failed to parse access token", map[string]interface{}{
			"error": err.Error(),
		})
		return ErrTokenInvalid
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return ErrNoSubject
	}

	id := Identity{Key: subject, Token: raw}

	p.mu.Lock()
	p.current = &id
	subs := append(([]func(Identity, bool))(nil), p.subs...)
	p.mu.Unlock()

	logger.Info("Identity established", map[string]interface{}{
		"identity": subject,
	})
	for _, fn := range subs {
		fn(id, true)
	}
	return nil
}

// ClearToken drops the identity, returning the session to anonymous.
func (p *TokenProvider) ClearToken() {
	p.mu.Lock()
	p.current = nil
	subs := append(([]func(Identity, bool))(nil), p.subs...)
	p.mu.Unlock()

	logger.Info("Identity cleared")
	for _, fn := range subs {
		fn(Identity{}, false)
	}
}

func (p *TokenProvider) Current() (Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return Identity{}, false
	}
	return *p.current, true
}

// Token returns the current raw token, or "" when anonymous. Shaped to
// plug straight into the remote client.
func (p *TokenProvider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return ""
	}
	return p.current.Token
}

func (p *TokenProvider) Subscribe(fn func(id Identity, ok bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}
