// Package identity resolves who is running the session. Authenticated users
// read and persist templates and results through the record store; everyone
// else runs anonymously against local state.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Session identifies an authenticated user for the record store.
type Session struct {
	UserID      string
	Email       string
	AccessToken string
}

// Provider reports the current user session. A nil session means anonymous.
// Subscribers are notified on session change so callers drop any cached
// current-user state instead of re-checking ambiently.
type Provider interface {
	Current(ctx context.Context) (*Session, error)
	Subscribe(fn func(*Session)) (cancel func())
}

// Anonymous is the no-auth provider used when no access token is configured.
type Anonymous struct{}

// Current always reports an anonymous user.
func (Anonymous) Current(context.Context) (*Session, error) { return nil, nil }

// Subscribe is a no-op; the anonymous session never changes.
func (Anonymous) Subscribe(func(*Session)) func() { return func() {} }

// TokenProvider validates a configured access token against the record
// store's auth endpoint and caches the resulting session.
type TokenProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	cached      *Session
	subs        map[int]func(*Session)
	nextSub     int
}

// NewTokenProvider builds a provider for a configured access token.
func NewTokenProvider(baseURL, apiKey, accessToken string) *TokenProvider {
	return &TokenProvider{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		subs:        make(map[int]func(*Session)),
	}
}

// Subscribe registers a session-change callback. The returned cancel removes
// it.
func (p *TokenProvider) Subscribe(fn func(*Session)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// SetAccessToken swaps the token, drops the cached session, and notifies
// subscribers. The next Current re-validates against the auth endpoint.
func (p *TokenProvider) SetAccessToken(token string) {
	p.mu.Lock()
	p.accessToken = token
	p.cached = nil
	fns := make([]func(*Session), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
}

type userReply struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Current validates the token on first use and returns the cached session
// afterwards. An invalid token is an error, not an anonymous fallback, so
// misconfiguration surfaces instead of silently losing persistence.
func (p *TokenProvider) Current(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	cached := p.cached
	token := p.accessToken
	p.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validate access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validate access token: status %d", resp.StatusCode)
	}

	var user userReply
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode auth reply: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("auth reply has no user id")
	}

	session := &Session{UserID: user.ID, Email: user.Email, AccessToken: token}
	p.mu.Lock()
	p.cached = session
	p.mu.Unlock()
	return session, nil
}
