package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnonymousCurrent(t *testing.T) {
	session, err := Anonymous{}.Current(context.Background())
	require.NoError(t, err)
	require.Nil(t, session)
}

func TestTokenProviderValidatesAndCaches(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/auth/v1/user", r.URL.Path)
		require.Equal(t, "anon-key", r.Header.Get("apikey"))
		require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "user-1", "email": "dev@example.com"}`))
	}))
	defer server.Close()

	provider := NewTokenProvider(server.URL, "anon-key", "token-123")

	session, err := provider.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, "user-1", session.UserID)
	require.Equal(t, "dev@example.com", session.Email)
	require.Equal(t, "token-123", session.AccessToken)

	_, err = provider.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestTokenProviderNotifiesOnTokenChange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer token-old":
			_, _ = w.Write([]byte(`{"id": "user-old", "email": "old@example.com"}`))
		default:
			_, _ = w.Write([]byte(`{"id": "user-new", "email": "new@example.com"}`))
		}
	}))
	defer server.Close()

	provider := NewTokenProvider(server.URL, "anon-key", "token-old")

	notified := 0
	cancel := provider.Subscribe(func(session *Session) {
		notified++
		require.Nil(t, session)
	})

	session, err := provider.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, "user-old", session.UserID)

	provider.SetAccessToken("token-new")
	require.Equal(t, 1, notified)

	session, err = provider.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, "user-new", session.UserID)
	require.Equal(t, "token-new", session.AccessToken)

	cancel()
	provider.SetAccessToken("token-old")
	require.Equal(t, 1, notified)
}

func TestTokenProviderRejectsInvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := NewTokenProvider(server.URL, "anon-key", "bad-token")

	_, err := provider.Current(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 401")
}
