package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGitHub serves the two endpoints the flow touches: the token endpoint
// and the /user API.
func fakeGitHub(t *testing.T, user map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"bad_verification_code"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gh-token", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(user)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGitHubProvider(srv *httptest.Server) *GitHubProvider {
	return newGitHubProvider("client-id", "client-secret", "http://localhost/callback", oauth2.Endpoint{
		AuthURL:   srv.URL + "/login/oauth/authorize",
		TokenURL:  srv.URL + "/login/oauth/access_token",
		AuthStyle: oauth2.AuthStyleInParams,
	}, srv.URL)
}

func TestGitHubProvider_AuthURL(t *testing.T) {
	p := NewGitHubProvider("client-id", "secret", "http://localhost:8080/api/auth/github/callback")

	u, err := url.Parse(p.AuthURL("state-123"))
	require.NoError(t, err)
	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
	assert.Equal(t, "http://localhost:8080/api/auth/github/callback", u.Query().Get("redirect_uri"))
}

func TestGitHubProvider_Exchange(t *testing.T) {
	srv := fakeGitHub(t, map[string]any{"id": 42, "login": "octocat", "email": "octo@example.com"})
	p := newTestGitHubProvider(srv)

	user, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, "octo@example.com", user.Email)
	assert.Equal(t, "42+octocat@users.noreply.github.com", user.NoReplyEmail())
}

func TestGitHubProvider_ExchangeFailures(t *testing.T) {
	t.Run("bad code", func(t *testing.T) {
		p := newTestGitHubProvider(fakeGitHub(t, map[string]any{"id": 42, "login": "octocat"}))
		_, err := p.Exchange(context.Background(), "bad-code")
		assert.Error(t, err)
	})

	t.Run("incomplete profile", func(t *testing.T) {
		p := newTestGitHubProvider(fakeGitHub(t, map[string]any{"id": 0}))
		_, err := p.Exchange(context.Background(), "good-code")
		assert.Error(t, err)
	})
}

func TestNewState_Unique(t *testing.T) {
	assert.NotEqual(t, NewState(), NewState())
}
