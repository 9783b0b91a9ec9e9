package services

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/krshsl/mumble/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oauthCallback(env *testEnv, state, cookieState, code string) *httptest.ResponseRecorder {
	query := url.Values{}
	if state != "" {
		query.Set("state", state)
	}
	if code != "" {
		query.Set("code", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/oauth/google/callback?"+query.Encode(), nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: cookieState})
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestOAuthLogin_Redirects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/oauth/google/login", nil, "")
	require.Equal(t, http.StatusFound, rec.Code)

	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == oauthStateCookie {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Equal(t, "https://accounts.example.com/auth?state="+state, rec.Header().Get("Location"))
}

func TestOAuthLogin_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.server.oauthEndpoints.provider = nil

	rec := env.do(t, http.MethodGet, "/api/oauth/google/login", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Google OAuth is not configured", errorMessage(t, rec))
}

func TestOAuthCallback_CreatesUser(t *testing.T) {
	env := newTestEnv(t)
	env.oauth.profile = &OAuthProfile{
		ID:            "1234567890",
		Email:         "grace@example.com",
		EmailVerified: true,
		Name:          "Grace Hopper",
		Picture:       "https://example.com/grace.png",
	}

	rec := oauthCallback(env, "abc", "abc", "code-1")
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", location.Host)
	assert.Equal(t, "/oauth/callback", location.Path)
	token := location.Query().Get("token")
	require.NotEmpty(t, token)

	rec = env.do(t, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "grace_hopper", body["username"])
	assert.Equal(t, models.OAuthProviderGoogle, body["oauth_provider"])
	assert.Equal(t, "https://example.com/grace.png", body["picture"])
}

func TestOAuthCallback_LinksExistingAccount(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	env.oauth.profile = &OAuthProfile{ID: "g-alice", Email: "alice@example.com", EmailVerified: true, Name: "Alice A"}

	rec := oauthCallback(env, "s", "s", "code")
	require.Equal(t, http.StatusFound, rec.Code)

	user, err := env.repo.GetUserByEmail(t.Context(), "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, user.OAuthID)
	assert.Equal(t, "g-alice", *user.OAuthID)
	assert.Equal(t, "alice", user.Username, "existing username is kept")
	assert.True(t, user.HasPassword(), "password login still works")

	users, err := env.repo.ListUsers(t.Context())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestOAuthCallback_Rejections(t *testing.T) {
	env := newTestEnv(t)
	env.oauth.profile = &OAuthProfile{ID: "1", Email: "x@example.com", EmailVerified: true}

	tests := []struct {
		name        string
		state       string
		cookieState string
		code        string
		status      int
		expected    string
	}{
		{"missing state cookie", "abc", "", "code", http.StatusBadRequest, "Invalid state parameter"},
		{"state mismatch", "abc", "xyz", "code", http.StatusBadRequest, "Invalid state parameter"},
		{"missing code", "abc", "abc", "", http.StatusBadRequest, "No authorization code provided"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := oauthCallback(env, tt.state, tt.cookieState, tt.code)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.expected, errorMessage(t, rec))
		})
	}
}

func TestOAuthCallback_ExchangeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.oauth.err = errProviderDown

	rec := oauthCallback(env, "abc", "abc", "code")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Failed to authenticate with Google", errorMessage(t, rec))
}

func TestOAuthCallback_UnverifiedEmail(t *testing.T) {
	env := newTestEnv(t)
	env.oauth.profile = &OAuthProfile{ID: "1", Email: "x@example.com", EmailVerified: false}

	rec := oauthCallback(env, "abc", "abc", "code")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User email not available or not verified by Google", errorMessage(t, rec))
}

func TestOAuthLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/oauth/google/logout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully logged out", decodeBody(t, rec)["message"])
}

func TestUpsertUser_UsernameCollision(t *testing.T) {
	env := newTestEnv(t)
	service := NewOAuthService(env.repo)
	env.register(t, "grace_hopper")

	user, err := service.UpsertUser(t.Context(), &OAuthProfile{
		ID: "9876543210", Email: "grace@example.com", EmailVerified: true, Name: "Grace Hopper",
	})
	require.NoError(t, err)
	assert.Equal(t, "grace_hopper_987654", user.Username)
	assert.False(t, user.HasPassword())

	again, err := service.UpsertUser(t.Context(), &OAuthProfile{
		ID: "9876543210", Email: "grace@example.com", EmailVerified: true, Name: "Grace Hopper",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID, "second login finds the linked account")
}

func TestBaseOAuthUsername(t *testing.T) {
	assert.Equal(t, "ada_lovelace", BaseOAuthUsername("Ada Lovelace", "ada@example.com"))
	assert.Equal(t, "ada", BaseOAuthUsername("  ", "ada@example.com"))
	assert.True(t, strings.HasPrefix(BaseOAuthUsername("", "x.y@example.com"), "x.y"))
}

func TestGoogleOAuthProvider_AuthCodeURL(t *testing.T) {
	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "client",
		RedirectURL: "http://localhost:8080/api/oauth/google/callback",
	})

	authURL, err := url.Parse(provider.AuthCodeURL("state-1"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", authURL.Host)

	query := authURL.Query()
	assert.Equal(t, "state-1", query.Get("state"))
	assert.Equal(t, "client", query.Get("client_id"))
	assert.Equal(t, "offline", query.Get("access_type"))
	assert.Equal(t, "consent", query.Get("prompt"))
	assert.Contains(t, query.Get("scope"), "email")
}
