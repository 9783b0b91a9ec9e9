package services

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

const oauthStateCookie = "oauth_state"

type OAuthEndpoints struct {
	provider     OAuthProvider
	oauthService *OAuthService
	authService  *AuthService
	frontendURL  string
}

// NewOAuthEndpoints accepts a nil provider when Google login is not configured
func NewOAuthEndpoints(provider OAuthProvider, oauthService *OAuthService, authService *AuthService, frontendURL string) *OAuthEndpoints {
	return &OAuthEndpoints{
		provider:     provider,
		oauthService: oauthService,
		authService:  authService,
		frontendURL:  frontendURL,
	}
}

func (e *OAuthEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/oauth/google", func(r chi.Router) {
		r.Get("/login", e.LoginHandler)
		r.Get("/callback", e.CallbackHandler)
		r.Get("/logout", e.LogoutHandler)
	})
}

func (e *OAuthEndpoints) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if e.provider == nil {
		writeServiceError(w, ErrOAuthNotConfigured, "OAuth login failed")
		return
	}

	state, err := generateSecureToken(16)
	if err != nil {
		writeServiceError(w, err, "OAuth login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   e.authService.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
	http.Redirect(w, r, e.provider.AuthCodeURL(state), http.StatusFound)
}

func (e *OAuthEndpoints) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if e.provider == nil {
		writeServiceError(w, ErrOAuthNotConfigured, "OAuth login failed")
		return
	}

	state := r.URL.Query().Get("state")
	expected := GetTokenFromCookie(r, oauthStateCookie)
	if state == "" || expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		writeServiceError(w, ErrInvalidOAuthState, "OAuth login failed")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeServiceError(w, ErrMissingAuthCode, "OAuth login failed")
		return
	}

	profile, err := e.provider.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("Google OAuth exchange failed", "error", err)
		writeServiceError(w, ErrOAuthExchange, "OAuth login failed")
		return
	}

	user, err := e.oauthService.UpsertUser(r.Context(), profile)
	if err != nil {
		writeServiceError(w, err, "OAuth login failed")
		return
	}

	authResponse, err := e.authService.IssueTokens(r.Context(), user)
	if err != nil {
		writeServiceError(w, err, "OAuth login failed")
		return
	}

	e.authService.SetAuthCookies(w, authResponse.AccessToken, authResponse.RefreshToken)
	e.authService.setCookie(w, oauthStateCookie, "", -1)

	slog.Info("User logged in with Google", "user_id", user.ID)
	redirect := e.frontendURL + "/oauth/callback?token=" + url.QueryEscape(authResponse.AccessToken)
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (e *OAuthEndpoints) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	e.authService.ClearAuthCookies(w)
	writeMessage(w, http.StatusOK, "Successfully logged out")
}
