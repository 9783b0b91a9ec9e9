package services

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type AuthEndpoints struct {
	authService *AuthService
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func NewAuthEndpoints(authService *AuthService) *AuthEndpoints {
	return &AuthEndpoints{
		authService: authService,
	}
}

func (e *AuthEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", e.RegisterHandler)
		r.Post("/login", e.LoginHandler)
		r.Post("/refresh", e.RefreshHandler)

		r.Group(func(r chi.Router) {
			r.Use(e.authService.Middleware)
			r.Post("/logout", e.LogoutHandler)
			r.Get("/me", e.MeHandler)
		})
	})
}

func (e *AuthEndpoints) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err, "Failed to register user")
		return
	}

	authResponse, err := e.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		slog.Warn("Registration rejected", "error", err, "email", req.Email)
		writeServiceError(w, err, "Failed to register user")
		return
	}

	e.authService.SetAuthCookies(w, authResponse.AccessToken, authResponse.RefreshToken)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":       "User registered successfully",
		"user":          authResponse.User,
		"token":         authResponse.AccessToken,
		"refresh_token": authResponse.RefreshToken,
	})
}

func (e *AuthEndpoints) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err, "Login failed")
		return
	}

	authResponse, err := e.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.Warn("Login failed", "error", err, "email", req.Email)
		writeServiceError(w, err, "Login failed")
		return
	}

	e.authService.SetAuthCookies(w, authResponse.AccessToken, authResponse.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Login successful",
		"user":          authResponse.User,
		"token":         authResponse.AccessToken,
		"refresh_token": authResponse.RefreshToken,
	})
}

// RefreshHandler takes the refresh token from the body or, failing that, the cookie
func (e *AuthEndpoints) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err, "Token refresh failed")
		return
	}
	if req.RefreshToken == "" {
		req.RefreshToken = GetTokenFromCookie(r, refreshTokenCookie)
	}

	authResponse, err := e.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err, "Token refresh failed")
		return
	}

	e.authService.SetAuthCookies(w, authResponse.AccessToken, "")
	writeJSON(w, http.StatusOK, map[string]string{"token": authResponse.AccessToken})
}

func (e *AuthEndpoints) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	if err := e.authService.Logout(r.Context(), userID); err != nil {
		writeServiceError(w, err, "Logout failed")
		return
	}

	e.authService.ClearAuthCookies(w)
	writeMessage(w, http.StatusOK, "Logout successful")
}

func (e *AuthEndpoints) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := e.authService.CurrentUser(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
