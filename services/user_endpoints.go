package services

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type UserEndpoints struct {
	userService *UserService
	authService *AuthService
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

func NewUserEndpoints(userService *UserService, authService *AuthService) *UserEndpoints {
	return &UserEndpoints{
		userService: userService,
		authService: authService,
	}
}

func (e *UserEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Use(e.authService.Middleware)
		r.Get("/", e.ListUsersHandler)
		r.Get("/me", e.GetProfileHandler)
		r.Put("/me", e.UpdateProfileHandler)
		r.Delete("/me", e.DeleteAccountHandler)
	})
}

func (e *UserEndpoints) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, err := e.authService.CurrentUser(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (e *UserEndpoints) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, err := e.authService.CurrentUser(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to update profile")
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err, "Failed to update profile")
		return
	}

	updated, err := e.userService.UpdateProfile(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, err, "Failed to update profile")
		return
	}

	slog.Info("Profile updated", "user_id", updated.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"user":    updated,
	})
}

func (e *UserEndpoints) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	user, err := e.authService.CurrentUser(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to delete account")
		return
	}

	var req DeleteAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err, "Failed to delete account")
		return
	}

	if err := e.userService.DeleteAccount(r.Context(), user, req.Password); err != nil {
		writeServiceError(w, err, "Failed to delete account")
		return
	}

	e.authService.ClearAuthCookies(w)
	writeMessage(w, http.StatusOK, "Account deleted successfully")
}

func (e *UserEndpoints) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	user, err := e.authService.CurrentUser(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to list users")
		return
	}

	users, err := e.userService.ListUsers(r.Context(), user)
	if err != nil {
		writeServiceError(w, err, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}
