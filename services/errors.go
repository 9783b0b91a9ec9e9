package services

import (
	"errors"
	"net/http"
)

var (
	ErrMissingFields          = errors.New("missing required fields")
	ErrMissingCredentials     = errors.New("missing email or password")
	ErrInvalidEmail           = errors.New("invalid email format")
	ErrUsernameTaken          = errors.New("username already exists")
	ErrEmailTaken             = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")
	ErrUnauthorized           = errors.New("jwt token is missing or invalid")
	ErrUserNotFound           = errors.New("user not found")
	ErrAdminRequired          = errors.New("admin access required")
	ErrWrongCurrentPassword   = errors.New("current password is incorrect")
	ErrPasswordRequired       = errors.New("password is required")
	ErrIncorrectPassword      = errors.New("incorrect password")
	ErrJournalNotFound        = errors.New("journal not found")
	ErrNoAudioFile            = errors.New("no audio file provided")
	ErrTitleRequired          = errors.New("title is required")
	ErrNoSelectedFile         = errors.New("no selected file")
	ErrUnsupportedAudio       = errors.New("file type not allowed")
	ErrAudioTooLarge          = errors.New("audio file too large")
	ErrInvalidDateFilter      = errors.New("invalid date filter")
	ErrOAuthNotConfigured     = errors.New("google oauth is not configured")
	ErrInvalidOAuthState      = errors.New("invalid state parameter")
	ErrMissingAuthCode        = errors.New("no authorization code provided")
	ErrOAuthExchange          = errors.New("failed to authenticate with google")
	ErrOAuthEmailUnverified   = errors.New("user email not available or not verified")
	ErrNarrationNotConfigured = errors.New("narration is not configured")
	ErrInvalidRequestBody     = errors.New("invalid request body")
)

// ValidationError carries a user-facing 400 message, e.g. a password rule
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type errorMapping struct {
	status  int
	message string
}

var errorResponses = map[error]errorMapping{
	ErrMissingFields:          {http.StatusBadRequest, "Missing required fields"},
	ErrMissingCredentials:     {http.StatusBadRequest, "Missing email or password"},
	ErrInvalidEmail:           {http.StatusBadRequest, "Invalid email format"},
	ErrUsernameTaken:          {http.StatusConflict, "Username already exists"},
	ErrEmailTaken:             {http.StatusConflict, "Email already registered"},
	ErrInvalidCredentials:     {http.StatusUnauthorized, "Invalid email or password"},
	ErrInvalidRefreshToken:    {http.StatusUnauthorized, "Invalid refresh token"},
	ErrUnauthorized:           {http.StatusUnauthorized, "JWT token is missing or invalid"},
	ErrUserNotFound:           {http.StatusNotFound, "User not found"},
	ErrAdminRequired:          {http.StatusForbidden, "Admin access required"},
	ErrWrongCurrentPassword:   {http.StatusBadRequest, "Current password is incorrect"},
	ErrPasswordRequired:       {http.StatusBadRequest, "Password is required"},
	ErrIncorrectPassword:      {http.StatusUnauthorized, "Incorrect password"},
	ErrJournalNotFound:        {http.StatusNotFound, "Journal not found"},
	ErrNoAudioFile:            {http.StatusBadRequest, "No audio file provided"},
	ErrTitleRequired:          {http.StatusBadRequest, "Title is required"},
	ErrNoSelectedFile:         {http.StatusBadRequest, "No selected file"},
	ErrUnsupportedAudio:       {http.StatusBadRequest, "File type not allowed"},
	ErrAudioTooLarge:          {http.StatusRequestEntityTooLarge, "Audio file too large"},
	ErrInvalidDateFilter:      {http.StatusBadRequest, "Invalid date filter"},
	ErrOAuthNotConfigured:     {http.StatusServiceUnavailable, "Google OAuth is not configured"},
	ErrInvalidOAuthState:      {http.StatusBadRequest, "Invalid state parameter"},
	ErrMissingAuthCode:        {http.StatusBadRequest, "No authorization code provided"},
	ErrOAuthExchange:          {http.StatusUnauthorized, "Failed to authenticate with Google"},
	ErrOAuthEmailUnverified:   {http.StatusBadRequest, "User email not available or not verified by Google"},
	ErrNarrationNotConfigured: {http.StatusServiceUnavailable, "Narration is not configured"},
	ErrInvalidRequestBody:     {http.StatusBadRequest, "Invalid request body"},
}

// lookupError maps a service error onto its HTTP status and message
func lookupError(err error) (int, string, bool) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, validationErr.Message, true
	}
	for sentinel, resp := range errorResponses {
		if errors.Is(err, sentinel) {
			return resp.status, resp.message, true
		}
	}
	return 0, "", false
}
