package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/krshsl/mumble/backend/models"
	"github.com/krshsl/mumble/backend/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

type AuthService struct {
	repo          *repository.GORMRepository
	jwtSecret     []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	secureCookies bool
}

// AccessClaims is the JWT payload; the subject is the user id
type AccessClaims struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
}

func NewAuthService(repo *repository.GORMRepository, cfg JWTConfig, secureCookies bool) *AuthService {
	accessExpiry := cfg.AccessExpiry
	if accessExpiry <= 0 {
		accessExpiry = time.Hour
	}
	refreshExpiry := cfg.RefreshExpiry
	if refreshExpiry <= 0 {
		refreshExpiry = 7 * 24 * time.Hour
	}

	return &AuthService{
		repo:          repo,
		jwtSecret:     []byte(cfg.Secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		secureCookies: secureCookies,
	}
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(size int) (string, error) {
	bytes := make([]byte, size)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashToken creates a SHA256 hash of the token for secure storage
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the user's hash; OAuth-only users never match
func CheckPassword(user *models.User, password string) bool {
	if !user.HasPassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

// Register creates a password account and signs it in
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}
	existing, err = s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashedPassword,
		IsActive: true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("User registered", "user_id", user.ID, "email", user.Email)
	return s.IssueTokens(ctx, user)
}

// Login authenticates user and creates tokens
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive || !CheckPassword(user, password) {
		return nil, ErrInvalidCredentials
	}

	slog.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return s.IssueTokens(ctx, user)
}

// IssueTokens signs an access token and stores a fresh refresh token for user
func (s *AuthService) IssueTokens(ctx context.Context, user *models.User) (*AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		Token:     hashToken(refreshToken),
		ExpiresAt: time.Now().UTC().Add(s.refreshExpiry),
	}
	if err := s.repo.CreateRefreshToken(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh generates a new access token using refresh token
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	record, err := s.repo.GetRefreshToken(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if record == nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.repo.GetUserByID(ctx, record.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidRefreshToken
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	slog.Info("Access token refreshed", "user_id", user.ID)
	return &AuthResponse{User: user, AccessToken: accessToken}, nil
}

// Logout invalidates all refresh tokens for the user
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.repo.DeleteUserRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user tokens: %w", err)
	}

	slog.Info("User logged out", "user_id", userID)
	return nil
}

// ParseAccessToken verifies signature and expiry and returns the claims
func (s *AuthService) ParseAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	parsedToken, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsedToken.Valid || claims.Subject == "" {
		return nil, ErrUnauthorized
	}

	return claims, nil
}

// CurrentUser loads the user named by the request's access token
func (s *AuthService) CurrentUser(ctx context.Context) (*models.User, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	user, err := s.repo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// SetAuthCookies sets HTTP-only cookies; empty values are skipped
func (s *AuthService) SetAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	if accessToken != "" {
		s.setCookie(w, accessTokenCookie, accessToken, int(s.accessExpiry.Seconds()))
	}
	if refreshToken != "" {
		s.setCookie(w, refreshTokenCookie, refreshToken, int(s.refreshExpiry.Seconds()))
	}
}

// ClearAuthCookies clears all authentication cookies
func (s *AuthService) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		s.setCookie(w, name, "", -1)
	}
}

func (s *AuthService) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// GetTokenFromCookie extracts token from request cookies
func GetTokenFromCookie(r *http.Request, cookieName string) string {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// WithClaims stores verified claims on the context
func WithClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*AccessClaims)
	return claims, ok && claims != nil
}

// UserIDFromContext returns the authenticated user's id
func UserIDFromContext(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.Subject
	}
	return ""
}

// Middleware accepts a bearer header or the access cookie, refreshing from the refresh cookie when both fail
func (s *AuthService) Middleware(next http.Handler) http.Handler {
	return s.authenticate(next, false)
}

// WebSocketMiddleware additionally accepts ?token= since browsers cannot set headers on upgrades
func (s *AuthService) WebSocketMiddleware(next http.Handler) http.Handler {
	return s.authenticate(next, true)
}

func (s *AuthService) authenticate(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		candidates := []string{bearerToken(r), GetTokenFromCookie(r, accessTokenCookie)}
		if allowQuery {
			candidates = append(candidates, r.URL.Query().Get("token"))
		}

		for _, token := range candidates {
			if token == "" {
				continue
			}
			claims, err := s.ParseAccessToken(token)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
				return
			}
			slog.Debug("Rejected access token", "error", err)
		}

		// Try to refresh using refresh token
		if refreshToken := GetTokenFromCookie(r, refreshTokenCookie); refreshToken != "" {
			authResponse, err := s.Refresh(r.Context(), refreshToken)
			if err == nil {
				s.SetAuthCookies(w, authResponse.AccessToken, "")
				claims, err := s.ParseAccessToken(authResponse.AccessToken)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
					return
				}
			} else if !errors.Is(err, ErrInvalidRefreshToken) {
				slog.Error("Refresh during authentication failed", "error", err)
			}
		}

		writeServiceError(w, ErrUnauthorized, "Authentication failed")
	})
}
