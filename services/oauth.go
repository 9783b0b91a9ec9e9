package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/krshsl/mumble/backend/models"
	"github.com/krshsl/mumble/backend/repository"
	"golang.org/x/oauth2"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// OAuthProfile is the identity returned by the provider's userinfo endpoint
type OAuthProfile struct {
	ID            string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// OAuthProvider hides the authorization-code round trip
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*OAuthProfile, error)
}

type GoogleOAuthProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogleOAuthProvider(cfg GoogleOAuthConfig) *GoogleOAuthProvider {
	return &GoogleOAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  googleAuthURL,
				TokenURL: googleTokenURL,
			},
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (g *GoogleOAuthProvider) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades the code for a token and fetches the user's profile with it
func (g *GoogleOAuthProvider) Exchange(ctx context.Context, code string) (*OAuthProfile, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}

	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("userinfo error: %d - %s", resp.StatusCode, string(body))
	}

	var profile OAuthProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	return &profile, nil
}

// OAuthService links provider identities to local accounts
type OAuthService struct {
	repo *repository.GORMRepository
}

func NewOAuthService(repo *repository.GORMRepository) *OAuthService {
	return &OAuthService{repo: repo}
}

// UpsertUser finds the account by OAuth id or email, linking or creating it as needed
func (s *OAuthService) UpsertUser(ctx context.Context, profile *OAuthProfile) (*models.User, error) {
	if profile.Email == "" || !profile.EmailVerified || profile.ID == "" {
		return nil, ErrOAuthEmailUnverified
	}

	user, err := s.repo.GetUserByOAuthIDOrEmail(ctx, profile.ID, profile.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up oauth user: %w", err)
	}

	if user == nil {
		username, err := s.uniqueUsername(ctx, profile)
		if err != nil {
			return nil, err
		}
		oauthID := profile.ID
		user = &models.User{
			Username:      username,
			Email:         profile.Email,
			IsActive:      true,
			OAuthProvider: models.OAuthProviderGoogle,
			OAuthID:       &oauthID,
			Picture:       profile.Picture,
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create oauth user: %w", err)
		}
		slog.Info("OAuth user created", "user_id", user.ID, "provider", models.OAuthProviderGoogle)
		return user, nil
	}

	if user.OAuthID == nil {
		oauthID := profile.ID
		user.OAuthID = &oauthID
		user.OAuthProvider = models.OAuthProviderGoogle
	}
	if profile.Picture != "" {
		user.Picture = profile.Picture
	}
	if user.Username == "" {
		username, err := s.uniqueUsername(ctx, profile)
		if err != nil {
			return nil, err
		}
		user.Username = username
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update oauth user: %w", err)
	}
	return user, nil
}

func (s *OAuthService) uniqueUsername(ctx context.Context, profile *OAuthProfile) (string, error) {
	username := BaseOAuthUsername(profile.Name, profile.Email)

	existing, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		suffix := profile.ID
		if len(suffix) > 6 {
			suffix = suffix[:6]
		}
		username = username + "_" + suffix
	}
	return truncate(username, 80), nil
}

// BaseOAuthUsername derives a username from the display name, or the email local part without one
func BaseOAuthUsername(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return strings.ReplaceAll(strings.ToLower(name), " ", "_")
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
