package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/krshsl/mumble/backend/models"
	"github.com/krshsl/mumble/backend/repository"
)

// UserService manages profiles and account removal
type UserService struct {
	repo     *repository.GORMRepository
	journals *repository.JournalRepository
	store    *AudioStore
}

type UpdateProfileRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func NewUserService(repo *repository.GORMRepository, journals *repository.JournalRepository, store *AudioStore) *UserService {
	return &UserService{repo: repo, journals: journals, store: store}
}

// UpdateProfile applies the provided fields; the password changes only when both password fields are set
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, req UpdateProfileRequest) (*models.User, error) {
	if username := strings.TrimSpace(req.Username); username != "" && username != user.Username {
		existing, err := s.repo.GetUserByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if existing != nil {
			return nil, ErrUsernameTaken
		}
		user.Username = username
	}

	if email := strings.TrimSpace(req.Email); email != "" && email != user.Email {
		if err := ValidateEmail(email); err != nil {
			return nil, err
		}
		existing, err := s.repo.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if existing != nil {
			return nil, ErrEmailTaken
		}
		user.Email = email
	}

	if req.CurrentPassword != "" && req.NewPassword != "" {
		if !CheckPassword(user, req.CurrentPassword) {
			return nil, ErrWrongCurrentPassword
		}
		if err := ValidatePassword(req.NewPassword); err != nil {
			return nil, err
		}
		hashed, err := HashPassword(req.NewPassword)
		if err != nil {
			return nil, err
		}
		user.Password = hashed
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// DeleteAccount removes the user, their journals and stored audio; OAuth-only accounts need no password
func (s *UserService) DeleteAccount(ctx context.Context, user *models.User, password string) error {
	if user.HasPassword() {
		if password == "" {
			return ErrPasswordRequired
		}
		if !CheckPassword(user, password) {
			return ErrIncorrectPassword
		}
	}

	paths, err := s.journals.ListJournalAudioPaths(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	for _, path := range paths {
		if err := s.store.Remove(path); err != nil {
			slog.Warn("Account deleted but audio file remains", "user_id", user.ID, "path", path)
		}
	}
	return nil
}

// ListUsers is restricted to admins
func (s *UserService) ListUsers(ctx context.Context, requester *models.User) ([]models.UserSummary, error) {
	if !requester.IsAdmin {
		return nil, ErrAdminRequired
	}
	return s.repo.ListUsers(ctx)
}
