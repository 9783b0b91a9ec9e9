package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/krshsl/mumble/backend/models"
	"gorm.io/gorm"
)

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// DB exposes the underlying handle for services sharing the connection
func (r *GORMRepository) DB() *gorm.DB {
	return r.db
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(models.All()...)
}

// Ping checks database connectivity
func (r *GORMRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// User operations
func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		slog.Error("Failed to create user", "error", err)
		return err
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email)
	return nil
}

func (r *GORMRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, "email = ?", email)
}

func (r *GORMRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findUser(ctx, "username = ?", username)
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.findUser(ctx, "id = ?", id)
}

// GetUserByOAuthIDOrEmail finds the account a provider identity belongs to, preferring the OAuth link
func (r *GORMRepository) GetUserByOAuthIDOrEmail(ctx context.Context, oauthID, email string) (*models.User, error) {
	user, err := r.findUser(ctx, "oauth_id = ?", oauthID)
	if err != nil || user != nil {
		return user, err
	}
	return r.findUser(ctx, "email = ?", email)
}

func (r *GORMRepository) findUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get user", "error", err, "query", query)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) UpdateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		slog.Error("Failed to update user", "error", err, "user_id", user.ID)
		return err
	}
	slog.Info("User updated", "user_id", user.ID)
	return nil
}

// DeleteUser removes the user with their journals, moods, topics and tokens
func (r *GORMRepository) DeleteUser(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var journalIDs []string
		if err := tx.Model(&models.Journal{}).Where("user_id = ?", userID).Pluck("id", &journalIDs).Error; err != nil {
			return err
		}
		if len(journalIDs) > 0 {
			if err := tx.Where("journal_id IN ?", journalIDs).Delete(&models.JournalMood{}).Error; err != nil {
				return err
			}
			if err := tx.Where("journal_id IN ?", journalIDs).Delete(&models.JournalTopic{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", userID).Delete(&models.Journal{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", userID).Delete(&models.User{}).Error
	})
	if err != nil {
		slog.Error("Failed to delete user", "error", err, "user_id", userID)
		return err
	}
	slog.Info("User deleted", "user_id", userID)
	return nil
}

func (r *GORMRepository) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	var users []models.UserSummary
	if err := r.db.WithContext(ctx).Model(&models.User{}).Order("created_at").Find(&users).Error; err != nil {
		slog.Error("Failed to list users", "error", err)
		return nil, err
	}
	return users, nil
}

// Token operations
func (r *GORMRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		slog.Error("Failed to create refresh token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ? AND expires_at > ?", token, time.Now().UTC()).First(&refreshToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get refresh token", "error", err)
		return nil, err
	}
	return &refreshToken, nil
}

func (r *GORMRepository) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
		slog.Error("Failed to delete user refresh tokens", "error", err, "user_id", userID)
		return err
	}
	return nil
}

// DeleteExpiredRefreshTokens purges tokens past their expiry and returns how many were removed
func (r *GORMRepository) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.RefreshToken{})
	if result.Error != nil {
		slog.Error("Failed to delete expired refresh tokens", "error", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
