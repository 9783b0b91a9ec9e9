package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/krshsl/mumble/backend/models"
	"gorm.io/gorm"
)

type JournalRepository struct {
	db *gorm.DB
}

// JournalFilter selects one page of a user's journals. Zero From/To leave that side open.
type JournalFilter struct {
	UserID  string
	Page    int
	PerPage int
	From    time.Time
	To      time.Time // exclusive
}

func NewJournalRepository(db *gorm.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// CreateJournal saves a journal with its moods and topics in one transaction
func (r *JournalRepository) CreateJournal(ctx context.Context, journal *models.Journal) error {
	if err := r.db.WithContext(ctx).Create(journal).Error; err != nil {
		slog.Error("Failed to save journal", "error", err, "user_id", journal.UserID)
		return fmt.Errorf("failed to save journal: %w", err)
	}

	slog.Info("Journal saved", "journal_id", journal.ID, "user_id", journal.UserID,
		"moods", len(journal.Moods), "topics", len(journal.Topics))
	return nil
}

// ListJournals returns the requested page newest first together with the total match count
func (r *JournalRepository) ListJournals(ctx context.Context, filter JournalFilter) ([]models.Journal, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Journal{}).Where("user_id = ?", filter.UserID)
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at < ?", filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		slog.Error("Failed to count journals", "error", err, "user_id", filter.UserID)
		return nil, 0, fmt.Errorf("failed to count journals: %w", err)
	}

	journals := []models.Journal{}
	offset := (filter.Page - 1) * filter.PerPage
	if int64(offset) >= total {
		return journals, total, nil
	}

	err := query.
		Preload("Moods").
		Preload("Topics").
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.PerPage).
		Find(&journals).Error
	if err != nil {
		slog.Error("Failed to list journals", "error", err, "user_id", filter.UserID)
		return nil, 0, fmt.Errorf("failed to list journals: %w", err)
	}

	return journals, total, nil
}

// GetJournal returns the journal only when it belongs to userID
func (r *JournalRepository) GetJournal(ctx context.Context, userID, journalID string) (*models.Journal, error) {
	var journal models.Journal
	err := r.db.WithContext(ctx).
		Preload("Moods").
		Preload("Topics").
		Where("id = ? AND user_id = ?", journalID, userID).
		First(&journal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get journal", "error", err, "journal_id", journalID, "user_id", userID)
		return nil, fmt.Errorf("failed to get journal: %w", err)
	}
	return &journal, nil
}

// DeleteJournal removes the journal rows; the caller owns the audio file
func (r *JournalRepository) DeleteJournal(ctx context.Context, journalID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("journal_id = ?", journalID).Delete(&models.JournalMood{}).Error; err != nil {
			return err
		}
		if err := tx.Where("journal_id = ?", journalID).Delete(&models.JournalTopic{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", journalID).Delete(&models.Journal{}).Error
	})
	if err != nil {
		slog.Error("Failed to delete journal", "error", err, "journal_id", journalID)
		return fmt.Errorf("failed to delete journal: %w", err)
	}

	slog.Info("Journal deleted", "journal_id", journalID)
	return nil
}

// ListJournalAudioPaths returns the stored audio paths of every journal owned by userID
func (r *JournalRepository) ListJournalAudioPaths(ctx context.Context, userID string) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).
		Model(&models.Journal{}).
		Where("user_id = ? AND audio_path <> ''", userID).
		Pluck("audio_path", &paths).Error
	if err != nil {
		slog.Error("Failed to list audio paths", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list audio paths: %w", err)
	}
	return paths, nil
}

// AudioPathInUse reports whether any journal references the stored file
func (r *JournalRepository) AudioPathInUse(ctx context.Context, path string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Journal{}).Where("audio_path = ?", path).Count(&count).Error; err != nil {
		slog.Error("Failed to check audio path", "error", err, "path", path)
		return false, fmt.Errorf("failed to check audio path: %w", err)
	}
	return count > 0, nil
}

// CountJournals returns how many journals userID owns
func (r *JournalRepository) CountJournals(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Journal{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		slog.Error("Failed to count journals", "error", err, "user_id", userID)
		return 0, fmt.Errorf("failed to count journals: %w", err)
	}
	return count, nil
}
