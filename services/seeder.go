package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krshsl/mumble/backend/models"
	"github.com/krshsl/mumble/backend/repository"
)

const (
	DemoEmail    = "demo@example.com"
	DemoUsername = "demo"
	DemoPassword = "Password123!"
)

const sampleJournalText = "Today was a long day at the office. The project meeting ran late but I felt glad " +
	"that the team finally agreed on a plan. I called mom on the way home and went for a short run, " +
	"trying to keep up with the exercise routine the doctor suggested."

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	repo     *repository.GORMRepository
	journals *repository.JournalRepository
}

func NewDatabaseSeeder(repo *repository.GORMRepository, journals *repository.JournalRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo, journals: journals}
}

// SeedDatabase creates the demo account and a sample journal (idempotent)
func (s *DatabaseSeeder) SeedDatabase(ctx context.Context) error {
	user, err := s.seedDemoUser(ctx)
	if err != nil {
		return err
	}

	count, err := s.journals.CountJournals(ctx, user.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		slog.Info("Database seeding already completed, skipping")
		return nil
	}

	moods, topics := KeywordAnalysis(sampleJournalText)
	journal := &models.Journal{
		UserID:  user.ID,
		Title:   "First entry",
		Content: sampleJournalText,
		RawText: sampleJournalText,
	}
	for _, m := range moods {
		confidence := m.Confidence
		journal.Moods = append(journal.Moods, models.JournalMood{Mood: m.Name, Confidence: &confidence})
	}
	for _, t := range topics {
		relevance := t.Relevance
		journal.Topics = append(journal.Topics, models.JournalTopic{Topic: t.Name, Relevance: &relevance})
	}

	if err := s.journals.CreateJournal(ctx, journal); err != nil {
		return fmt.Errorf("failed to seed journal: %w", err)
	}

	slog.Info("Database seeding completed", "user_id", user.ID, "journal_id", journal.ID)
	return nil
}

func (s *DatabaseSeeder) seedDemoUser(ctx context.Context) (*models.User, error) {
	existing, err := s.repo.GetUserByEmail(ctx, DemoEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to check demo user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	hashedPassword, err := HashPassword(DemoPassword)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: DemoUsername,
		Email:    DemoEmail,
		Password: hashedPassword,
		IsActive: true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to seed demo user: %w", err)
	}
	return user, nil
}
