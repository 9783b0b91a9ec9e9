package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krshsl/mumble/backend/models"
	"github.com/krshsl/mumble/backend/repository"
	ws "github.com/krshsl/mumble/backend/websocket"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
	dateOnlyLayout = "2006-01-02"
)

// JournalNotifier receives journal lifecycle events for a user's live connections
type JournalNotifier interface {
	NotifyUser(userID string, event ws.Event)
}

// JournalProcessor turns recordings into journals: store, transcribe, analyse, polish, persist
type JournalProcessor struct {
	journals *repository.JournalRepository
	store    *AudioStore
	analysis *AnalysisService
	notifier JournalNotifier
}

// JournalQuery is a parsed listing request
type JournalQuery struct {
	Page    int
	PerPage int
	From    time.Time
	To      time.Time
}

func NewJournalProcessor(
	journals *repository.JournalRepository,
	store *AudioStore,
	analysis *AnalysisService,
	notifier JournalNotifier,
) *JournalProcessor {
	return &JournalProcessor{
		journals: journals,
		store:    store,
		analysis: analysis,
		notifier: notifier,
	}
}

// CreateFromAudio runs the whole pipeline; the stored file is removed when a later step fails
func (p *JournalProcessor) CreateFromAudio(ctx context.Context, userID, title, filename string, audioData []byte) (*models.Journal, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	path, mimeType, err := p.store.Save(filename, audioData)
	if err != nil {
		return nil, err
	}

	journal, err := p.buildJournal(ctx, userID, title, path, mimeType, audioData)
	if err == nil {
		err = p.journals.CreateJournal(ctx, journal)
	}
	if err != nil {
		p.store.Remove(path)
		slog.Error("Journal pipeline failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to create journal entry: %w", err)
	}

	slog.Info("Journal created", "journal_id", journal.ID, "user_id", userID, "transcript_length", len(journal.RawText))
	p.notify(userID, ws.Event{Type: ws.EventJournalCreated, Journal: journal})
	return journal, nil
}

func (p *JournalProcessor) buildJournal(ctx context.Context, userID, title, path, mimeType string, audioData []byte) (*models.Journal, error) {
	transcript, err := p.analysis.Transcribe(ctx, audioData, mimeType)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	moods, topics := p.analysis.Analyze(ctx, transcript)
	content := p.analysis.Polish(ctx, transcript)

	journal := &models.Journal{
		UserID:    userID,
		Title:     truncate(title, 200),
		Content:   content,
		RawText:   transcript,
		AudioPath: path,
		AudioMIME: mimeType,
		Moods:     make([]models.JournalMood, 0, len(moods)),
		Topics:    make([]models.JournalTopic, 0, len(topics)),
	}
	for _, m := range moods {
		confidence := m.Confidence
		journal.Moods = append(journal.Moods, models.JournalMood{Mood: m.Name, Confidence: &confidence})
	}
	for _, t := range topics {
		relevance := t.Relevance
		journal.Topics = append(journal.Topics, models.JournalTopic{Topic: t.Name, Relevance: &relevance})
	}
	return journal, nil
}

func (p *JournalProcessor) List(ctx context.Context, userID string, q JournalQuery) (*models.JournalPage, error) {
	journals, total, err := p.journals.ListJournals(ctx, repository.JournalFilter{
		UserID:  userID,
		Page:    q.Page,
		PerPage: q.PerPage,
		From:    q.From,
		To:      q.To,
	})
	if err != nil {
		return nil, err
	}

	return &models.JournalPage{
		Journals:    journals,
		Total:       total,
		Pages:       int(math.Ceil(float64(total) / float64(q.PerPage))),
		CurrentPage: q.Page,
	}, nil
}

func (p *JournalProcessor) Get(ctx context.Context, userID, journalID string) (*models.Journal, error) {
	if _, err := uuid.Parse(journalID); err != nil {
		return nil, ErrJournalNotFound
	}

	journal, err := p.journals.GetJournal(ctx, userID, journalID)
	if err != nil {
		return nil, err
	}
	if journal == nil {
		return nil, ErrJournalNotFound
	}
	return journal, nil
}

// Delete removes the journal, its children and its audio file
func (p *JournalProcessor) Delete(ctx context.Context, userID, journalID string) error {
	journal, err := p.Get(ctx, userID, journalID)
	if err != nil {
		return err
	}

	if err := p.journals.DeleteJournal(ctx, journal.ID); err != nil {
		return err
	}
	if err := p.store.Remove(journal.AudioPath); err != nil {
		slog.Warn("Journal deleted but audio file remains", "journal_id", journal.ID, "path", journal.AudioPath)
	}

	p.notify(userID, ws.Event{Type: ws.EventJournalDeleted, JournalID: journal.ID})
	return nil
}

func (p *JournalProcessor) notify(userID string, event ws.Event) {
	if p.notifier != nil {
		p.notifier.NotifyUser(userID, event)
	}
}

// ParseJournalQuery normalises paging and date filters from query values
func ParseJournalQuery(page, perPage, from, to string) (JournalQuery, error) {
	q := JournalQuery{
		Page:    parseIntDefault(page, 1),
		PerPage: parseIntDefault(perPage, defaultPerPage),
	}
	if q.Page < 1 {
		q.Page = 1
	}
	q.PerPage = min(max(q.PerPage, 1), maxPerPage)

	var err error
	if from != "" {
		if q.From, _, err = parseDateFilter(from); err != nil {
			return q, ErrInvalidDateFilter
		}
	}
	if to != "" {
		var dateOnly bool
		if q.To, dateOnly, err = parseDateFilter(to); err != nil {
			return q, ErrInvalidDateFilter
		}
		// the repository bound is exclusive
		if dateOnly {
			q.To = q.To.AddDate(0, 0, 1)
		} else {
			q.To = q.To.Add(time.Nanosecond)
		}
	}
	return q, nil
}

func parseDateFilter(value string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
