package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/krshsl/mumble/backend/repository"
)

const (
	DefaultJanitorInterval = 10 * time.Minute
	analysisCacheMaxIdle   = 2 * time.Hour
	orphanUploadMinAge     = time.Hour
	narrationCacheMaxAge   = 7 * 24 * time.Hour
)

// Janitor periodically purges expired tokens, stale caches and orphaned uploads
type Janitor struct {
	repo      *repository.GORMRepository
	journals  *repository.JournalRepository
	store     *AudioStore
	analysis  *AnalysisService
	narration *AudioCache
	interval  time.Duration
	now       func() time.Time
}

// JanitorReport summarises one sweep
type JanitorReport struct {
	ExpiredTokens    int64
	PrunedAnalyses   int
	OrphanedUploads  int
	PrunedNarrations int
}

func NewJanitor(
	repo *repository.GORMRepository,
	journals *repository.JournalRepository,
	store *AudioStore,
	analysis *AnalysisService,
	narration *AudioCache,
	interval time.Duration,
) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &Janitor{
		repo:      repo,
		journals:  journals,
		store:     store,
		analysis:  analysis,
		narration: narration,
		interval:  interval,
		now:       time.Now,
	}
}

// Start schedules sweeps until ctx is cancelled
func (j *Janitor) Start(ctx context.Context) {
	scheduler := gocron.NewScheduler(time.UTC)

	_, err := scheduler.Every(j.interval).Do(func() {
		j.Sweep(ctx)
	})
	if err != nil {
		slog.Error("Failed to schedule janitor", "error", err)
		return
	}

	scheduler.StartAsync()
	slog.Info("Janitor started", "interval", j.interval)

	<-ctx.Done()

	scheduler.Stop()
	slog.Info("Janitor stopped")
}

// Sweep runs every cleanup once; individual failures are logged and do not stop the others
func (j *Janitor) Sweep(ctx context.Context) JanitorReport {
	var report JanitorReport

	expired, err := j.repo.DeleteExpiredRefreshTokens(ctx, j.now().UTC())
	if err != nil {
		slog.Error("Failed to purge expired refresh tokens", "error", err)
	}
	report.ExpiredTokens = expired

	if j.analysis != nil {
		report.PrunedAnalyses = j.analysis.PruneCache(analysisCacheMaxIdle)
	}

	report.OrphanedUploads = j.removeOrphanedUploads(ctx)

	if j.narration != nil {
		pruned, err := j.narration.PruneOlderThan(narrationCacheMaxAge)
		if err != nil {
			slog.Error("Failed to prune narration cache", "error", err)
		}
		report.PrunedNarrations = pruned
	}

	slog.Info("Janitor sweep finished",
		"expired_tokens", report.ExpiredTokens,
		"pruned_analyses", report.PrunedAnalyses,
		"orphaned_uploads", report.OrphanedUploads,
		"pruned_narrations", report.PrunedNarrations)
	return report
}

// removeOrphanedUploads deletes files no journal references, skipping recent ones that may be mid-pipeline
func (j *Janitor) removeOrphanedUploads(ctx context.Context) int {
	files, err := j.store.ListFiles()
	if err != nil {
		slog.Error("Failed to list uploads", "error", err)
		return 0
	}

	cutoff := j.now().Add(-orphanUploadMinAge)
	removed := 0
	for _, file := range files {
		if file.ModTime.After(cutoff) {
			continue
		}
		inUse, err := j.journals.AudioPathInUse(ctx, file.Path)
		if err != nil || inUse {
			continue
		}
		if err := j.store.Remove(file.Path); err == nil {
			slog.Info("Removed orphaned upload", "path", file.Path)
			removed++
		}
	}
	return removed
}
