package services

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
)

const TranscriptionPlaceholder = "(Transcription unavailable - configure GEMINI_API_KEY)"

type MoodScore struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type TopicScore struct {
	Name      string  `json:"name"`
	Relevance float64 `json:"relevance"`
}

// AIProvider is the model backend; GeminiService implements it
type AIProvider interface {
	TranscribeAudio(ctx context.Context, audioData []byte, mimeType string) (string, error)
	AnalyzeEntry(ctx context.Context, text string) ([]MoodScore, []TopicScore, error)
	PolishEntry(ctx context.Context, text string) (string, error)
}

type cachedAnalysis struct {
	moods    []MoodScore
	topics   []TopicScore
	lastUsed time.Time
}

// AnalysisService runs the AI steps, degrading to local fallbacks when the provider is absent or fails
type AnalysisService struct {
	provider AIProvider
	cache    map[string]*cachedAnalysis
	mu       sync.Mutex
	now      func() time.Time
}

// NewAnalysisService accepts a nil provider for offline operation
func NewAnalysisService(provider AIProvider) *AnalysisService {
	return &AnalysisService{
		provider: provider,
		cache:    make(map[string]*cachedAnalysis),
		now:      time.Now,
	}
}

func (a *AnalysisService) Configured() bool {
	return a.provider != nil
}

func (a *AnalysisService) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	if a.provider == nil {
		slog.Warn("AI provider not configured, returning placeholder transcript")
		return TranscriptionPlaceholder, nil
	}
	return a.provider.TranscribeAudio(ctx, audioData, mimeType)
}

// Analyze returns moods and topics for text, memoized per exact text
func (a *AnalysisService) Analyze(ctx context.Context, text string) ([]MoodScore, []TopicScore) {
	a.mu.Lock()
	if entry, ok := a.cache[text]; ok {
		entry.lastUsed = a.now()
		a.mu.Unlock()
		return entry.moods, entry.topics
	}
	a.mu.Unlock()

	moods, topics, err := a.analyzeWithProvider(ctx, text)
	if err != nil {
		slog.Info("AI analysis unavailable, using keyword fallback", "error", err)
		moods, topics = KeywordAnalysis(text)
	}

	a.mu.Lock()
	a.cache[text] = &cachedAnalysis{moods: moods, topics: topics, lastUsed: a.now()}
	a.mu.Unlock()
	return moods, topics
}

func (a *AnalysisService) analyzeWithProvider(ctx context.Context, text string) ([]MoodScore, []TopicScore, error) {
	if a.provider == nil {
		return nil, nil, errProviderMissing
	}
	moods, topics, err := a.provider.AnalyzeEntry(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	return sanitizeMoods(moods), sanitizeTopics(topics), nil
}

// Polish rewrites text, or returns it trimmed when the provider is absent or fails
func (a *AnalysisService) Polish(ctx context.Context, text string) string {
	trimmed := strings.TrimSpace(text)
	if a.provider == nil || trimmed == "" {
		return trimmed
	}

	polished, err := a.provider.PolishEntry(ctx, trimmed)
	if err != nil {
		slog.Warn("Polishing failed, keeping raw transcript", "error", err)
		return trimmed
	}
	return polished
}

// PruneCache drops entries unused for longer than maxIdle and reports how many went
func (a *AnalysisService) PruneCache(maxIdle time.Duration) int {
	cutoff := a.now().Add(-maxIdle)

	a.mu.Lock()
	defer a.mu.Unlock()

	pruned := 0
	for text, entry := range a.cache {
		if entry.lastUsed.Before(cutoff) {
			delete(a.cache, text)
			pruned++
		}
	}
	return pruned
}

func (a *AnalysisService) CacheSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cache)
}

func sanitizeMoods(moods []MoodScore) []MoodScore {
	out := make([]MoodScore, 0, len(moods))
	for _, m := range moods {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		out = append(out, MoodScore{Name: truncate(name, 50), Confidence: clamp01(m.Confidence)})
	}
	return out
}

func sanitizeTopics(topics []TopicScore) []TopicScore {
	out := make([]TopicScore, 0, len(topics))
	for _, t := range topics {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		out = append(out, TopicScore{Name: truncate(name, 100), Relevance: clamp01(t.Relevance)})
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
