package services

import (
	"context"
	"testing"
	"time"

	"github.com/krshsl/mumble/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickNarrationVoice(t *testing.T) {
	voice := PickNarrationVoice("Alice")
	assert.Contains(t, narrationVoices, voice)
	assert.Equal(t, voice, PickNarrationVoice(" alice "), "case and surrounding space do not matter")

	seen := map[string]bool{}
	for _, name := range []string{"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi"} {
		seen[PickNarrationVoice(name)] = true
	}
	assert.Greater(t, len(seen), 1, "different users get different voices")
}

func TestNarrationVoices_Unique(t *testing.T) {
	seen := map[string]bool{}
	for _, id := range narrationVoices {
		assert.Len(t, id, 20, id)
		assert.False(t, seen[id], "duplicate voice %s", id)
		seen[id] = true
	}
}

func TestNarrationService(t *testing.T) {
	tts := &fakeSynthesizer{}
	cache := NewAudioCache(t.TempDir())
	narration := NewNarrationService(tts, cache)
	journal := &models.Journal{Content: "Today I went for a walk."}

	first, err := narration.Narrate(context.Background(), journal, "alice")
	require.NoError(t, err)
	second, err := narration.Narrate(context.Background(), journal, "alice")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, tts.calls)

	count, size, err := cache.GetCacheStats()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(len(first)), size)
}

func TestNarrationService_Errors(t *testing.T) {
	journal := &models.Journal{Content: "text"}

	_, err := NewNarrationService(nil, NewAudioCache(t.TempDir())).Narrate(context.Background(), journal, "alice")
	assert.ErrorIs(t, err, ErrNarrationNotConfigured)

	failing := &fakeSynthesizer{err: errProviderDown}
	_, err = NewNarrationService(failing, NewAudioCache(t.TempDir())).Narrate(context.Background(), journal, "alice")
	assert.ErrorIs(t, err, errProviderDown)
}

func TestAudioCache_PruneOlderThan(t *testing.T) {
	cache := NewAudioCache(t.TempDir())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "v", []byte("1")))
	require.NoError(t, cache.Set(ctx, "b", "v", []byte("22")))
	backdate(t, cache.getCachePath(cache.generateCacheKey("a", "v")), 48*time.Hour)

	removed, err := cache.PruneOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, found := cache.Get(ctx, "a", "v")
	assert.False(t, found)
	data, found := cache.Get(ctx, "b", "v")
	assert.True(t, found)
	assert.Equal(t, []byte("22"), data)
}
