package services

import (
	"context"
	"io"

	"github.com/krshsl/mumble/backend/models"
)

// NarrationService reads journals aloud through a speech synthesizer with a disk cache
type NarrationService struct {
	tts   SpeechSynthesizer
	cache *AudioCache
}

// NewNarrationService accepts a nil synthesizer; Narrate then reports ErrNarrationNotConfigured
func NewNarrationService(tts SpeechSynthesizer, cache *AudioCache) *NarrationService {
	return &NarrationService{tts: tts, cache: cache}
}

func (n *NarrationService) Narrate(ctx context.Context, journal *models.Journal, username string) ([]byte, error) {
	if n.tts == nil {
		return nil, ErrNarrationNotConfigured
	}

	voiceID := PickNarrationVoice(username)
	return n.cache.GetOrGenerate(ctx, journal.Content, voiceID, func() (io.ReadCloser, error) {
		return n.tts.TextToSpeech(ctx, journal.Content, voiceID)
	})
}
