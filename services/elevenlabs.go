package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// SpeechSynthesizer turns text into MP3 audio
type SpeechSynthesizer interface {
	TextToSpeech(ctx context.Context, text, voiceID string) (io.ReadCloser, error)
}

type ElevenLabsService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type ElevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func NewElevenLabsService(apiKey string) *ElevenLabsService {
	return &ElevenLabsService{
		apiKey:  apiKey,
		baseURL: elevenLabsBaseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// TextToSpeech streams the narration; the caller closes the body
func (e *ElevenLabsService) TextToSpeech(ctx context.Context, text, voiceID string) (io.ReadCloser, error) {
	request := ElevenLabsRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
		VoiceSettings: VoiceSettings{
			Stability:       0.6,
			SimilarityBoost: 0.75,
		},
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", e.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("elevenlabs API error: %d - %s", resp.StatusCode, string(body))
	}

	slog.Info("Generated narration from ElevenLabs", "text_length", len(text), "voice_id", voiceID)
	return resp.Body, nil
}
