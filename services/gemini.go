package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const DefaultModelName = "gemini-2.5-flash"

const analysisInstruction = "You analyse a user's personal diary text. " +
	"Return only a minified JSON object with exactly two keys: \"moods\" and \"topics\". " +
	"\"moods\" is an array of {\"name\": <emotion>, \"confidence\": <0-1 float>} objects. " +
	"\"topics\" is an array of {\"name\": <topic>, \"relevance\": <0-1 float>} objects."

const polishPrompt = "Please rewrite the following raw speech-to-text diary entry into a clear, " +
	"well-structured first-person journal paragraph. Avoid changing the meaning " +
	"but improve grammar and flow. Reply with the paragraph only.\n\n%s"

const transcribePrompt = "Transcribe this spoken diary entry to text. Provide only the transcript, no additional commentary."

// GeminiService talks to Gemini for transcription, analysis and polishing
type GeminiService struct {
	genaiClient *genai.Client
	model       string
}

func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	if model == "" {
		model = DefaultModelName
	}
	return &GeminiService{genaiClient: genaiClient, model: model}, nil
}

// TranscribeAudio sends the recording inline and returns the transcript
func (g *GeminiService) TranscribeAudio(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	slog.Info("Transcribing audio with Gemini", "size", len(audioData), "mime", mimeType)

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromText(transcribePrompt),
		{
			InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     audioData,
			},
		},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.genaiClient.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate transcript: %w", err)
	}

	transcript := strings.TrimSpace(result.Text())
	slog.Info("Audio transcribed successfully", "transcript_length", len(transcript))
	return transcript, nil
}

// analysisSchema constrains the model to the analysisPayload shape
func analysisSchema() *genai.Schema {
	scored := func(scoreField string) *genai.Schema {
		return &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":     {Type: genai.TypeString},
					scoreField: {Type: genai.TypeNumber, Minimum: genai.Ptr[float64](0), Maximum: genai.Ptr[float64](1)},
				},
				Required: []string{"name", scoreField},
			},
		}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"moods":  scored("confidence"),
			"topics": scored("relevance"),
		},
		Required: []string{"moods", "topics"},
	}
}

// MaxOutputTokens stays unset; thinking tokens on 2.5 models count against it
func analysisConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(analysisInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    analysisSchema(),
		Temperature:       genai.Ptr[float32](0.2),
	}
}

func polishConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.4),
	}
}

type analysisPayload struct {
	Moods  []MoodScore  `json:"moods"`
	Topics []TopicScore `json:"topics"`
}

// AnalyzeEntry asks for moods and topics as JSON
func (g *GeminiService) AnalyzeEntry(ctx context.Context, text string) ([]MoodScore, []TopicScore, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := g.genaiClient.Models.GenerateContent(ctx, g.model, genai.Text(text), analysisConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to analyse entry: %w", err)
	}

	raw := strings.TrimSpace(result.Text())
	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		slog.Error("Failed to parse analysis JSON", "raw", raw)
		return nil, nil, fmt.Errorf("invalid analysis JSON: %w", err)
	}
	return payload.Moods, payload.Topics, nil
}

// PolishEntry rewrites a raw transcript into a journal paragraph
func (g *GeminiService) PolishEntry(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := g.genaiClient.Models.GenerateContent(ctx, g.model, genai.Text(fmt.Sprintf(polishPrompt, strings.TrimSpace(text))), polishConfig())
	if err != nil {
		return "", fmt.Errorf("failed to polish entry: %w", err)
	}

	polished := strings.TrimSpace(result.Text())
	if polished == "" {
		return "", fmt.Errorf("empty polish response")
	}
	return polished, nil
}
