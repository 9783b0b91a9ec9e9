package services

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	ws "github.com/krshsl/mumble/backend/websocket"
)

const websocketPipelineTimeout = 2 * time.Minute

type WebSocketHandler struct {
	processor *JournalProcessor
}

func NewWebSocketHandler(processor *JournalProcessor) *WebSocketHandler {
	return &WebSocketHandler{processor: processor}
}

// HandleWebSocketMessage answers pings and runs uploaded audio through the journal pipeline
func (h *WebSocketHandler) HandleWebSocketMessage(client *ws.Client, msg ws.Message) {
	switch msg.Type {
	case "ping":
		client.SendEvent(ws.Event{Type: ws.EventPong})
	case "audio":
		h.handleAudio(client, msg)
	default:
		slog.Warn("Unknown message type", "type", msg.Type, "user_id", client.UserID)
		client.SendEvent(ws.Event{Type: ws.EventError, Content: "Unknown message type"})
	}
}

func (h *WebSocketHandler) handleAudio(client *ws.Client, msg ws.Message) {
	if msg.AudioDataBase64 == "" {
		h.sendError(client, ErrNoAudioFile)
		return
	}

	audioData, err := decodeBase64Audio(msg.AudioDataBase64)
	if err != nil {
		slog.Error("Failed to decode base64 audio", "error", err, "user_id", client.UserID)
		client.SendEvent(ws.Event{Type: ws.EventError, Content: "Invalid audio encoding"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), websocketPipelineTimeout)
	defer cancel()

	// journal_created reaches this client through the hub
	if _, err := h.processor.CreateFromAudio(ctx, client.UserID, msg.Title, msg.Filename, audioData); err != nil {
		h.sendError(client, err)
	}
}

func (h *WebSocketHandler) sendError(client *ws.Client, err error) {
	message := "Failed to create journal entry"
	if _, mapped, ok := lookupError(err); ok {
		message = mapped
	}
	client.SendEvent(ws.Event{Type: ws.EventError, Content: message})
}

// decodeBase64Audio accepts plain base64 or a data: URL
func decodeBase64Audio(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "data:") {
		if _, payload, ok := strings.Cut(encoded, ","); ok {
			encoded = payload
		}
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
}
