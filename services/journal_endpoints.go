package services

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// multipart fields and boundaries on top of the audio itself
const multipartOverhead = 1 << 20

type JournalEndpoints struct {
	processor   *JournalProcessor
	narration   *NarrationService
	authService *AuthService
	maxBytes    int64
}

func NewJournalEndpoints(processor *JournalProcessor, narration *NarrationService, authService *AuthService, maxBytes int64) *JournalEndpoints {
	return &JournalEndpoints{
		processor:   processor,
		narration:   narration,
		authService: authService,
		maxBytes:    maxBytes,
	}
}

func (e *JournalEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/journals", func(r chi.Router) {
		r.Use(e.authService.Middleware)
		r.Post("/", e.CreateJournalHandler)
		r.Get("/", e.ListJournalsHandler)
		r.Get("/{id}", e.GetJournalHandler)
		r.Delete("/{id}", e.DeleteJournalHandler)
		r.Get("/{id}/narration", e.NarrationHandler)
	})
}

func (e *JournalEndpoints) CreateJournalHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, e.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeServiceError(w, ErrAudioTooLarge, "Failed to create journal entry")
			return
		}
		writeServiceError(w, ErrNoAudioFile, "Failed to create journal entry")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, fileErr := r.FormFile("audio")
	if fileErr == nil {
		defer file.Close()
	}

	// parts without a filename are parsed as plain values
	_, emptyFilename := r.MultipartForm.Value["audio"]
	if fileErr != nil && !emptyFilename {
		writeServiceError(w, ErrNoAudioFile, "Failed to create journal entry")
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeServiceError(w, ErrTitleRequired, "Failed to create journal entry")
		return
	}
	if fileErr != nil || header.Filename == "" {
		writeServiceError(w, ErrNoSelectedFile, "Failed to create journal entry")
		return
	}
	if _, ok := audioExtension(header.Filename); !ok {
		writeServiceError(w, ErrUnsupportedAudio, "Failed to create journal entry")
		return
	}
	if e.maxBytes > 0 && header.Size > e.maxBytes {
		writeServiceError(w, ErrAudioTooLarge, "Failed to create journal entry")
		return
	}

	audioData, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Failed to read uploaded audio", "error", err, "user_id", userID)
		writeError(w, http.StatusBadRequest, "Failed to read audio file")
		return
	}

	journal, err := e.processor.CreateFromAudio(r.Context(), userID, title, header.Filename, audioData)
	if err != nil {
		writeServiceError(w, err, "Failed to create journal entry")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Journal entry created successfully",
		"journal": journal,
	})
}

func (e *JournalEndpoints) ListJournalsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q, err := ParseJournalQuery(query.Get("page"), query.Get("per_page"), query.Get("from"), query.Get("to"))
	if err != nil {
		writeServiceError(w, err, "Failed to list journals")
		return
	}

	page, err := e.processor.List(r.Context(), UserIDFromContext(r.Context()), q)
	if err != nil {
		writeServiceError(w, err, "Failed to list journals")
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (e *JournalEndpoints) GetJournalHandler(w http.ResponseWriter, r *http.Request) {
	journal, err := e.processor.Get(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to get journal")
		return
	}

	writeJSON(w, http.StatusOK, journal)
}

func (e *JournalEndpoints) DeleteJournalHandler(w http.ResponseWriter, r *http.Request) {
	if err := e.processor.Delete(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "Failed to delete journal")
		return
	}

	writeMessage(w, http.StatusOK, "Journal entry deleted successfully")
}

func (e *JournalEndpoints) NarrationHandler(w http.ResponseWriter, r *http.Request) {
	user, err := e.authService.CurrentUser(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to narrate journal")
		return
	}

	journal, err := e.processor.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to narrate journal")
		return
	}

	audio, err := e.narration.Narrate(r.Context(), journal, user.Username)
	if err != nil {
		writeServiceError(w, err, "Failed to narrate journal")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}
