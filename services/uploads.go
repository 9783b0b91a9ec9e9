package services

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var allowedAudioExtensions = map[string]bool{
	"wav": true,
	"mp3": true,
	"m4a": true,
	"ogg": true,
}

// AudioStore keeps uploaded recordings on disk
type AudioStore struct {
	dir      string
	maxBytes int64
}

// StoredFile is a file found in the upload directory
type StoredFile struct {
	Path    string
	ModTime time.Time
}

func NewAudioStore(dir string, maxBytes int64) (*AudioStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &AudioStore{dir: dir, maxBytes: maxBytes}, nil
}

func (s *AudioStore) Dir() string {
	return s.dir
}

func (s *AudioStore) MaxBytes() int64 {
	return s.maxBytes
}

// audioExtension returns the lower-cased extension when it is an accepted audio type
func audioExtension(filename string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return ext, allowedAudioExtensions[ext]
}

// DetectAudio sniffs data and returns its MIME type, or ErrUnsupportedAudio when it is not audio
func DetectAudio(ext string, data []byte) (string, error) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") || m.Is("application/ogg") {
			return detected.String(), nil
		}
		// AAC in a plain isom container sniffs as video
		if ext == "m4a" && m.Is("video/mp4") {
			return "audio/mp4", nil
		}
	}
	return "", fmt.Errorf("%w: detected %s", ErrUnsupportedAudio, detected.String())
}

// Save validates and writes an upload, returning the stored path and sniffed MIME type
func (s *AudioStore) Save(filename string, data []byte) (string, string, error) {
	if filename == "" {
		return "", "", ErrNoSelectedFile
	}
	ext, ok := audioExtension(filename)
	if !ok {
		return "", "", ErrUnsupportedAudio
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", "", ErrAudioTooLarge
	}

	mime, err := DetectAudio(ext, data)
	if err != nil {
		return "", "", err
	}

	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "audio"
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s.%s", uuid.New().String(), base, ext))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write audio file: %w", err)
	}

	slog.Info("Audio file stored", "path", path, "mime", mime, "bytes", len(data))
	return path, mime, nil
}

// Remove deletes a stored file; paths outside the upload directory are ignored
func (s *AudioStore) Remove(path string) error {
	if path == "" || !s.owns(path) {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("Failed to remove audio file", "error", err, "path", path)
		return fmt.Errorf("failed to remove audio file: %w", err)
	}
	return nil
}

func (s *AudioStore) owns(path string) bool {
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, abs)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// ListFiles returns the regular files directly inside the upload directory
func (s *AudioStore) ListFiles() ([]StoredFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	files := make([]StoredFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, StoredFile{
			Path:    filepath.Join(s.dir, entry.Name()),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}
