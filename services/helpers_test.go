package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/krshsl/mumble/backend/repository"
	"github.com/stretchr/testify/require"
)

const testPassword = "Secret123!"

// wavHeader is enough of a RIFF/WAVE file for content sniffing
var wavHeader = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00"), make([]byte, 64)...)

type fakeAIProvider struct {
	mu            sync.Mutex
	transcript    string
	transcribeErr error
	moods         []MoodScore
	topics        []TopicScore
	analyzeErr    error
	polishErr     error
	analyzeCalls  int
	polishCalls   int
}

func (f *fakeAIProvider) TranscribeAudio(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}

func (f *fakeAIProvider) AnalyzeEntry(ctx context.Context, text string) ([]MoodScore, []TopicScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeCalls++
	if f.analyzeErr != nil {
		return nil, nil, f.analyzeErr
	}
	return f.moods, f.topics, nil
}

func (f *fakeAIProvider) PolishEntry(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polishCalls++
	if f.polishErr != nil {
		return "", f.polishErr
	}
	return "Polished: " + text, nil
}

func (f *fakeAIProvider) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analyzeCalls, f.polishCalls
}

type fakeSynthesizer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSynthesizer) TextToSpeech(ctx context.Context, text, voiceID string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader("mp3:" + voiceID + ":" + text)), nil
}

type fakeOAuthProvider struct {
	profile *OAuthProfile
	err     error
}

func (f *fakeOAuthProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (f *fakeOAuthProvider) Exchange(ctx context.Context, code string) (*OAuthProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

var errProviderDown = errors.New("provider unavailable")

// testEnv is a fully wired server on an in-memory database
type testEnv struct {
	server *Server
	router http.Handler
	repo   *repository.GORMRepository
	ai     *fakeAIProvider
	tts    *fakeSynthesizer
	oauth  *fakeOAuthProvider
	config *Config
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Server:     ServerConfig{Port: "0", Environment: "test"},
		Database:   DatabaseConfig{Driver: repository.DriverSQLite, URL: ":memory:"},
		JWT:        JWTConfig{Secret: "test-secret", AccessExpiry: time.Hour, RefreshExpiry: 24 * time.Hour},
		Frontend:   FrontendConfig{URL: "http://localhost:3000"},
		Uploads:    UploadConfig{Dir: t.TempDir(), MaxBytes: 1 << 20},
		AudioCache: AudioCacheConfig{Dir: t.TempDir()},
		WebSocket:  WebSocketConfig{AllowedOrigins: "http://localhost:3000"},
		CORS:       CORSConfig{AllowedOrigins: "http://localhost:3000"},
	}
}

func setupTestRepo(t *testing.T) *repository.GORMRepository {
	t.Helper()

	db, err := repository.Open(context.Background(), repository.Options{Driver: repository.DriverSQLite, URL: ":memory:"})
	require.NoError(t, err, "Failed to create database connection")
	t.Cleanup(func() {
		_ = repository.Close(db)
	})

	repo := repository.NewGORMRepository(db)
	require.NoError(t, repo.AutoMigrate(), "Failed to migrate schema")
	return repo
}

func newTestEnv(t *testing.T, configure ...func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig(t)
	for _, fn := range configure {
		fn(cfg)
	}

	repo := setupTestRepo(t)
	env := &testEnv{
		repo:   repo,
		ai:     &fakeAIProvider{transcript: "I felt happy at work today"},
		tts:    &fakeSynthesizer{},
		oauth:  &fakeOAuthProvider{},
		config: cfg,
	}

	env.server = NewServer(cfg, repo)
	env.server.SetAIProvider(env.ai)
	env.server.SetSpeechSynthesizer(env.tts)
	env.server.SetOAuthProvider(env.oauth)
	require.NoError(t, env.server.InitializeServices(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	go env.server.wsHub.Run(ctx)
	t.Cleanup(cancel)

	env.router = env.server.SetupRoutes()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// register signs up a user and returns the access token
func (e *testEnv) register(t *testing.T, username string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": testPassword,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	token, ok := body["token"].(string)
	require.True(t, ok, "register response carries a token")
	return token
}

type multipartFile struct {
	field    string
	filename string
	data     []byte
}

func (e *testEnv) upload(t *testing.T, token string, fields map[string]string, file *multipartFile) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	if file != nil {
		part, err := writer.CreateFormFile(file.field, file.filename)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/journals/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// createJournal uploads a WAV recording and returns the created journal
func (e *testEnv) createJournal(t *testing.T, token, title string) map[string]interface{} {
	t.Helper()

	rec := e.upload(t, token, map[string]string{"title": title}, &multipartFile{
		field:    "audio",
		filename: "entry.wav",
		data:     wavHeader,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	journal, ok := decodeBody(t, rec)["journal"].(map[string]interface{})
	require.True(t, ok)
	return journal
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	message, _ := decodeBody(t, rec)["error"].(string)
	return message
}
