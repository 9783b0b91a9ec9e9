package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/krshsl/mumble/backend/repository"
	ws "github.com/krshsl/mumble/backend/websocket"
)

// Server holds all server dependencies
type Server struct {
	config           *Config
	repo             *repository.GORMRepository
	journalRepo      *repository.JournalRepository
	aiProvider       AIProvider
	oauthProvider    OAuthProvider
	tts              SpeechSynthesizer
	analysisService  *AnalysisService
	audioStore       *AudioStore
	audioCache       *AudioCache
	authService      *AuthService
	journalProcessor *JournalProcessor
	websocketHandler *WebSocketHandler
	janitor          *Janitor
	authEndpoints    *AuthEndpoints
	oauthEndpoints   *OAuthEndpoints
	userEndpoints    *UserEndpoints
	journalEndpoints *JournalEndpoints
	docsEndpoints    *DocsEndpoints
	wsHub            *ws.Hub
	upgrader         websocket.Upgrader
}

// NewServer creates a new server instance
func NewServer(config *Config, repo *repository.GORMRepository) *Server {
	return &Server{
		config:      config,
		repo:        repo,
		journalRepo: repository.NewJournalRepository(repo.DB()),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}
}

// SetAIProvider overrides the Gemini client, mainly for tests
func (s *Server) SetAIProvider(provider AIProvider) {
	s.aiProvider = provider
}

func (s *Server) SetOAuthProvider(provider OAuthProvider) {
	s.oauthProvider = provider
}

func (s *Server) SetSpeechSynthesizer(tts SpeechSynthesizer) {
	s.tts = tts
}

// InitializeServices initializes all server services
func (s *Server) InitializeServices(ctx context.Context) error {
	if s.aiProvider == nil && s.config.AI.GeminiAPIKey != "" {
		gemini, err := NewGeminiService(ctx, s.config.AI.GeminiAPIKey, s.config.AI.Model)
		if err != nil {
			slog.Error("Gemini unavailable, using local fallbacks", "error", err)
		} else {
			s.aiProvider = gemini
			slog.Info("Gemini service initialized", "model", s.config.AI.Model)
		}
	}
	if s.aiProvider == nil {
		slog.Warn("GEMINI_API_KEY not set, transcription returns a placeholder and analysis uses keywords")
	}

	if s.tts == nil && s.config.AI.ElevenLabsKey != "" {
		s.tts = NewElevenLabsService(s.config.AI.ElevenLabsKey)
		slog.Info("ElevenLabs service initialized")
	}

	if s.oauthProvider == nil && s.config.OAuth.Google.ClientID != "" {
		s.oauthProvider = NewGoogleOAuthProvider(s.config.OAuth.Google)
		slog.Info("Google OAuth initialized")
	}

	store, err := NewAudioStore(s.config.Uploads.Dir, s.config.Uploads.MaxBytes)
	if err != nil {
		return err
	}
	s.audioStore = store
	s.audioCache = NewAudioCache(s.config.AudioCache.Dir)

	s.wsHub = ws.NewHub(ws.MessageSizeFor(s.config.Uploads.MaxBytes))
	s.analysisService = NewAnalysisService(s.aiProvider)
	s.authService = NewAuthService(s.repo, s.config.JWT, s.config.Server.IsProduction())
	s.journalProcessor = NewJournalProcessor(s.journalRepo, s.audioStore, s.analysisService, s.wsHub)
	s.websocketHandler = NewWebSocketHandler(s.journalProcessor)
	s.janitor = NewJanitor(s.repo, s.journalRepo, s.audioStore, s.analysisService, s.audioCache, DefaultJanitorInterval)

	s.authEndpoints = NewAuthEndpoints(s.authService)
	s.oauthEndpoints = NewOAuthEndpoints(s.oauthProvider, NewOAuthService(s.repo), s.authService, s.config.Frontend.URL)
	s.userEndpoints = NewUserEndpoints(NewUserService(s.repo, s.journalRepo, s.audioStore), s.authService)
	s.journalEndpoints = NewJournalEndpoints(s.journalProcessor, NewNarrationService(s.tts, s.audioCache), s.authService, s.config.Uploads.MaxBytes)
	s.docsEndpoints = NewDocsEndpoints()

	return nil
}

// RunBackground starts the hub and janitor; both stop when ctx is cancelled
func (s *Server) RunBackground(ctx context.Context) {
	go s.wsHub.Run(ctx)
	go s.janitor.Start(ctx)
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(s.config.CORS.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.rootHandler)
	r.Get("/health", s.healthHandler)
	r.Get("/apispec.json", s.docsEndpoints.SpecHandler)
	r.Get("/apidocs", http.RedirectHandler("/apidocs/", http.StatusMovedPermanently).ServeHTTP)
	r.Get("/apidocs/", s.docsEndpoints.UIHandler)

	r.Route("/api", func(r chi.Router) {
		s.authEndpoints.RegisterRoutes(r)
		s.oauthEndpoints.RegisterRoutes(r)
		s.userEndpoints.RegisterRoutes(r)
		s.journalEndpoints.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(s.authService.WebSocketMiddleware)
			r.Get("/ws", s.websocketHandlerFunc)
		})
	})

	return r
}

// Start serves HTTP until SIGINT/SIGTERM, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.RunBackground(ctx)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
	return nil
}

// CheckOrigin validates the origin of WebSocket connections to prevent CSRF attacks
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	// If no allowed origins are configured, deny all requests for security
	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	for _, allowed := range splitOrigins(allowedOriginsStr) {
		if allowed == origin {
			slog.Info("WebSocket connection accepted", "origin", origin)
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Mumble Journal API is running",
		"docs":    "/apidocs/",
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "up"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		slog.Error("Database ping failed", "error", err)
		status = "degraded"
		dbStatus = "down"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   status,
		"database": dbStatus,
	})
}

func (s *Server) websocketHandlerFunc(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := s.wsHub.RegisterClient(conn, userID)
	if client == nil {
		conn.Close()
		return
	}
	client.MessageHandler = s.websocketHandler.HandleWebSocketMessage

	slog.Info("WebSocket connection established", "user_id", userID, "client_id", client.ID)

	go client.WritePump()
	client.ReadPump()
}
