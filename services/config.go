package services

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "jwt-secret-change-in-production"

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	AI         AIConfig
	JWT        JWTConfig
	OAuth      OAuthConfig
	Frontend   FrontendConfig
	Uploads    UploadConfig
	AudioCache AudioCacheConfig
	Log        LogConfig
	WebSocket  WebSocketConfig
	CORS       CORSConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

// IsProduction decides whether auth cookies are marked Secure
func (c ServerConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

type DatabaseConfig struct {
	Driver       string
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type AIConfig struct {
	GeminiAPIKey  string
	Model         string
	ElevenLabsKey string
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type OAuthConfig struct {
	Google GoogleOAuthConfig
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type FrontendConfig struct {
	URL string
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

type AudioCacheConfig struct {
	Dir string
}

type LogConfig struct {
	Level string
	File  string
}

type WebSocketConfig struct {
	AllowedOrigins string
}

type CORSConfig struct {
	AllowedOrigins string
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	} else {
		applyDotEnv(v)
	}

	return configFrom(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "mumble.db")
	v.SetDefault("database.seed", "false")
	v.SetDefault("database.log_level", "silent")
	v.SetDefault("database.max_idle_conns", "10")
	v.SetDefault("database.max_open_conns", "100")
	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.access_expiry", "1h")
	v.SetDefault("jwt.refresh_expiry", "168h")
	v.SetDefault("oauth.google.client_id", "")
	v.SetDefault("oauth.google.client_secret", "")
	v.SetDefault("oauth.google.redirect_url", "http://localhost:8080/api/oauth/google/callback")
	v.SetDefault("frontend.url", "http://localhost:3000")
	v.SetDefault("ai.gemini_api_key", "")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.elevenlabs_api_key", "")
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.max_bytes", 25*1024*1024)
	v.SetDefault("audio_cache.dir", "cache/narration")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("websocket.allowed_origins", "")
	v.SetDefault("cors.allowed_origins", "")
}

// envKeys maps config keys to their environment variables
var envKeys = map[string]string{
	"server.port":                "SERVER_PORT",
	"server.environment":         "ENVIRONMENT",
	"database.driver":            "DATABASE_DRIVER",
	"database.url":               "DATABASE_URL",
	"database.seed":              "DATABASE_SEED",
	"database.log_level":         "DATABASE_LOG_LEVEL",
	"database.max_idle_conns":    "DATABASE_MAX_IDLE_CONNS",
	"database.max_open_conns":    "DATABASE_MAX_OPEN_CONNS",
	"jwt.secret":                 "JWT_SECRET",
	"jwt.access_expiry":          "JWT_ACCESS_EXPIRY",
	"jwt.refresh_expiry":         "JWT_REFRESH_EXPIRY",
	"oauth.google.client_id":     "GOOGLE_OAUTH_CLIENT_ID",
	"oauth.google.client_secret": "GOOGLE_OAUTH_CLIENT_SECRET",
	"oauth.google.redirect_url":  "GOOGLE_OAUTH_REDIRECT_URL",
	"frontend.url":               "FRONTEND_URL",
	"ai.gemini_api_key":          "GEMINI_API_KEY",
	"ai.model":                   "GEMINI_MODEL",
	"ai.elevenlabs_api_key":      "ELEVENLABS_API_KEY",
	"uploads.dir":                "UPLOAD_DIR",
	"uploads.max_bytes":          "UPLOAD_MAX_BYTES",
	"audio_cache.dir":            "AUDIO_CACHE_DIR",
	"log.level":                  "LOG_LEVEL",
	"log.file":                   "LOG_FILE",
	"websocket.allowed_origins":  "WEBSOCKET_ALLOWED_ORIGINS",
	"cors.allowed_origins":       "CORS_ALLOWED_ORIGINS",
}

func bindEnv(v *viper.Viper) {
	for key, env := range envKeys {
		v.BindEnv(key, env)
	}
}

// applyDotEnv lets KEY=value lines in .env stand in for the environment.
// Real environment variables still take precedence.
func applyDotEnv(v *viper.Viper) {
	for key, env := range envKeys {
		if name := strings.ToLower(env); v.InConfig(name) {
			v.SetDefault(key, v.Get(name))
		}
	}
}

func configFrom(v *viper.Viper) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("server.port"),
			Environment: v.GetString("server.environment"),
		},
		Database: DatabaseConfig{
			Driver:       v.GetString("database.driver"),
			URL:          v.GetString("database.url"),
			Seed:         v.GetBool("database.seed"),
			LogLevel:     v.GetString("database.log_level"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			GeminiAPIKey:  v.GetString("ai.gemini_api_key"),
			Model:         v.GetString("ai.model"),
			ElevenLabsKey: v.GetString("ai.elevenlabs_api_key"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("jwt.secret"),
			AccessExpiry:  v.GetDuration("jwt.access_expiry"),
			RefreshExpiry: v.GetDuration("jwt.refresh_expiry"),
		},
		OAuth: OAuthConfig{
			Google: GoogleOAuthConfig{
				ClientID:     v.GetString("oauth.google.client_id"),
				ClientSecret: v.GetString("oauth.google.client_secret"),
				RedirectURL:  v.GetString("oauth.google.redirect_url"),
			},
		},
		Frontend: FrontendConfig{
			URL: strings.TrimRight(v.GetString("frontend.url"), "/"),
		},
		Uploads: UploadConfig{
			Dir:      v.GetString("uploads.dir"),
			MaxBytes: v.GetInt64("uploads.max_bytes"),
		},
		AudioCache: AudioCacheConfig{
			Dir: v.GetString("audio_cache.dir"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: v.GetString("websocket.allowed_origins"),
		},
		CORS: CORSConfig{
			AllowedOrigins: v.GetString("cors.allowed_origins"),
		},
	}

	if cfg.CORS.AllowedOrigins == "" {
		cfg.CORS.AllowedOrigins = cfg.Frontend.URL
	}
	if cfg.JWT.Secret == defaultJWTSecret {
		slog.Warn("JWT_SECRET is not set, using the development default")
	}

	return cfg
}

// splitOrigins parses a comma-separated origin list
func splitOrigins(list string) []string {
	var origins []string
	for _, origin := range strings.Split(list, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
