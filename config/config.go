package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Rooms     RoomsConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AuthConfig toggles auxiliary auth surfaces.
type AuthConfig struct {
	// DevTokens enables the POST /auth/token mint for standalone runs.
	DevTokens bool
}

// RoomsConfig bounds per-room state and tunes room lifecycle.
type RoomsConfig struct {
	MaxChatHistory int // chat entries kept per room
	MaxChatLength  int // max chat content length in characters
	// HostControlsPlayback restricts playback/queue mutation to the host.
	HostControlsPlayback bool
	// DestroyGraceSeconds delays destruction of an emptied room so a
	// briefly-dropped participant can rejoin. 0 destroys immediately.
	DestroyGraceSeconds int
}

// RateLimitConfig bounds per-remote-address usage.
type RateLimitConfig struct {
	MessagePoints int // messages/connects allowed per window
	WindowSeconds int
	MaxConnsPerIP int
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Auth: AuthConfig{
			DevTokens: getEnvBool("AUTH_DEV_TOKENS", false),
		},
		Rooms: RoomsConfig{
			MaxChatHistory:       getEnvInt("ROOM_MAX_CHAT_HISTORY", 100),
			MaxChatLength:        getEnvInt("ROOM_MAX_CHAT_LENGTH", 1000),
			HostControlsPlayback: getEnvBool("ROOM_HOST_CONTROLS_PLAYBACK", false),
			DestroyGraceSeconds:  getEnvInt("ROOM_DESTROY_GRACE_SEC", 0),
		},
		RateLimit: RateLimitConfig{
			MessagePoints: getEnvInt("RATE_LIMIT_POINTS", 100),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
			MaxConnsPerIP: getEnvInt("RATE_LIMIT_MAX_CONNS_PER_IP", 20),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}
