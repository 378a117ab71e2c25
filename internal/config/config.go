package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice client
type Config struct {
	// Remote conversational agent WebSocket endpoint (ws:// or wss://)
	AgentURL string `envconfig:"AGENT_URL" required:"true"`

	// Configuration service HTTP endpoint (system prompt, voice, knowledge base).
	// Optional; if unset, the client runs on its local defaults.
	ConfigAPIURL string `envconfig:"CONFIG_API_URL" default:""`

	// Geolocation lookup endpoint for the best-effort session location report.
	// Optional; if unset, location is reported as unavailable.
	GeoAPIURL string `envconfig:"GEO_API_URL" default:""`

	// Fallback conversation settings, used until the configuration service
	// responds (and kept when it does not).
	SystemPrompt string `envconfig:"SYSTEM_PROMPT" default:"You are a helpful voice assistant. Keep responses short and conversational."`
	VoiceID      string `envconfig:"VOICE_ID" default:"matthew"`
	Language     string `envconfig:"LANGUAGE" default:"en"`

	// Audio processing configuration
	CaptureSampleRate  int     `envconfig:"CAPTURE_SAMPLE_RATE" default:"16000"`  // Microphone capture rate in Hz
	PlaybackSampleRate int     `envconfig:"PLAYBACK_SAMPLE_RATE" default:"24000"` // Agent audio output rate in Hz
	FrameSamples       int     `envconfig:"FRAME_SAMPLES" default:"512"`          // Samples per capture buffer
	ActivityThreshold  float64 `envconfig:"ACTIVITY_THRESHOLD" default:"500.0"`   // RMS energy threshold for the activity snapshot

	// Bootstrap configuration
	LocationTimeout  int `envconfig:"LOCATION_TIMEOUT" default:"10"`    // Location lookup timeout in seconds
	LocationCacheTTL int `envconfig:"LOCATION_CACHE_TTL" default:"300"` // Location cache lifetime in seconds

	// Session audio archival
	ArchiveEnabled bool   `envconfig:"ARCHIVE_ENABLED" default:"false"`
	ArchiveDir     string `envconfig:"ARCHIVE_DIR" default:"recordings"`

	// Resilience configuration (configuration service calls)
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Diagnostics HTTP listener (health + metrics)
	DiagnosticsPort string `envconfig:"DIAGNOSTICS_PORT" default:"9091"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"true"`      // Pretty print logs (interactive client default)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.AgentURL == "" {
		return nil, fmt.Errorf("AGENT_URL is required")
	}
	if cfg.FrameSamples <= 0 {
		return nil, fmt.Errorf("FRAME_SAMPLES must be positive, got %d", cfg.FrameSamples)
	}
	if cfg.CaptureSampleRate <= 0 || cfg.PlaybackSampleRate <= 0 {
		return nil, fmt.Errorf("sample rates must be positive")
	}

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
