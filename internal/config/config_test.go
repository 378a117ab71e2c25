package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("AGENT_URL", "wss://agent.example.com/stream")
	defer os.Unsetenv("AGENT_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AgentURL != "wss://agent.example.com/stream" {
		t.Errorf("Expected AgentURL 'wss://agent.example.com/stream', got '%s'", cfg.AgentURL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("AGENT_URL")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when AGENT_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("AGENT_URL", "ws://localhost:8080/stream")
	defer os.Unsetenv("AGENT_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.VoiceID != "matthew" {
		t.Errorf("Expected default VoiceID 'matthew', got '%s'", cfg.VoiceID)
	}

	if cfg.Language != "en" {
		t.Errorf("Expected default Language 'en', got '%s'", cfg.Language)
	}

	if cfg.CaptureSampleRate != 16000 {
		t.Errorf("Expected default CaptureSampleRate 16000, got %d", cfg.CaptureSampleRate)
	}

	if cfg.PlaybackSampleRate != 24000 {
		t.Errorf("Expected default PlaybackSampleRate 24000, got %d", cfg.PlaybackSampleRate)
	}

	if cfg.FrameSamples != 512 {
		t.Errorf("Expected default FrameSamples 512, got %d", cfg.FrameSamples)
	}

	if cfg.ActivityThreshold != 500.0 {
		t.Errorf("Expected default ActivityThreshold 500.0, got %f", cfg.ActivityThreshold)
	}

	if cfg.LocationTimeout != 10 {
		t.Errorf("Expected default LocationTimeout 10, got %d", cfg.LocationTimeout)
	}

	if cfg.LocationCacheTTL != 300 {
		t.Errorf("Expected default LocationCacheTTL 300, got %d", cfg.LocationCacheTTL)
	}

	if cfg.ArchiveEnabled {
		t.Error("Expected default ArchiveEnabled false, got true")
	}

	if cfg.DiagnosticsPort != "9091" {
		t.Errorf("Expected default DiagnosticsPort '9091', got '%s'", cfg.DiagnosticsPort)
	}
}

func TestLoad_InvalidFrameSamples(t *testing.T) {
	os.Setenv("AGENT_URL", "ws://localhost:8080/stream")
	os.Setenv("FRAME_SAMPLES", "0")
	defer os.Unsetenv("AGENT_URL")
	defer os.Unsetenv("FRAME_SAMPLES")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for FRAME_SAMPLES=0")
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	os.Setenv("AGENT_URL", "ws://localhost:8080/stream")
	defer os.Unsetenv("AGENT_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}

	if cfg.CircuitBreakerResetTimeout != 30 {
		t.Errorf("Expected default CircuitBreakerResetTimeout 30, got %d", cfg.CircuitBreakerResetTimeout)
	}

	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}

	if cfg.RetryInitialBackoff != 100 {
		t.Errorf("Expected default RetryInitialBackoff 100, got %d", cfg.RetryInitialBackoff)
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	os.Setenv("AGENT_URL", "ws://localhost:8080/stream")
	os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("AGENT_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}

	if !cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled true, got false")
	}
}
