package cfg

import (
	"os"
	"testing"
	"time"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	oldArgs := os.Args
	os.Args = append([]string{"test"}, args...)
	t.Cleanup(func() { os.Args = oldArgs })
}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	withArgs(t)
	t.Setenv("TZ", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.OwnerID != "default" {
		t.Errorf("Expected owner 'default', got '%s'", cfg.OwnerID)
	}
	if cfg.AudioBucket != "audio" {
		t.Errorf("Expected bucket 'audio', got '%s'", cfg.AudioBucket)
	}
	if cfg.VoiceID != "21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("Expected default voice, got '%s'", cfg.VoiceID)
	}
	if cfg.Extractor != "paragraphs" {
		t.Errorf("Expected extractor 'paragraphs', got '%s'", cfg.Extractor)
	}
	if cfg.RefreshInterval != 0 {
		t.Errorf("Expected refresh disabled, got %d", cfg.RefreshInterval)
	}
	if cfg.Timeout() != 120*time.Second {
		t.Errorf("Expected timeout 120s, got %s", cfg.Timeout())
	}
	if Get() != cfg {
		t.Error("Get should return the loaded configuration")
	}
}

func TestLoadFromEnvAndFlags(t *testing.T) {
	withArgs(t, "--port", "9090", "--extractor", "readability")
	t.Setenv("TZ", "UTC")
	t.Setenv("OWNER_ID", "alice")
	t.Setenv("REQUEST_TIMEOUT", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.OwnerID != "alice" {
		t.Errorf("Expected owner 'alice', got '%s'", cfg.OwnerID)
	}
	if cfg.Extractor != "readability" {
		t.Errorf("Expected extractor 'readability', got '%s'", cfg.Extractor)
	}
	if cfg.Timeout() != 15*time.Second {
		t.Errorf("Expected timeout 15s, got %s", cfg.Timeout())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	withArgs(t, "--extractor", "magic")
	t.Setenv("TZ", "UTC")

	if _, err := Load(); err == nil {
		t.Error("Expected error for unknown extractor")
	}

	withArgs(t, "--request-timeout", "-1")
	if _, err := Load(); err == nil {
		t.Error("Expected error for negative timeout")
	}
}

func TestPublicBaseURL(t *testing.T) {
	cfg := &Cfg{Port: "8080"}
	if got := cfg.PublicBaseURL(); got != "http://localhost:8080" {
		t.Errorf("Expected localhost fallback, got '%s'", got)
	}

	cfg.BaseUrl = "https://radio.example.com"
	if got := cfg.PublicBaseURL(); got != "https://radio.example.com" {
		t.Errorf("Expected base URL, got '%s'", got)
	}
}
