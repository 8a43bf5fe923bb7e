package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWritesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_BASE_URL", "")

	path := filepath.Join(t.TempDir(), "config.json")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.HTTP.Listen != "127.0.0.1:8199" {
		t.Errorf("unexpected listen address %q", cfg.HTTP.Listen)
	}
	if cfg.GenAI.ChatModel != "gemini-2.5-flash" {
		t.Errorf("unexpected chat model %q", cfg.GenAI.ChatModel)
	}
	if cfg.Video.PollIntervalSeconds != 10 || cfg.Video.MaxWaitSeconds != 600 {
		t.Errorf("unexpected video settings: %+v", cfg.Video)
	}

	// First load materializes the file.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
}

func TestLoadReadsExistingFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_BASE_URL", "")

	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"genai":{"api_key":"from-file","chat_model":"custom-model"}}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GenAI.APIKey != "from-file" {
		t.Errorf("expected key from file, got %q", cfg.GenAI.APIKey)
	}
	if cfg.GenAI.ChatModel != "custom-model" {
		t.Errorf("expected model from file, got %q", cfg.GenAI.ChatModel)
	}
	// Fields absent from the file keep their defaults.
	if cfg.HTTP.Listen != "127.0.0.1:8199" {
		t.Errorf("expected default listen, got %q", cfg.HTTP.Listen)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"genai":{"api_key":"from-file","base_url":"https://file.example"}}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("GEMINI_BASE_URL", "https://env.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GenAI.APIKey != "from-env" {
		t.Errorf("expected env key to win, got %q", cfg.GenAI.APIKey)
	}
	if cfg.GenAI.BaseURL != "https://env.example" {
		t.Errorf("expected env base url to win, got %q", cfg.GenAI.BaseURL)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestValidateMissingKey(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}

	cfg.GenAI.APIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
