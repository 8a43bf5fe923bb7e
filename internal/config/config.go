package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrMissingAPIKey is the fatal startup condition for a missing credential.
var ErrMissingAPIKey = errors.New("missing API key: set GEMINI_API_KEY or genai.api_key in the config file")

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	HTTP     struct {
		Listen string `json:"listen"`
	} `json:"http"`
	GenAI struct {
		BaseURL    string `json:"base_url"`
		APIKey     string `json:"api_key"`
		ChatModel  string `json:"chat_model"`
		ImageModel string `json:"image_model"`
		VideoModel string `json:"video_model"`
		EditModel  string `json:"edit_model"`
	} `json:"genai"`
	Video struct {
		PollIntervalSeconds int `json:"poll_interval_seconds"`
		MaxWaitSeconds      int `json:"max_wait_seconds"`
	} `json:"video"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".nexus"),
		LogLevel: "info",
	}
	cfg.HTTP.Listen = "127.0.0.1:8199"
	cfg.GenAI.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	cfg.GenAI.ChatModel = "gemini-2.5-flash"
	cfg.GenAI.ImageModel = "imagen-4.0-generate-001"
	cfg.GenAI.VideoModel = "veo-3.0-generate-001"
	cfg.GenAI.EditModel = "gemini-2.5-flash-image"
	cfg.Video.PollIntervalSeconds = 10
	cfg.Video.MaxWaitSeconds = 600

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		cfg.GenAI.APIKey = apiKey
	}
	if baseURL := os.Getenv("GEMINI_BASE_URL"); baseURL != "" {
		cfg.GenAI.BaseURL = baseURL
	}

	return cfg, nil
}

// Validate checks the startup-fatal conditions.
func (c *Config) Validate() error {
	if c.GenAI.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}
