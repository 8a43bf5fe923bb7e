package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DjMdava/Nexus-AI-v2.0/internal/chat"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/config"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/media"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/metrics"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/persona"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/server"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/store"
	"github.com/DjMdava/Nexus-AI-v2.0/pkg/genai"
	"github.com/DjMdava/Nexus-AI-v2.0/pkg/genai/gemini"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the studio daemon",
	RunE:  runServe,
}

func providerConfig(cfg *config.Config) *genai.Config {
	return &genai.Config{
		BaseURL:    cfg.GenAI.BaseURL,
		APIKey:     cfg.GenAI.APIKey,
		ChatModel:  cfg.GenAI.ChatModel,
		ImageModel: cfg.GenAI.ImageModel,
		VideoModel: cfg.GenAI.VideoModel,
		EditModel:  cfg.GenAI.EditModel,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)
	requireAPIKey(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath := filepath.Join(cfg.DataDir, "nexus.pid")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(filepath.Join(cfg.DataDir, "nexus.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	history := store.NewHistoryStore(st)
	prefs := store.NewPrefs(st)
	registry := persona.NewRegistry(st, prefs)

	genaiCfg := providerConfig(cfg)
	provider := gemini.New(genaiCfg)

	mc := media.NewClient(provider, genaiCfg)
	if cfg.Video.PollIntervalSeconds > 0 {
		mc.PollInterval = time.Duration(cfg.Video.PollIntervalSeconds) * time.Second
	}
	if cfg.Video.MaxWaitSeconds > 0 {
		mc.MaxWait = time.Duration(cfg.Video.MaxWaitSeconds) * time.Second
	}

	session := chat.NewSession(provider, genaiCfg, registry.Active())
	m := metrics.New()
	srv := server.New(mc, session, registry, history, prefs, m)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Listen,
		Handler: srv,
	}

	go func() {
		slog.Info("nexus started",
			"listen", cfg.HTTP.Listen,
			"data_dir", cfg.DataDir,
			"chat_model", cfg.GenAI.ChatModel,
			"image_model", cfg.GenAI.ImageModel,
			"video_model", cfg.GenAI.VideoModel,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
