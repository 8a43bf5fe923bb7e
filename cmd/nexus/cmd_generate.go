package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DjMdava/Nexus-AI-v2.0/internal/media"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/types"
	"github.com/DjMdava/Nexus-AI-v2.0/pkg/genai/gemini"
)

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.AddCommand(generateImageCmd, generateVideoCmd)

	generateImageCmd.Flags().String("aspect", types.AspectSquare, "aspect ratio: square, landscape, or portrait")
	generateImageCmd.Flags().StringP("output", "o", "image.png", "output file")
	generateVideoCmd.Flags().StringP("output", "o", "video.mp4", "output file")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "One-shot media generation",
}

var generateImageCmd = &cobra.Command{
	Use:   "image <prompt>",
	Short: "Generate a single image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		requireAPIKey(cfg)

		aspect, _ := cmd.Flags().GetString("aspect")
		output, _ := cmd.Flags().GetString("output")

		genaiCfg := providerConfig(cfg)
		mc := media.NewClient(gemini.New(genaiCfg), genaiCfg)

		url, err := mc.GenerateImage(context.Background(), args[0], aspect)
		if err != nil {
			return fmt.Errorf("generate image: %w", err)
		}
		if err := writeDataURI(url, output); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %s\n", output)
		return nil
	},
}

var generateVideoCmd = &cobra.Command{
	Use:   "video <prompt>",
	Short: "Generate a video (polls until the job finishes)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		requireAPIKey(cfg)

		output, _ := cmd.Flags().GetString("output")

		genaiCfg := providerConfig(cfg)
		mc := media.NewClient(gemini.New(genaiCfg), genaiCfg)
		if cfg.Video.PollIntervalSeconds > 0 {
			mc.PollInterval = time.Duration(cfg.Video.PollIntervalSeconds) * time.Second
		}
		if cfg.Video.MaxWaitSeconds > 0 {
			mc.MaxWait = time.Duration(cfg.Video.MaxWaitSeconds) * time.Second
		}

		url, err := mc.GenerateVideo(context.Background(), args[0], func() {
			fmt.Fprintln(os.Stderr, "Still working...")
		})
		if err != nil {
			return fmt.Errorf("generate video: %w", err)
		}
		if err := writeDataURI(url, output); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %s\n", output)
		return nil
	},
}

// writeDataURI decodes a data: URI media reference to a local file.
func writeDataURI(uri, path string) error {
	_, payload, ok := strings.Cut(uri, ";base64,")
	if !ok {
		return fmt.Errorf("unexpected media reference format")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("decode media payload: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
