// internal/media/client.go
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DjMdava/Nexus-AI-v2.0/internal/types"
	"github.com/DjMdava/Nexus-AI-v2.0/pkg/genai"
)

// aspectRatios maps the UI aspect enum to the wire format.
var aspectRatios = map[string]string{
	types.AspectSquare:    "1:1",
	types.AspectLandscape: "16:9",
	types.AspectPortrait:  "9:16",
}

// EditResult is the outcome of a successful image edit: the edited image
// as a data URI plus any accompanying commentary from the model.
type EditResult struct {
	ImageURL string
	Text     string
}

// Client wraps the remote generation operations, normalizing responses
// into local media references and classified failures. It is stateless;
// one instance serves all requests.
type Client struct {
	provider genai.Provider
	config   *genai.Config

	// PollInterval is the delay between video status checks.
	PollInterval time.Duration
	// MaxWait bounds the total time spent waiting on one video job.
	MaxWait time.Duration
}

// NewClient creates a media Client over the given provider.
func NewClient(provider genai.Provider, config *genai.Config) *Client {
	return &Client{
		provider:     provider,
		config:       config,
		PollInterval: 10 * time.Second,
		MaxWait:      10 * time.Minute,
	}
}

// DataURI packs binary data into a data: URI media reference.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func blobURI(b *genai.Blob) string {
	return "data:" + b.MimeType + ";base64," + b.Data
}

// GenerateImage requests one image and returns it as a data URI.
func (c *Client) GenerateImage(ctx context.Context, prompt, aspect string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	ratio, ok := aspectRatios[aspect]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidAspect, aspect)
	}

	blob, err := c.provider.GenerateImage(ctx, c.config.ImageModel, prompt, ratio)
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	if blob == nil || blob.Data == "" {
		return "", fmt.Errorf("generate image: %w", ErrNoOutput)
	}
	return blobURI(blob), nil
}

// GenerateVideo starts a video job and polls it to completion on a fixed
// interval, invoking onProgress once before every status check. The final
// payload is downloaded and returned as a data URI. The wait is bounded
// by MaxWait and by ctx cancellation.
func (c *Client) GenerateVideo(ctx context.Context, prompt string, onProgress func()) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	op, err := c.provider.StartVideo(ctx, c.config.VideoModel, prompt)
	if err != nil {
		return "", fmt.Errorf("start video: %w", err)
	}
	slog.Debug("video operation started", "operation", op.Name)

	deadline := time.Now().Add(c.MaxWait)
	for !op.Done {
		if time.Now().After(deadline) {
			return "", fmt.Errorf("poll video %s: %w", op.Name, ErrPollTimeout)
		}
		if onProgress != nil {
			onProgress()
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.PollInterval):
		}
		op, err = c.provider.PollOperation(ctx, op.Name)
		if err != nil {
			return "", fmt.Errorf("poll video: %w", err)
		}
	}

	if op.Error != "" {
		return "", fmt.Errorf("video operation failed: %s", op.Error)
	}
	if op.VideoURI == "" {
		return "", fmt.Errorf("video operation finished: %w", ErrNoOutput)
	}

	data, mime, err := c.provider.Download(ctx, op.VideoURI)
	if err != nil {
		return "", fmt.Errorf("download video: %w", err)
	}
	return DataURI(mime, data), nil
}

// EditImage sends the source image and instruction as one multimodal
// request. The first image part in the response wins; all text parts are
// joined with newlines into the accompanying text.
func (c *Client) EditImage(ctx context.Context, prompt string, image genai.Blob) (*EditResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	contents := []genai.Content{{
		Role: types.RoleUser,
		Parts: []genai.Part{
			{InlineData: &image},
			{Text: prompt},
		},
	}}

	parts, err := c.provider.GenerateContent(ctx, c.config.EditModel, "", contents)
	if err != nil {
		return nil, fmt.Errorf("edit image: %w", err)
	}

	var result *genai.Blob
	var texts []string
	for _, part := range parts {
		if part.InlineData != nil && result == nil {
			result = part.InlineData
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	text := strings.Join(texts, "\n")
	if result == nil {
		if text != "" {
			return nil, &RefusalError{Text: text}
		}
		return nil, ErrEmptyResponse
	}
	return &EditResult{ImageURL: blobURI(result), Text: text}, nil
}
