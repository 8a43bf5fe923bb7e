package genai

import "context"

// Provider defines the interface for a remote generative-media backend.
// Implementations handle protocol-specific details such as request
// formatting, authentication, and response parsing.
type Provider interface {
	// GenerateContent sends a single multimodal request and returns the
	// response parts in order.
	GenerateContent(ctx context.Context, model, system string, contents []Content) ([]Part, error)

	// StreamContent sends a multimodal request and returns a channel of
	// incremental text chunks. The channel is closed when the stream ends;
	// a mid-stream failure is delivered as a final Chunk with Err set.
	StreamContent(ctx context.Context, model, system string, contents []Content) (<-chan Chunk, error)

	// GenerateImage requests exactly one image for the prompt.
	GenerateImage(ctx context.Context, model, prompt, aspectRatio string) (*Blob, error)

	// StartVideo begins an asynchronous video generation job and returns
	// its operation handle.
	StartVideo(ctx context.Context, model, prompt string) (*Operation, error)

	// PollOperation returns the current status of a long-running job.
	PollOperation(ctx context.Context, name string) (*Operation, error)

	// Download fetches the binary payload behind a result reference,
	// returning the data and its mime type.
	Download(ctx context.Context, uri string) ([]byte, string, error)
}

// Config holds common configuration for generative backends.
type Config struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	ImageModel string
	VideoModel string
	EditModel  string
}
