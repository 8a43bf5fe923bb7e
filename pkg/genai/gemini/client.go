package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DjMdava/Nexus-AI-v2.0/pkg/genai"
)

// DefaultBaseURL is the public Generative Language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements the genai.Provider interface for the Gemini API.
type Client struct {
	config     *genai.Config
	httpClient *http.Client

	// streamClient carries no overall timeout: Client.Timeout covers
	// reading the response body, which would sever a long-lived SSE reply
	// mid-stream. Cancellation flows through the request context instead.
	streamClient *http.Client
}

// New creates a Gemini client with the given configuration.
func New(config *genai.Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		streamClient: &http.Client{},
	}
}

// generateRequest is the generateContent request body.
type generateRequest struct {
	SystemInstruction *systemInstruction `json:"system_instruction,omitempty"`
	Contents          []genai.Content    `json:"contents"`
}

type systemInstruction struct {
	Parts []genai.Part `json:"parts"`
}

// generateResponse is the generateContent response body.
type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content struct {
		Parts []genai.Part `json:"parts"`
	} `json:"content"`
}

// predictRequest is the Imagen-style :predict request body.
type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParams     `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParams struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// predictResponse is the :predict response body.
type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// operationResponse is the long-running operation resource.
type operationResponse struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

// post issues an authenticated POST with a JSON body and returns the raw
// response body after checking the status code.
func (c *Client) post(ctx context.Context, url string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func (c *Client) modelURL(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", c.config.BaseURL, model, method)
}

// GenerateContent sends a single multimodal request and returns the
// response parts in order.
func (c *Client) GenerateContent(ctx context.Context, model, system string, contents []genai.Content) ([]genai.Part, error) {
	reqBody := generateRequest{Contents: contents}
	if system != "" {
		reqBody.SystemInstruction = &systemInstruction{Parts: []genai.Part{{Text: system}}}
	}

	respBody, err := c.post(ctx, c.modelURL(model, "generateContent"), reqBody)
	if err != nil {
		return nil, err
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(genResp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}
	return genResp.Candidates[0].Content.Parts, nil
}

// StreamContent opens a server-sent-events stream and delivers text chunks
// as they arrive. The returned channel is closed when the stream ends.
func (c *Client) StreamContent(ctx context.Context, model, system string, contents []genai.Content) (<-chan genai.Chunk, error) {
	reqBody := generateRequest{Contents: contents}
	if system != "" {
		reqBody.SystemInstruction = &systemInstruction{Parts: []genai.Part{{Text: system}}}
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.modelURL(model, "streamGenerateContent") + "?alt=sse"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	ch := make(chan genai.Chunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" || payload == "[DONE]" {
				continue
			}

			var genResp generateResponse
			if err := json.Unmarshal([]byte(payload), &genResp); err != nil {
				ch <- genai.Chunk{Err: fmt.Errorf("parsing stream event: %w", err)}
				return
			}
			if len(genResp.Candidates) == 0 {
				continue
			}
			for _, part := range genResp.Candidates[0].Content.Parts {
				if part.Text == "" {
					continue
				}
				select {
				case ch <- genai.Chunk{Text: part.Text}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			ch <- genai.Chunk{Err: fmt.Errorf("reading stream: %w", err)}
		}
	}()

	return ch, nil
}

// GenerateImage requests exactly one image for the prompt via the
// Imagen :predict endpoint.
func (c *Client) GenerateImage(ctx context.Context, model, prompt, aspectRatio string) (*genai.Blob, error) {
	reqBody := predictRequest{
		Instances:  []predictInstance{{Prompt: prompt}},
		Parameters: predictParams{SampleCount: 1, AspectRatio: aspectRatio},
	}

	respBody, err := c.post(ctx, c.modelURL(model, "predict"), reqBody)
	if err != nil {
		return nil, err
	}

	var predResp predictResponse
	if err := json.Unmarshal(respBody, &predResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(predResp.Predictions) == 0 {
		return nil, fmt.Errorf("no predictions in response")
	}

	p := predResp.Predictions[0]
	mime := p.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return &genai.Blob{MimeType: mime, Data: p.BytesBase64Encoded}, nil
}

// StartVideo begins an asynchronous video generation job.
func (c *Client) StartVideo(ctx context.Context, model, prompt string) (*genai.Operation, error) {
	reqBody := predictRequest{
		Instances:  []predictInstance{{Prompt: prompt}},
		Parameters: predictParams{SampleCount: 1},
	}

	respBody, err := c.post(ctx, c.modelURL(model, "predictLongRunning"), reqBody)
	if err != nil {
		return nil, err
	}

	var op operationResponse
	if err := json.Unmarshal(respBody, &op); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if op.Name == "" {
		return nil, fmt.Errorf("no operation name in response")
	}
	return toOperation(&op), nil
}

// PollOperation returns the current status of a long-running job.
func (c *Client) PollOperation(ctx context.Context, name string) (*genai.Operation, error) {
	url := c.config.BaseURL + "/" + strings.TrimPrefix(name, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var op operationResponse
	if err := json.Unmarshal(respBody, &op); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return toOperation(&op), nil
}

// Download fetches the binary payload behind a result reference.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("download error (status %d): %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading payload: %w", err)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "video/mp4"
	}
	return data, mime, nil
}

func toOperation(op *operationResponse) *genai.Operation {
	out := &genai.Operation{
		Name: op.Name,
		Done: op.Done,
	}
	if op.Error != nil {
		out.Error = op.Error.Message
	}
	if op.Response != nil && len(op.Response.GenerateVideoResponse.GeneratedSamples) > 0 {
		out.VideoURI = op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	}
	return out
}
