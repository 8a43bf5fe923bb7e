// internal/types/models.go
package types

import (
	"time"
)

// Role identifies the author of a transcript message.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// InlineData is a binary payload carried inside a message part,
// base64-encoded for transport.
type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// MessagePart is a tagged union: exactly one of Text or InlineData is set.
type MessagePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// Message is one turn in a conversation transcript. Parts is never empty.
type Message struct {
	Role  string        `json:"role"`
	Parts []MessagePart `json:"parts"`
}

// Text returns the concatenated text content of all text parts.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		out += p.Text
	}
	return out
}

// Persona is a named system-instruction profile for the chat session.
type Persona struct {
	ID          PersonaID `json:"id"`
	Name        string    `json:"name"`
	Instruction string    `json:"instruction"`
	Welcome     string    `json:"welcome"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// AspectRatio options accepted by the image endpoints.
const (
	AspectSquare    = "square"
	AspectLandscape = "landscape"
	AspectPortrait  = "portrait"
)

// HistoryRecord is a persisted snapshot of one generation or edit result.
// ID is a millisecond timestamp, monotonic within one process.
type HistoryRecord struct {
	ID          int64  `json:"id"`
	Prompt      string `json:"prompt"`
	ResultURL   string `json:"result_url"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}
