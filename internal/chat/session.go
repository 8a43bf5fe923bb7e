// internal/chat/session.go
package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/DjMdava/Nexus-AI-v2.0/internal/types"
	"github.com/DjMdava/Nexus-AI-v2.0/pkg/genai"
)

var (
	// ErrEmptyInput is returned when a send carries neither text nor an
	// attachment.
	ErrEmptyInput = errors.New("nothing to send")

	// ErrBusy is returned when a send or transcription is already in
	// flight. The caller should treat it as a disabled control, not a
	// failure.
	ErrBusy = errors.New("request already in flight")

	// ErrNoTranscript is returned when transcription produced no text.
	ErrNoTranscript = errors.New("no transcript in response")
)

// Attachment is a user-supplied binary artifact sent with a message.
type Attachment struct {
	Data     []byte
	MimeType string
}

// Session owns one live conversation bound to one persona. The transcript
// is an append-only message sequence reseeded on every persona change.
// At most one Send and one TranscribeAudio may be in flight at a time.
type Session struct {
	provider genai.Provider
	config   *genai.Config

	mu         sync.Mutex
	persona    types.Persona
	transcript []types.Message
	onUpdate   func([]types.Message)

	sendGate       *semaphore.Weighted
	transcribeGate *semaphore.Weighted
}

// NewSession creates a session seeded with the persona's welcome message.
func NewSession(provider genai.Provider, config *genai.Config, p types.Persona) *Session {
	s := &Session{
		provider:       provider,
		config:         config,
		sendGate:       semaphore.NewWeighted(1),
		transcribeGate: semaphore.NewWeighted(1),
	}
	s.Reset(p)
	return s
}

// Reset discards the transcript and reseeds it with the persona's welcome
// message.
func (s *Session) Reset(p types.Persona) {
	s.mu.Lock()
	s.persona = p
	s.transcript = []types.Message{{
		Role:  types.RoleModel,
		Parts: []types.MessagePart{{Text: p.Welcome}},
	}}
	s.mu.Unlock()
	s.notify()
}

// Persona returns the persona the session is currently bound to.
func (s *Session) Persona() types.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persona
}

// Transcript returns a snapshot copy of the message sequence.
func (s *Session) Transcript() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// OnUpdate registers a callback invoked with a transcript snapshot after
// every transcript change. Used by the HTTP layer to relay stream progress.
func (s *Session) OnUpdate(fn func([]types.Message)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onUpdate
	var snapshot []types.Message
	if fn != nil {
		snapshot = make([]types.Message, len(s.transcript))
		copy(snapshot, s.transcript)
	}
	s.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}

// Send appends a user message built from text and/or an attachment
// (attachment part first), then streams the model reply into a trailing
// model message chunk by chunk. Returns ErrBusy while another send is
// outstanding and ErrEmptyInput when there is nothing to send.
// The started hook, when non-nil, fires after the send is admitted and
// before the transcript changes, so a rejected send never sees updates.
func (s *Session) Send(ctx context.Context, text string, att *Attachment, started func()) error {
	if strings.TrimSpace(text) == "" && att == nil {
		return ErrEmptyInput
	}
	if !s.sendGate.TryAcquire(1) {
		return ErrBusy
	}
	defer s.sendGate.Release(1)
	if started != nil {
		started()
	}

	var parts []types.MessagePart
	if att != nil {
		parts = append(parts, types.MessagePart{InlineData: &types.InlineData{
			MimeType: att.MimeType,
			Data:     base64.StdEncoding.EncodeToString(att.Data),
		}})
	}
	if strings.TrimSpace(text) != "" {
		parts = append(parts, types.MessagePart{Text: text})
	}

	s.mu.Lock()
	s.transcript = append(s.transcript, types.Message{Role: types.RoleUser, Parts: parts})
	contents := toContents(s.transcript)
	system := s.persona.Instruction
	s.mu.Unlock()
	s.notify()

	stream, err := s.provider.StreamContent(ctx, s.config.ChatModel, system, contents)
	if err != nil {
		return fmt.Errorf("open chat stream: %w", err)
	}

	// The reply message exists before the first chunk arrives so observers
	// see a stable transcript length while it grows.
	s.mu.Lock()
	s.transcript = append(s.transcript, types.Message{
		Role:  types.RoleModel,
		Parts: []types.MessagePart{{Text: ""}},
	})
	s.mu.Unlock()
	s.notify()

	var acc string
	for chunk := range stream {
		if chunk.Err != nil {
			s.rollback()
			return fmt.Errorf("chat stream: %w", chunk.Err)
		}
		acc += chunk.Text
		s.mu.Lock()
		// Replace the trailing message value rather than mutating it so a
		// held snapshot never changes under an observer.
		s.transcript[len(s.transcript)-1] = types.Message{
			Role:  types.RoleModel,
			Parts: []types.MessagePart{{Text: acc}},
		}
		s.mu.Unlock()
		s.notify()
	}
	return nil
}

// rollback removes the partially built trailing model message after a
// mid-stream failure, leaving the transcript ending at the user message.
func (s *Session) rollback() {
	s.mu.Lock()
	if n := len(s.transcript); n > 0 && s.transcript[n-1].Role == types.RoleModel {
		s.transcript = s.transcript[:n-1]
	}
	s.mu.Unlock()
	s.notify()
	slog.Warn("chat stream failed, partial reply discarded")
}

// TranscribeAudio asks the model to transcribe an audio clip. The result
// feeds the pending input field, never the transcript. Independent of
// Send, but at most one transcription runs at a time.
func (s *Session) TranscribeAudio(ctx context.Context, data []byte, mimeType string) (string, error) {
	if !s.transcribeGate.TryAcquire(1) {
		return "", ErrBusy
	}
	defer s.transcribeGate.Release(1)

	contents := []genai.Content{{
		Role: types.RoleUser,
		Parts: []genai.Part{
			{InlineData: &genai.Blob{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
			{Text: "Transcribe this audio recording. Return only the spoken words."},
		},
	}}

	parts, err := s.provider.GenerateContent(ctx, s.config.ChatModel, "", contents)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	var texts []string
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	if len(texts) == 0 {
		return "", ErrNoTranscript
	}
	return strings.Join(texts, "\n"), nil
}

// toContents converts transcript messages to wire contents.
func toContents(messages []types.Message) []genai.Content {
	out := make([]genai.Content, 0, len(messages))
	for _, m := range messages {
		c := genai.Content{Role: m.Role}
		for _, p := range m.Parts {
			part := genai.Part{Text: p.Text}
			if p.InlineData != nil {
				part.InlineData = &genai.Blob{MimeType: p.InlineData.MimeType, Data: p.InlineData.Data}
			}
			c.Parts = append(c.Parts, part)
		}
		out = append(out, c)
	}
	return out
}
