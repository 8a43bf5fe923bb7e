package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DjMdava/Nexus-AI-v2.0/internal/types"
	"github.com/DjMdava/Nexus-AI-v2.0/pkg/genai"
)

// fakeProvider scripts stream and generate responses for session tests.
type fakeProvider struct {
	mu          sync.Mutex
	chunks      []genai.Chunk
	streamErr   error
	hold        chan struct{} // when set, the stream stays open until closed
	parts       []genai.Part
	genErr      error
	gotContents []genai.Content
	gotSystem   string
}

func (f *fakeProvider) GenerateContent(_ context.Context, _, system string, contents []genai.Content) ([]genai.Part, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotSystem = system
	f.gotContents = contents
	return f.parts, f.genErr
}

func (f *fakeProvider) StreamContent(_ context.Context, _, system string, contents []genai.Content) (<-chan genai.Chunk, error) {
	f.mu.Lock()
	f.gotSystem = system
	f.gotContents = contents
	chunks := f.chunks
	hold := f.hold
	err := f.streamErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	ch := make(chan genai.Chunk)
	go func() {
		defer close(ch)
		for _, c := range chunks {
			ch <- c
		}
		if hold != nil {
			<-hold
		}
	}()
	return ch, nil
}

func (f *fakeProvider) GenerateImage(context.Context, string, string, string) (*genai.Blob, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) StartVideo(context.Context, string, string) (*genai.Operation, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) PollOperation(context.Context, string) (*genai.Operation, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) Download(context.Context, string) ([]byte, string, error) {
	return nil, "", errors.New("not implemented")
}

var testPersona = types.Persona{
	ID:          "test",
	Name:        "Test",
	Instruction: "be terse",
	Welcome:     "hello there",
}

func testConfig() *genai.Config {
	return &genai.Config{ChatModel: "test-model"}
}

func TestSessionSeededWithWelcome(t *testing.T) {
	s := NewSession(&fakeProvider{}, testConfig(), testPersona)

	transcript := s.Transcript()
	if len(transcript) != 1 {
		t.Fatalf("expected 1 message, got %d", len(transcript))
	}
	if transcript[0].Role != types.RoleModel || transcript[0].Text() != "hello there" {
		t.Errorf("unexpected welcome message: %+v", transcript[0])
	}
}

func TestStreamingReassembly(t *testing.T) {
	provider := &fakeProvider{
		chunks: []genai.Chunk{{Text: "Hel"}, {Text: "lo, "}, {Text: "world"}},
	}
	s := NewSession(provider, testConfig(), testPersona)

	var snapshots [][]types.Message
	s.OnUpdate(func(snap []types.Message) {
		snapshots = append(snapshots, snap)
	})

	if err := s.Send(context.Background(), "hi", nil, nil); err != nil {
		t.Fatal(err)
	}

	transcript := s.Transcript()
	if len(transcript) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(transcript))
	}
	if got := transcript[2].Text(); got != "Hello, world" {
		t.Errorf("expected reassembled reply, got %q", got)
	}
	if provider.gotSystem != "be terse" {
		t.Errorf("expected persona instruction as system prompt, got %q", provider.gotSystem)
	}

	// After the reply message appears, every intermediate snapshot keeps
	// the transcript length fixed; only the trailing message grows.
	var prev string
	for _, snap := range snapshots {
		if len(snap) != 3 {
			continue
		}
		text := snap[2].Text()
		if !strings.HasPrefix(text, prev) {
			t.Errorf("trailing message shrank: %q then %q", prev, text)
		}
		prev = text
	}
	if prev != "Hello, world" {
		t.Errorf("final snapshot text %q", prev)
	}
}

func TestRollbackOnStreamFailure(t *testing.T) {
	provider := &fakeProvider{
		chunks: []genai.Chunk{{Text: "Hel"}, {Err: errors.New("connection reset")}},
	}
	s := NewSession(provider, testConfig(), testPersona)

	err := s.Send(context.Background(), "hi", nil, nil)
	if err == nil {
		t.Fatal("expected stream failure")
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("expected remote message in error, got %v", err)
	}

	transcript := s.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected partial model message removed, got %d messages", len(transcript))
	}
	if transcript[1].Role != types.RoleUser {
		t.Errorf("transcript should end at the user message, ends with %s", transcript[1].Role)
	}
}

func TestSendEmptyInput(t *testing.T) {
	s := NewSession(&fakeProvider{}, testConfig(), testPersona)

	if err := s.Send(context.Background(), "", nil, nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
	if err := s.Send(context.Background(), "   ", nil, nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput for whitespace, got %v", err)
	}
	if len(s.Transcript()) != 1 {
		t.Error("empty send must not touch the transcript")
	}
}

func TestSingleFlightSend(t *testing.T) {
	hold := make(chan struct{})
	provider := &fakeProvider{
		chunks: []genai.Chunk{{Text: "working"}},
		hold:   hold,
	}
	s := NewSession(provider, testConfig(), testPersona)

	done := make(chan error, 1)
	go func() {
		done <- s.Send(context.Background(), "first", nil, nil)
	}()

	// Wait until the first send has appended its messages.
	deadline := time.After(2 * time.Second)
	for len(s.Transcript()) < 3 {
		select {
		case <-deadline:
			t.Fatal("first send never started streaming")
		case <-time.After(time.Millisecond):
		}
	}

	if err := s.Send(context.Background(), "second", nil, nil); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	close(hold)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	// Exactly one user message: the rejected send appended nothing.
	var users int
	for _, m := range s.Transcript() {
		if m.Role == types.RoleUser {
			users++
		}
	}
	if users != 1 {
		t.Errorf("expected 1 user message, got %d", users)
	}
}

func TestSendStartedHook(t *testing.T) {
	provider := &fakeProvider{chunks: []genai.Chunk{{Text: "ok"}}}
	s := NewSession(provider, testConfig(), testPersona)

	// The hook fires after admission, before any transcript change.
	var lenAtStart int
	if err := s.Send(context.Background(), "hi", nil, func() {
		lenAtStart = len(s.Transcript())
	}); err != nil {
		t.Fatal(err)
	}
	if lenAtStart != 1 {
		t.Errorf("hook must run before the user message is appended, saw %d messages", lenAtStart)
	}

	// A rejected send never reaches the hook.
	hold := make(chan struct{})
	provider.hold = hold
	done := make(chan error, 1)
	go func() {
		done <- s.Send(context.Background(), "first", nil, nil)
	}()
	deadline := time.After(2 * time.Second)
	for len(s.Transcript()) < 5 {
		select {
		case <-deadline:
			t.Fatal("held send never started streaming")
		case <-time.After(time.Millisecond):
		}
	}
	hookRan := false
	if err := s.Send(context.Background(), "second", nil, func() { hookRan = true }); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if hookRan {
		t.Error("started hook must not fire for a rejected send")
	}
	close(hold)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestAttachmentPartOrdering(t *testing.T) {
	provider := &fakeProvider{chunks: []genai.Chunk{{Text: "ok"}}}
	s := NewSession(provider, testConfig(), testPersona)

	att := &Attachment{Data: []byte{1, 2, 3}, MimeType: "image/png"}
	if err := s.Send(context.Background(), "look at this", att, nil); err != nil {
		t.Fatal(err)
	}

	transcript := s.Transcript()
	userMsg := transcript[1]
	if len(userMsg.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(userMsg.Parts))
	}
	if userMsg.Parts[0].InlineData == nil {
		t.Error("attachment must be the first part")
	}
	if userMsg.Parts[1].Text != "look at this" {
		t.Errorf("text must be the second part, got %+v", userMsg.Parts[1])
	}
}

func TestResetReseedsTranscript(t *testing.T) {
	provider := &fakeProvider{chunks: []genai.Chunk{{Text: "reply"}}}
	s := NewSession(provider, testConfig(), testPersona)

	if err := s.Send(context.Background(), "hi", nil, nil); err != nil {
		t.Fatal(err)
	}
	if len(s.Transcript()) != 3 {
		t.Fatal("setup failed")
	}

	other := types.Persona{ID: "other", Name: "Other", Instruction: "x", Welcome: "new greeting"}
	s.Reset(other)

	transcript := s.Transcript()
	if len(transcript) != 1 {
		t.Fatalf("expected reseeded transcript, got %d messages", len(transcript))
	}
	if transcript[0].Text() != "new greeting" {
		t.Errorf("expected new welcome, got %q", transcript[0].Text())
	}
	if s.Persona().ID != "other" {
		t.Errorf("persona not rebound: %s", s.Persona().ID)
	}
}

func TestTranscribeAudio(t *testing.T) {
	provider := &fakeProvider{
		parts: []genai.Part{{Text: "hello"}, {Text: "world"}},
	}
	s := NewSession(provider, testConfig(), testPersona)

	text, err := s.TranscribeAudio(context.Background(), []byte("audio"), "audio/webm")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello\nworld" {
		t.Errorf("expected joined text, got %q", text)
	}
	if len(s.Transcript()) != 1 {
		t.Error("transcription must not touch the transcript")
	}
	if len(provider.gotContents) != 1 || provider.gotContents[0].Parts[0].InlineData == nil {
		t.Error("expected audio sent as inline data")
	}
}

func TestTranscribeAudioEmpty(t *testing.T) {
	s := NewSession(&fakeProvider{}, testConfig(), testPersona)

	if _, err := s.TranscribeAudio(context.Background(), []byte("x"), "audio/webm"); !errors.Is(err, ErrNoTranscript) {
		t.Errorf("expected ErrNoTranscript, got %v", err)
	}
}
