package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/DjMdava/Nexus-AI-v2.0/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	type pref struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := s.Put("bucket", "key", pref{Name: "a", Count: 3}); err != nil {
		t.Fatal(err)
	}

	var got pref
	if !s.Get("bucket", "key", &got) {
		t.Fatal("expected value to be present")
	}
	if got.Name != "a" || got.Count != 3 {
		t.Errorf("unexpected value: %+v", got)
	}
}

func TestStoreMissingKey(t *testing.T) {
	s := openTestStore(t)

	var got string
	if s.Get("nope", "missing", &got) {
		t.Error("expected absent for missing bucket")
	}

	if err := s.Put("b", "other", "x"); err != nil {
		t.Fatal(err)
	}
	if s.Get("b", "missing", &got) {
		t.Error("expected absent for missing key")
	}
}

func TestStoreMalformedValueReadsAsAbsent(t *testing.T) {
	s := openTestStore(t)

	// A string is valid JSON but not decodable into a slice; the read
	// must fall back to absent rather than erroring.
	if err := s.Put("b", "k", "not a list"); err != nil {
		t.Fatal(err)
	}
	var got []int
	if s.Get("b", "k", &got) {
		t.Error("expected malformed value to read as absent")
	}
}

func TestStoreDelete(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put("b", "k", 42); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("b", "k"); err != nil {
		t.Fatal(err)
	}
	var got int
	if s.Get("b", "k", &got) {
		t.Error("expected value gone after delete")
	}

	// Deleting a missing key is not an error.
	if err := s.Delete("b", "k"); err != nil {
		t.Errorf("delete of missing key: %v", err)
	}
}

func TestHistoryCap(t *testing.T) {
	s := openTestStore(t)
	h := NewHistoryStore(s)

	for i := 0; i < MaxHistory+5; i++ {
		rec := &types.HistoryRecord{
			ID:        int64(i),
			Prompt:    fmt.Sprintf("prompt %d", i),
			ResultURL: "data:image/png;base64,AA==",
		}
		if err := h.Append(HistoryGenerate, rec); err != nil {
			t.Fatal(err)
		}
	}

	records := h.List(HistoryGenerate)
	if len(records) != MaxHistory {
		t.Fatalf("expected %d records, got %d", MaxHistory, len(records))
	}
	// Newest first: ids MaxHistory+4 down to 5.
	for i, rec := range records {
		want := int64(MaxHistory + 4 - i)
		if rec.ID != want {
			t.Errorf("record %d: expected id %d, got %d", i, want, rec.ID)
		}
	}
}

func TestHistoryCollectionsIndependent(t *testing.T) {
	s := openTestStore(t)
	h := NewHistoryStore(s)

	if err := h.Append(HistoryGenerate, &types.HistoryRecord{ID: 1, Prompt: "gen"}); err != nil {
		t.Fatal(err)
	}
	if err := h.Append(HistoryEdit, &types.HistoryRecord{ID: 2, Prompt: "edit"}); err != nil {
		t.Fatal(err)
	}

	if got := h.List(HistoryGenerate); len(got) != 1 || got[0].Prompt != "gen" {
		t.Errorf("unexpected generate history: %+v", got)
	}
	if got := h.List(HistoryEdit); len(got) != 1 || got[0].Prompt != "edit" {
		t.Errorf("unexpected edit history: %+v", got)
	}
}

func TestHistoryClear(t *testing.T) {
	s := openTestStore(t)
	h := NewHistoryStore(s)

	if err := h.Append(HistoryEdit, &types.HistoryRecord{ID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := h.Clear(HistoryEdit); err != nil {
		t.Fatal(err)
	}
	if got := h.List(HistoryEdit); len(got) != 0 {
		t.Errorf("expected empty history after clear, got %d records", len(got))
	}
}

func TestPrefs(t *testing.T) {
	s := openTestStore(t)
	p := NewPrefs(s)

	if p.SpeechEnabled() {
		t.Error("speech should default to disabled")
	}
	if err := p.SetSpeechEnabled(true); err != nil {
		t.Fatal(err)
	}
	if !p.SpeechEnabled() {
		t.Error("speech flag did not persist")
	}

	if got := p.SelectedPersona(); got != "" {
		t.Errorf("expected empty selection, got %q", got)
	}
	if err := p.SetSelectedPersona("tutor"); err != nil {
		t.Fatal(err)
	}
	if got := p.SelectedPersona(); got != "tutor" {
		t.Errorf("expected tutor, got %q", got)
	}
}
