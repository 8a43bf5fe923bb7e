// internal/server/server.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DjMdava/Nexus-AI-v2.0/internal/chat"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/media"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/metrics"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/persona"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/store"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/types"
)

// Server exposes the four studio modes over an HTTP JSON API plus a
// minimal embedded page. It is the only component that touches the
// history store, so failures in persistence never block a generation.
type Server struct {
	media    *media.Client
	session  *chat.Session
	personas *persona.Registry
	history  *store.HistoryStore
	prefs    *store.Prefs
	metrics  *metrics.Metrics
	mux      *http.ServeMux

	subs *subscribers
}

// New creates a Server wired to the given components.
func New(mc *media.Client, session *chat.Session, personas *persona.Registry, history *store.HistoryStore, prefs *store.Prefs, m *metrics.Metrics) *Server {
	s := &Server{
		media:    mc,
		session:  session,
		personas: personas,
		history:  history,
		prefs:    prefs,
		metrics:  m,
		mux:      http.NewServeMux(),
		subs:     newSubscribers(),
	}
	session.OnUpdate(s.subs.broadcast)

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	s.mux.HandleFunc("GET /", s.handleIndex)

	s.mux.HandleFunc("POST /api/image", s.handleImage)
	s.mux.HandleFunc("POST /api/video", s.handleVideo)
	s.mux.HandleFunc("POST /api/edit", s.handleEdit)
	s.mux.HandleFunc("GET /api/history/{collection}", s.handleHistoryList)
	s.mux.HandleFunc("DELETE /api/history/{collection}", s.handleHistoryClear)

	s.mux.HandleFunc("GET /api/chat", s.handleChatTranscript)
	s.mux.HandleFunc("POST /api/chat", s.handleChatSend)
	s.mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)

	s.mux.HandleFunc("GET /api/personas", s.handlePersonaList)
	s.mux.HandleFunc("POST /api/personas", s.handlePersonaSave)
	s.mux.HandleFunc("DELETE /api/personas/{id}", s.handlePersonaDelete)
	s.mux.HandleFunc("PUT /api/personas/active", s.handlePersonaSelect)

	s.mux.HandleFunc("GET /api/preferences", s.handlePrefsGet)
	s.mux.HandleFunc("PUT /api/preferences", s.handlePrefsPut)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.metrics.RequestsInFlight.Inc()
	defer s.metrics.RequestsInFlight.Dec()
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps component errors onto HTTP statuses and a JSON body.
// The body never clears client state; the page keeps prompt and inputs.
func writeError(w http.ResponseWriter, err error) {
	var refusal *media.RefusalError
	switch {
	case errors.Is(err, media.ErrEmptyPrompt),
		errors.Is(err, media.ErrInvalidAspect),
		errors.Is(err, chat.ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, chat.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &refusal):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": "the model did not return an image",
			"text":  refusal.Text,
		})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}

// blobPayload is an inline binary attachment in request bodies.
type blobPayload struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

// subscribers fans transcript snapshots out to the in-flight chat
// requests. Registrations are independent; adding or removing one
// listener never disturbs another.
type subscribers struct {
	mu  sync.Mutex
	set map[chan []types.Message]struct{}
}

func newSubscribers() *subscribers {
	return &subscribers{set: make(map[chan []types.Message]struct{})}
}

// broadcast delivers a snapshot to every registered listener, skipping
// any whose buffer is saturated.
func (s *subscribers) broadcast(snapshot []types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.set {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (s *subscribers) add(ch chan []types.Message) {
	s.mu.Lock()
	s.set[ch] = struct{}{}
	s.mu.Unlock()
}

// remove tolerates channels that were never registered.
func (s *subscribers) remove(ch chan []types.Message) {
	s.mu.Lock()
	delete(s.set, ch)
	s.mu.Unlock()
}
