// internal/server/media.go
package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/DjMdava/Nexus-AI-v2.0/internal/store"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/types"
	"github.com/DjMdava/Nexus-AI-v2.0/pkg/genai"
)

type imageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.AspectRatio == "" {
		req.AspectRatio = types.AspectSquare
	}

	url, err := s.media.GenerateImage(r.Context(), req.Prompt, req.AspectRatio)
	if err != nil {
		s.metrics.GenerationsTotal.WithLabelValues("image", "error").Inc()
		writeError(w, err)
		return
	}
	s.metrics.GenerationsTotal.WithLabelValues("image", "ok").Inc()

	rec := &types.HistoryRecord{
		ID:          time.Now().UnixMilli(),
		Prompt:      req.Prompt,
		ResultURL:   url,
		AspectRatio: req.AspectRatio,
	}
	// Persistence failures never block the result.
	if err := s.history.Append(store.HistoryGenerate, rec); err != nil {
		slog.Error("append generation history failed", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"url": url, "record": rec})
}

type videoRequest struct {
	Prompt string `json:"prompt"`
}

// handleVideo streams progress over server-sent events while the video
// job polls, then delivers the result (or failure) as the final event.
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	progress := make(chan struct{}, 8)
	type outcome struct {
		url string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		url, err := s.media.GenerateVideo(r.Context(), req.Prompt, func() {
			select {
			case progress <- struct{}{}:
			default:
			}
		})
		done <- outcome{url: url, err: err}
	}()

	polls := 0
	for {
		select {
		case <-progress:
			polls++
			writeEvent(w, "progress", map[string]int{"polls": polls})
			flusher.Flush()
		case out := <-done:
			s.metrics.VideoPolls.Observe(float64(polls))
			if out.err != nil {
				s.metrics.GenerationsTotal.WithLabelValues("video", "error").Inc()
				writeEvent(w, "error", map[string]string{"error": out.err.Error()})
			} else {
				s.metrics.GenerationsTotal.WithLabelValues("video", "ok").Inc()
				writeEvent(w, "result", map[string]string{"url": out.url})
			}
			flusher.Flush()
			return
		case <-r.Context().Done():
			return
		}
	}
}

type editRequest struct {
	Prompt string      `json:"prompt"`
	Image  blobPayload `json:"image"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Image.Data == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image is required"})
		return
	}
	if _, err := base64.StdEncoding.DecodeString(req.Image.Data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image data is not valid base64"})
		return
	}

	result, err := s.media.EditImage(r.Context(), req.Prompt, genai.Blob{
		MimeType: req.Image.MimeType,
		Data:     req.Image.Data,
	})
	if err != nil {
		s.metrics.GenerationsTotal.WithLabelValues("edit", "error").Inc()
		writeError(w, err)
		return
	}
	s.metrics.GenerationsTotal.WithLabelValues("edit", "ok").Inc()

	rec := &types.HistoryRecord{
		ID:        time.Now().UnixMilli(),
		Prompt:    req.Prompt,
		ResultURL: result.ImageURL,
		SourceURL: "data:" + req.Image.MimeType + ";base64," + req.Image.Data,
	}
	if err := s.history.Append(store.HistoryEdit, rec); err != nil {
		slog.Error("append edit history failed", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"url":    result.ImageURL,
		"text":   result.Text,
		"record": rec,
	})
}

// validCollections maps URL path values to store collection names.
var validCollections = map[string]string{
	"generate": store.HistoryGenerate,
	"edit":     store.HistoryEdit,
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	collection, ok := validCollections[r.PathValue("collection")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown collection"})
		return
	}
	writeJSON(w, http.StatusOK, s.history.List(collection))
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	collection, ok := validCollections[r.PathValue("collection")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown collection"})
		return
	}
	if err := s.history.Clear(collection); err != nil {
		slog.Error("clear history failed", "collection", collection, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeEvent writes one server-sent event with a JSON payload.
func writeEvent(w http.ResponseWriter, event string, v any) {
	data, _ := json.Marshal(v)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
