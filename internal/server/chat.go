// internal/server/chat.go
package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DjMdava/Nexus-AI-v2.0/internal/chat"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/persona"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/types"
)

func (s *Server) handleChatTranscript(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"persona":  s.session.Persona(),
		"messages": s.session.Transcript(),
	})
}

type chatRequest struct {
	Text       string       `json:"text"`
	Attachment *blobPayload `json:"attachment,omitempty"`
}

// handleChatSend relays the streamed reply as server-sent transcript
// snapshots. A send already in flight is answered with 409 before any
// stream output.
func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	var att *chat.Attachment
	if req.Attachment != nil {
		data, err := base64.StdEncoding.DecodeString(req.Attachment.Data)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "attachment data is not valid base64"})
			return
		}
		att = &chat.Attachment{Data: data, MimeType: req.Attachment.MimeType}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	// The update channel only joins the fan-out once the send is admitted,
	// so a rejected send answers 409 without ever opening a stream.
	updates := make(chan []types.Message, 32)
	defer s.subs.remove(updates)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.session.Send(r.Context(), req.Text, att, func() {
			s.subs.add(updates)
		})
	}()

	headersSent := false
	startStream := func() {
		if headersSent {
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		headersSent = true
	}

	for {
		select {
		case snapshot := <-updates:
			startStream()
			writeEvent(w, "transcript", snapshot)
			flusher.Flush()
		case err := <-errCh:
			if err != nil && !headersSent {
				writeError(w, err)
				return
			}
			startStream()
			if err != nil {
				writeEvent(w, "error", map[string]string{"error": err.Error()})
			} else {
				s.metrics.ChatMessages.WithLabelValues(types.RoleUser).Inc()
				s.metrics.ChatMessages.WithLabelValues(types.RoleModel).Inc()
				writeEvent(w, "done", s.session.Transcript())
			}
			flusher.Flush()
			return
		case <-r.Context().Done():
			return
		}
	}
}

type transcribeRequest struct {
	Audio blobPayload `json:"audio"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Audio.Data)
	if err != nil || len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "audio data is required"})
		return
	}

	text, err := s.session.TranscribeAudio(r.Context(), data, req.Audio.MimeType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handlePersonaList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"personas": s.personas.List(),
		"active":   s.personas.Active().ID,
	})
}

func (s *Server) handlePersonaSave(w http.ResponseWriter, r *http.Request) {
	var p types.Persona
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if p.Name == "" || p.Instruction == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and instruction are required"})
		return
	}

	saved, err := s.personas.Save(p)
	if err != nil {
		if errors.Is(err, persona.ErrBuiltin) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handlePersonaDelete(w http.ResponseWriter, r *http.Request) {
	id := types.PersonaID(r.PathValue("id"))
	if err := s.personas.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	// A deleted active persona falls back to the default on next resolve;
	// rebind the session so the transcript matches.
	active := s.personas.Active()
	if s.session.Persona().ID == id && active.ID != id {
		s.session.Reset(active)
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectPersonaRequest struct {
	ID types.PersonaID `json:"id"`
}

func (s *Server) handlePersonaSelect(w http.ResponseWriter, r *http.Request) {
	var req selectPersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	p, err := s.personas.SetActive(req.ID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.session.Reset(p)
	writeJSON(w, http.StatusOK, map[string]any{
		"persona":  p,
		"messages": s.session.Transcript(),
	})
}

type prefsPayload struct {
	SpeechEnabled bool `json:"speech_enabled"`
}

func (s *Server) handlePrefsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, prefsPayload{SpeechEnabled: s.prefs.SpeechEnabled()})
}

func (s *Server) handlePrefsPut(w http.ResponseWriter, r *http.Request) {
	var req prefsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := s.prefs.SetSpeechEnabled(req.SpeechEnabled); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, req)
}
