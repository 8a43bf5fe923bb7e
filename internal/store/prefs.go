// internal/store/prefs.go
package store

import (
	"github.com/DjMdava/Nexus-AI-v2.0/internal/types"
)

const prefsBucket = "prefs"

const (
	keySelectedPersona = "selected_persona"
	keySpeechEnabled   = "speech_enabled"
)

// Prefs persists small user preference flags.
type Prefs struct {
	store *Store
}

// NewPrefs creates a Prefs view over the given Store.
func NewPrefs(store *Store) *Prefs {
	return &Prefs{store: store}
}

// SelectedPersona returns the persisted active persona id, or "" if unset.
func (p *Prefs) SelectedPersona() types.PersonaID {
	var id types.PersonaID
	p.store.Get(prefsBucket, keySelectedPersona, &id)
	return id
}

// SetSelectedPersona persists the active persona id.
func (p *Prefs) SetSelectedPersona(id types.PersonaID) error {
	return p.store.Put(prefsBucket, keySelectedPersona, id)
}

// SpeechEnabled returns the persisted text-to-speech flag, defaulting to false.
func (p *Prefs) SpeechEnabled() bool {
	var enabled bool
	p.store.Get(prefsBucket, keySpeechEnabled, &enabled)
	return enabled
}

// SetSpeechEnabled persists the text-to-speech flag.
func (p *Prefs) SetSpeechEnabled(enabled bool) error {
	return p.store.Put(prefsBucket, keySpeechEnabled, enabled)
}
