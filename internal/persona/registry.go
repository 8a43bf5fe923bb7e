// internal/persona/registry.go
package persona

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/DjMdava/Nexus-AI-v2.0/internal/store"
	"github.com/DjMdava/Nexus-AI-v2.0/internal/types"
)

// DefaultID is the persona every fresh install starts with, and the
// fallback whenever the persisted selection no longer resolves.
const DefaultID types.PersonaID = "nexus"

// ErrBuiltin is returned when a save targets a built-in persona id.
var ErrBuiltin = errors.New("built-in personas are immutable")

// builtins are the fixed personas available in every installation.
// Order here is presentation order.
var builtins = []types.Persona{
	{
		ID:          DefaultID,
		Name:        "Nexus",
		Instruction: "You are Nexus, a helpful and creative AI assistant. Answer clearly and concisely.",
		Welcome:     "Hi! I'm Nexus. Ask me anything, or attach an image or audio clip.",
	},
	{
		ID:          "tutor",
		Name:        "Study Tutor",
		Instruction: "You are a patient tutor. Explain concepts step by step and check understanding with short questions.",
		Welcome:     "Hello! What would you like to learn about today?",
	},
	{
		ID:          "critic",
		Name:        "Art Critic",
		Instruction: "You are an insightful art critic. Give thoughtful, constructive feedback on creative work and images.",
		Welcome:     "Show me your work and I'll share an honest critique.",
	},
}

const (
	personaBucket = "personas"
	customKey     = "custom"
)

// Registry resolves personas with a two-tier lookup: user-defined entries
// first, fixed built-ins second. Only the custom tier is persisted.
type Registry struct {
	store *store.Store
	prefs *store.Prefs
}

// NewRegistry creates a Registry over the given store.
func NewRegistry(st *store.Store, prefs *store.Prefs) *Registry {
	return &Registry{store: st, prefs: prefs}
}

// loadCustom returns the persisted custom personas keyed by id.
// A missing or malformed collection reads as empty.
func (r *Registry) loadCustom() map[types.PersonaID]types.Persona {
	var customs []types.Persona
	r.store.Get(personaBucket, customKey, &customs)

	out := make(map[types.PersonaID]types.Persona, len(customs))
	for _, p := range customs {
		out[p.ID] = p
	}
	return out
}

func (r *Registry) saveCustom(customs map[types.PersonaID]types.Persona) error {
	list := make([]types.Persona, 0, len(customs))
	for _, p := range customs {
		list = append(list, p)
	}
	sortByCreation(list)
	return r.store.Put(personaBucket, customKey, list)
}

// sortByCreation orders personas oldest first, breaking creation-time
// ties on id so the order is the same on every read.
func sortByCreation(list []types.Persona) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

// IsBuiltin reports whether id names a built-in persona.
func IsBuiltin(id types.PersonaID) bool {
	for _, p := range builtins {
		if p.ID == id {
			return true
		}
	}
	return false
}

// List returns all personas: built-ins first in fixed order, then customs
// in creation order.
func (r *Registry) List() []types.Persona {
	out := make([]types.Persona, 0, len(builtins))
	out = append(out, builtins...)

	customs := r.loadCustom()
	list := make([]types.Persona, 0, len(customs))
	for _, p := range customs {
		list = append(list, p)
	}
	sortByCreation(list)
	return append(out, list...)
}

// Get resolves a persona id. Custom entries shadow built-ins on collision.
func (r *Registry) Get(id types.PersonaID) (types.Persona, bool) {
	if p, ok := r.loadCustom()[id]; ok {
		return p, true
	}
	for _, p := range builtins {
		if p.ID == id {
			return p, true
		}
	}
	return types.Persona{}, false
}

// Save upserts a custom persona. An empty id gets a generated one.
// Saving over a built-in id is rejected.
func (r *Registry) Save(p types.Persona) (types.Persona, error) {
	if IsBuiltin(p.ID) {
		return types.Persona{}, fmt.Errorf("save persona %s: %w", p.ID, ErrBuiltin)
	}
	if p.ID == "" {
		p.ID = types.NewPersonaID()
	}

	customs := r.loadCustom()
	if existing, ok := customs[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	customs[p.ID] = p

	if err := r.saveCustom(customs); err != nil {
		return types.Persona{}, err
	}
	return p, nil
}

// Delete removes a custom persona. Deleting a built-in is a no-op.
func (r *Registry) Delete(id types.PersonaID) error {
	if IsBuiltin(id) {
		return nil
	}
	customs := r.loadCustom()
	if _, ok := customs[id]; !ok {
		return nil
	}
	delete(customs, id)
	return r.saveCustom(customs)
}

// Active resolves the persisted selected persona, falling back to the
// default when the selection is unset or no longer resolves.
func (r *Registry) Active() types.Persona {
	if id := r.prefs.SelectedPersona(); id != "" {
		if p, ok := r.Get(id); ok {
			return p
		}
	}
	p, _ := r.Get(DefaultID)
	return p
}

// SetActive persists the selected persona id. Unknown ids are rejected.
func (r *Registry) SetActive(id types.PersonaID) (types.Persona, error) {
	p, ok := r.Get(id)
	if !ok {
		return types.Persona{}, fmt.Errorf("persona not found: %s", id)
	}
	if err := r.prefs.SetSelectedPersona(id); err != nil {
		return types.Persona{}, err
	}
	return p, nil
}
