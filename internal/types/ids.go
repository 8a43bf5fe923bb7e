// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type PersonaID string

func NewPersonaID() PersonaID {
	return PersonaID(uuid.New().String())
}
