// internal/media/errors.go
package media

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPrompt is returned when a request carries no prompt text.
	ErrEmptyPrompt = errors.New("prompt must not be empty")

	// ErrInvalidAspect is returned for an unrecognized aspect ratio.
	ErrInvalidAspect = errors.New("invalid aspect ratio")

	// ErrNoOutput is returned when the remote service produced no result.
	ErrNoOutput = errors.New("remote service returned no output")

	// ErrEmptyResponse is returned when an edit response carried neither
	// an image nor any text.
	ErrEmptyResponse = errors.New("remote service returned neither image nor text")

	// ErrPollTimeout is returned when a video job does not finish within
	// the maximum wait.
	ErrPollTimeout = errors.New("video generation timed out")
)

// RefusalError is returned when an edit response contained text but no
// image: the service answered instead of editing.
type RefusalError struct {
	Text string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("service returned no image: %q", e.Text)
}
