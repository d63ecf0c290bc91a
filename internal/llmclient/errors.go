package llmclient

import (
	"errors"
	"fmt"
)

// ErrEmptyReply is returned when a provider answers with no usable content.
var ErrEmptyReply = errors.New("llmclient: empty reply from model")

// CallError is the error descriptor surfaced by provider clients. Message is
// always set; Code and Status are filled when the provider exposes them.
// The retry layer classifies errors by matching configured patterns against
// all three fields.
type CallError struct {
	Message string
	Code    string
	Status  int
}

func (e *CallError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is marked as non-recoverable.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
