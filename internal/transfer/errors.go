package transfer

import (
	"fmt"

	"github.com/soundvault/soundvault/internal/catalog"
)

// TransportError represents a network failure while fetching a reference,
// including non-2xx responses, connection errors and transport timeouts.
type TransportError struct {
	Reference  catalog.Reference
	StatusCode int   // HTTP status code, 0 for non-HTTP failures
	Err        error // Underlying error, if any
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport error fetching %s (HTTP %d)", e.Reference, e.StatusCode)
	}

	return fmt.Sprintf("transport error fetching %s: %v", e.Reference, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PersistError represents a failure to move a fully received payload into
// the cache namespace. The partial file has already been removed when this
// error surfaces.
type PersistError struct {
	Reference catalog.Reference
	Path      string // Destination path that could not be written
	Err       error  // Underlying error, if any
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist %s to %s: %v", e.Reference, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
