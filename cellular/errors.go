package cellular

import "github.com/pkg/errors"

// Sentinel errors realizing the driver core's tagged error taxonomy
// (§7). The Context methods return them unwrapped, so they can be compared
// directly or with errors.Is.
var (
	// ErrInvalidHandle is returned by the query methods of a Context after
	// Cleanup, or once its worker has shut down.
	ErrInvalidHandle = errors.New("cellular: invalid handle")
	// ErrBadParameter is returned when a caller-supplied argument is
	// malformed (e.g. an empty PDN APN).
	ErrBadParameter = errors.New("cellular: bad parameter")
	// ErrNoMemory completes the taxonomy; no function in this package
	// returns it.
	ErrNoMemory = errors.New("cellular: no memory")
	// ErrTimeout is returned when a broker request exceeds its deadline or
	// its context is canceled.
	ErrTimeout = errors.New("cellular: timeout")
	// ErrInvalidData is returned when a modem response fails to parse.
	ErrInvalidData = errors.New("cellular: invalid data")
	// ErrUnknown is returned by GetRegisteredNetwork when the resolved RAT
	// is RATInvalid.
	ErrUnknown = errors.New("cellular: unknown error")
	// ErrNotAllowed completes the taxonomy; no function in this package
	// returns it.
	ErrNotAllowed = errors.New("cellular: not allowed")
	// ErrResourceCreationFail completes the taxonomy; Init starts its
	// worker and broker without a failure path, so it never returns it.
	ErrResourceCreationFail = errors.New("cellular: resource creation failed")
)
