package dfsblockcache

// errors.go enumerates the error kinds the cache surfaces. The cache never
// swallows I/O errors: stats are updated for the miss but no entry is
// inserted, and a failed load always leaves the table in a consistent
// state.
//
// © 2025 dfsblockcache authors. MIT License.

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the kind of failure; use errors.Is against
// these, and errors.As / Unwrap to recover a wrapped cause.
var (
	// ErrPackInvalid is returned once a BlockBasedFile's invalid flag has
	// been set; all subsequent reads against that file fail with this error
	// until the façade is discarded.
	ErrPackInvalid = errors.New("dfsblockcache: pack invalid")

	// ErrShortRead is returned when the channel returned fewer bytes than
	// requested despite a known stream length.
	ErrShortRead = errors.New("dfsblockcache: short read")

	// ErrChannelIO wraps an underlying DFS I/O failure.
	ErrChannelIO = errors.New("dfsblockcache: channel I/O error")

	// ErrLoadFailed is returned to single-flight waiters when the loader
	// callback for GetOrLoadRef returned a failure.
	ErrLoadFailed = errors.New("dfsblockcache: load failed")

	// ErrBudgetConfig indicates invalid construction-time configuration.
	ErrBudgetConfig = errors.New("dfsblockcache: invalid configuration")
)

// invalidError wraps ErrPackInvalid with the original cause that triggered
// the façade's invalid flag, so callers can recover why a file was marked
// invalid rather than just that it was.
type invalidError struct {
	cause error
}

func (e *invalidError) Error() string {
	return fmt.Sprintf("%s: %v", ErrPackInvalid, e.cause)
}

func (e *invalidError) Unwrap() []error { return []error{ErrPackInvalid, e.cause} }

func newInvalidError(cause error) error {
	if cause == nil {
		return ErrPackInvalid
	}
	return &invalidError{cause: cause}
}
