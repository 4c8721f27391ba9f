// Package errs holds the error classes shared by every layer of the store.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for caller contract violations that are
	// detectable without I/O (undersized buffers, out-of-range ids, bad ranges).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrState is returned when a reader accessor is used in the wrong state,
	// e.g. reading the current sequence while unpositioned or exhausted.
	ErrState = errors.New("invalid reader state")

	// ErrCorrupt is returned when structural corruption is detected
	// (missing or truncated files, checksum mismatch, inconsistent pointers).
	ErrCorrupt = errors.New("store corrupt")

	// ErrNewerVersion is returned when a store was written by a newer format
	// version than this build understands.
	ErrNewerVersion = errors.New("store format is newer than supported, upgrade seqstore to read it")

	// ErrNotStore is returned when a location holds no recognizable store.
	ErrNotStore = errors.New("not a sequence store")

	// ErrClosed is returned when operating on a closed reader or writer.
	ErrClosed = errors.New("closed")

	// ErrIncompatiblePair is returned when two stores are not companions.
	ErrIncompatiblePair = errors.New("stores are not a compatible pair")
)

// CorruptError describes structural corruption of a single file.
type CorruptError struct {
	Path   string
	Reason string
	cause  error
}

// Corrupt returns a *CorruptError for path.
func Corrupt(path, reason string, cause error) error {
	return &CorruptError{Path: path, Reason: reason, cause: cause}
}

// Corruptf is Corrupt with a formatted reason.
func Corruptf(path, format string, args ...any) error {
	return &CorruptError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func (e *CorruptError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", ErrCorrupt, e.Path, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s: %s", ErrCorrupt, e.Path, e.Reason)
}

func (e *CorruptError) Unwrap() error { return e.cause }

// Is reports ErrCorrupt as a match.
func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }

// Invalid wraps ErrInvalidArgument with a formatted message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// State wraps ErrState with a formatted message.
func State(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}
