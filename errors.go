package seqstore

import (
	"github.com/hupe1980/seqstore/internal/errs"
)

// Error classes. Every error returned by this package matches at most one of
// them under errors.Is; low-level I/O errors are passed through wrapped.
var (
	// ErrInvalidArgument reports a caller contract violation detectable
	// without I/O: undersized buffers, out-of-range ids, malformed ranges.
	ErrInvalidArgument = errs.ErrInvalidArgument

	// ErrState reports a cursor accessor used while unpositioned or
	// exhausted, or a repeated read on a reader that forbids re-reads.
	ErrState = errs.ErrState

	// ErrCorrupt reports structural corruption. The concrete error is a
	// *CorruptError naming the offending file.
	ErrCorrupt = errs.ErrCorrupt

	// ErrNewerVersion reports a store written by a newer format version.
	ErrNewerVersion = errs.ErrNewerVersion

	// ErrNotStore reports a location that holds no complete store: the
	// index header is missing or unparsable.
	ErrNotStore = errs.ErrNotStore

	// ErrClosed reports use of a closed reader or writer.
	ErrClosed = errs.ErrClosed

	// ErrIncompatiblePair reports two arms that do not belong together.
	ErrIncompatiblePair = errs.ErrIncompatiblePair
)

// CorruptError describes structural corruption of one file of a store.
//
// It matches ErrCorrupt under errors.Is.
type CorruptError = errs.CorruptError
