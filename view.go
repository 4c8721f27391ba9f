package seqstore

import (
	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/internal/errs"
)

type cursorState uint8

const (
	unpositioned cursorState = iota
	positioned
	exhausted
)

// view is a region of an opened store together with a cursor. Ids passed to
// and returned from a view are relative to the region start.
type view struct {
	files  *storeFiles
	start  int64
	count  int64
	minLen uint64
	maxLen uint64

	state cursorState
	pos   int64

	log     *Logger
	metrics MetricsCollector
	closed  bool
}

func newView(f *storeFiles, o *options) (view, error) {
	v := view{
		files:   f,
		count:   f.lookup.Count(),
		minLen:  f.hdr.MinLength,
		maxLen:  f.hdr.MaxLength,
		log:     o.logger.WithStore(f.prefix),
		metrics: o.metricsCollector,
	}
	if !o.region {
		return v, nil
	}
	start, end := o.regionStart, o.regionEnd
	if start < 0 || start > end {
		return view{}, errs.Invalid("region [%d,%d)", start, end)
	}
	if end > v.count {
		v.log.Warn("region end clamped to sequence count",
			"requested", end,
			"count", v.count,
		)
		end = v.count
	}
	if start > end {
		return view{}, errs.Invalid("region start %d beyond sequence count %d", start, v.count)
	}
	v.start, v.count = start, end-start
	if v.count < f.lookup.Count() {
		v.minLen, v.maxLen = 0, 0
		for i, n := range f.lookup.Lengths(start, end) {
			if i == 0 || n < v.minLen {
				v.minLen = n
			}
			v.maxLen = max(v.maxLen, n)
		}
	}
	return v, nil
}

// fork returns a view over the same region with a fresh cursor.
// A fork of a closed view is closed.
func (v *view) fork() view {
	f := view{
		files:   v.files,
		start:   v.start,
		count:   v.count,
		minLen:  v.minLen,
		maxLen:  v.maxLen,
		log:     v.log,
		metrics: v.metrics,
		closed:  v.closed,
	}
	if !v.closed {
		f.files.acquire()
	}
	return f
}

func (v *view) checkID(id int64) error {
	if v.closed {
		return ErrClosed
	}
	if id < 0 || id >= v.count {
		return errs.Invalid("sequence id %d outside [0,%d)", id, v.count)
	}
	return nil
}

func (v *view) checkRange(start, end int64) error {
	if v.closed {
		return ErrClosed
	}
	if start < 0 || start > end || end > v.count {
		return errs.Invalid("range [%d,%d) outside [0,%d]", start, end, v.count)
	}
	return nil
}

// global maps a region id to a store id.
func (v *view) global(id int64) int64 { return v.start + id }

func (v *view) length(id int64) int {
	return int(v.files.lookup.Length(v.global(id)))
}

// Type returns the residue alphabet.
func (v *view) Type() alphabet.Type { return v.files.typ }

// Count returns the number of sequences visible through the reader.
func (v *view) Count() int64 { return v.count }

// StoreID returns the store identifier.
func (v *view) StoreID() StoreID { return StoreID(v.files.hdr.StoreID) }

// Arm returns the arm designation written with the store.
func (v *view) Arm() Arm { return Arm(v.files.hdr.Arm) }

// HasQuality reports whether the store carries quality data.
func (v *view) HasQuality() bool { return v.files.hdr.HasQuality() }

// HasNames reports whether the store carries names.
func (v *view) HasNames() bool { return v.files.names != nil }

// Advance moves to the next sequence.
func (v *view) Advance() bool {
	if v.closed {
		return false
	}
	switch v.state {
	case unpositioned:
		v.pos = 0
	case positioned:
		v.pos++
	case exhausted:
		return false
	}
	if v.pos >= v.count {
		v.state = exhausted
		return false
	}
	v.state = positioned
	return true
}

// Reset returns the cursor to the unpositioned state.
func (v *view) Reset() {
	v.state = unpositioned
	v.pos = 0
}

// seek positions the cursor at id.
func (v *view) seek(id int64) error {
	if err := v.checkID(id); err != nil {
		return err
	}
	v.pos = id
	v.state = positioned
	return nil
}

// current returns the positioned id.
func (v *view) current() (int64, error) {
	if v.closed {
		return 0, ErrClosed
	}
	switch v.state {
	case unpositioned:
		return 0, errs.State("reader is not positioned: call Advance or Seek first")
	case exhausted:
		return 0, errs.State("reader is exhausted: the last Advance returned false")
	}
	return v.pos, nil
}

// ID returns the id of the current sequence.
func (v *view) ID() (int64, error) { return v.current() }

// CurrentLength returns the length of the current sequence.
func (v *view) CurrentLength() (int, error) {
	id, err := v.current()
	if err != nil {
		return 0, err
	}
	return v.length(id), nil
}

// CurrentName returns the name of the current sequence.
func (v *view) CurrentName() (string, error) {
	id, err := v.current()
	if err != nil {
		return "", err
	}
	return v.files.name(v.global(id))
}

// Name returns the name of sequence id.
func (v *view) Name(id int64) (string, error) {
	if err := v.checkID(id); err != nil {
		return "", err
	}
	return v.files.name(v.global(id))
}

// Length returns the length of sequence id.
func (v *view) Length(id int64) (int, error) {
	if err := v.checkID(id); err != nil {
		return 0, err
	}
	return v.length(id), nil
}

// TotalLength returns the summed length of the visible sequences.
func (v *view) TotalLength() uint64 {
	return v.files.lookup.LengthBetween(v.start, v.start+v.count)
}

// MinLength returns the length of the shortest visible sequence.
func (v *view) MinLength() uint64 { return v.minLen }

// MaxLength returns the length of the longest visible sequence.
func (v *view) MaxLength() uint64 { return v.maxLen }

// LengthBetween returns the summed length of sequences [start, end).
func (v *view) LengthBetween(start, end int64) (uint64, error) {
	if err := v.checkRange(start, end); err != nil {
		return 0, err
	}
	return v.files.lookup.LengthBetween(v.global(start), v.global(end)), nil
}

// Lengths returns the length of every sequence in [start, end).
func (v *view) Lengths(start, end int64) ([]uint64, error) {
	if err := v.checkRange(start, end); err != nil {
		return nil, err
	}
	return v.files.lookup.Lengths(v.global(start), v.global(end)), nil
}

// ResidueCounts returns the residue histogram of the whole store, indexed
// by residue code.
func (v *view) ResidueCounts() []uint64 {
	return append([]uint64(nil), v.files.hdr.ResidueCounts...)
}

// QualityHistogram returns the quality histogram of the whole store,
// indexed by phred value, or nil without quality data.
func (v *view) QualityHistogram() []uint64 {
	if !v.HasQuality() {
		return nil
	}
	return append([]uint64(nil), v.files.hdr.QualityCounts...)
}

func (v *view) close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	return v.files.release()
}
