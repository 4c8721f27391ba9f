package seqstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/feed"
	"github.com/hupe1980/seqstore/internal/errs"
	"github.com/hupe1980/seqstore/internal/layout"
)

// PairSummary describes a finished paired store.
type PairSummary struct {
	Left  *Summary
	Right *Summary
}

// PairedWriter writes two correlated feeds into the sibling stores left/
// and right/ of one location. Both arms share a store identifier.
type PairedWriter struct {
	store blobstore.BlobStore
	opts  options
}

// NewPairedWriter returns a PairedWriter. WithArm is ignored.
func NewPairedWriter(store blobstore.BlobStore, optFns ...Option) *PairedWriter {
	return &PairedWriter{store: store, opts: applyOptions(optFns)}
}

// armOptions returns per-arm copies of o sharing one store identifier.
func armOptions(o options) (left, right options) {
	if o.storeID.IsZero() {
		o.storeID = NewStoreID()
	}
	left, right = o, o
	left.arm, right.arm = ArmLeft, ArmRight
	return left, right
}

func newPairBuilders(ctx context.Context, store blobstore.BlobStore, o options, lt, rt feedShape) (*builder, *builder, error) {
	lo, ro := armOptions(o)
	left, err := newBuilder(ctx, store, layout.LeftArm, lt.typ, lt.quality, &lo)
	if err != nil {
		return nil, nil, err
	}
	right, err := newBuilder(ctx, store, layout.RightArm, rt.typ, rt.quality, &ro)
	if err != nil {
		left.abort()
		return nil, nil, err
	}
	return left, right, nil
}

// finishPair writes both arms. The right INDEX is only written after the
// left one succeeded; if the right arm fails, the left INDEX is removed again.
func finishPair(left, right *builder) (*PairSummary, error) {
	if _, err := left.finish(); err != nil {
		right.abort()
		return nil, err
	}
	if _, err := right.finish(); err != nil {
		return nil, errors.Join(err, unfinish(left.ctx, left.store, left.prefix))
	}
	return &PairSummary{Left: left.summary(), Right: right.summary()}, nil
}

// Write consumes both feeds in lock step. Feeds of unequal length fail with
// ErrInvalidArgument and leave both arms without INDEX. The caller closes the
// feeds.
func (w *PairedWriter) Write(ctx context.Context, left, right feed.Feed) (*PairSummary, error) {
	start := time.Now()
	s, err := w.write(ctx, left, right)
	if err != nil {
		w.opts.metricsCollector.RecordWrite(0, 0, time.Since(start), err)
		w.opts.logger.LogWrite(ctx, nil, err)
		return nil, err
	}
	w.opts.metricsCollector.RecordWrite(s.Left.Count+s.Right.Count, s.Left.TotalLength+s.Right.TotalLength, time.Since(start), nil)
	w.opts.logger.WithArm(ArmLeft).LogWrite(ctx, s.Left, nil)
	w.opts.logger.WithArm(ArmRight).LogWrite(ctx, s.Right, nil)
	return s, nil
}

func (w *PairedWriter) write(ctx context.Context, lf, rf feed.Feed) (*PairSummary, error) {
	lb, rb, err := newPairBuilders(ctx, w.store, w.opts, shapeOf(lf), shapeOf(rf))
	if err != nil {
		return nil, err
	}
	abort := func(err error) (*PairSummary, error) {
		lb.abort()
		rb.abort()
		return nil, err
	}
	for {
		lok, rok := lf.Advance(), rf.Advance()
		if err := errors.Join(lf.Err(), rf.Err()); err != nil {
			return abort(fmt.Errorf("feed: %w", err))
		}
		if lok != rok {
			return abort(errs.Invalid("paired feeds differ in length: %s feed ended after %d records", endedArm(lok), lb.count))
		}
		if !lok {
			break
		}
		if err := lb.add(lf.Name(), lf.SequenceData(), lf.QualityData()); err != nil {
			return abort(err)
		}
		if err := rb.add(rf.Name(), rf.SequenceData(), rf.QualityData()); err != nil {
			return abort(err)
		}
	}
	return finishPair(lb, rb)
}

// unfinish deletes the INDEX of the store under prefix, marking it
// incomplete.
func unfinish(ctx context.Context, store blobstore.BlobStore, prefix string) error {
	return store.Delete(ctx, layout.Join(prefix, layout.IndexFile))
}

func endedArm(leftOK bool) string {
	if leftOK {
		return "right"
	}
	return "left"
}

type feedShape struct {
	typ     alphabet.Type
	quality bool
}

func shapeOf(f feed.Feed) feedShape {
	return feedShape{typ: f.Type(), quality: f.HasQualityData()}
}

// Pair holds readers over both arms of a paired store.
type Pair struct {
	Left  *FileReader
	Right *FileReader
}

// OpenPair opens both arms of the paired store at the root of store. The
// arms must have compatible identifiers and equal sequence counts.
func OpenPair(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*Pair, error) {
	o := applyOptions(optFns)
	left, err := openFileReader(ctx, store, layout.LeftArm, &o)
	if err != nil {
		return nil, err
	}
	right, err := openFileReader(ctx, store, layout.RightArm, &o)
	if err != nil {
		_ = left.Close()
		return nil, err
	}
	p := &Pair{Left: left, Right: right}
	if err := checkPair(left, right); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func checkPair(left, right *FileReader) error {
	if !left.StoreID().Compatible(right.StoreID()) {
		return fmt.Errorf("%w: store ids %s and %s differ", ErrIncompatiblePair, left.StoreID(), right.StoreID())
	}
	if lc, rc := left.Count(), right.Count(); lc != rc {
		return fmt.Errorf("%w: %d sequences on the left, %d on the right", ErrIncompatiblePair, lc, rc)
	}
	return nil
}

// Close closes both readers.
func (p *Pair) Close() error {
	return errors.Join(p.Left.Close(), p.Right.Close())
}
