package seqstore

import (
	"context"
	"errors"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/internal/bitpack"
	"github.com/hupe1980/seqstore/internal/errs"
	"github.com/hupe1980/seqstore/internal/layout"
)

const extractBatch = 256

// extracted holds one record in packed form.
type extracted struct {
	name string
	seq  *bitpack.Array
	qual *bitpack.Array
}

// Extract writes the sequences selected by ids from src into a new store at
// the root of dst, preserving id order. A nil ids selects every sequence.
// Names and quality are carried over when src has them and the options do
// not drop them.
//
// Residues and qualities are copied as packed bytes. Reads are spread over
// copies of src; records are written in order by a single builder.
func Extract(ctx context.Context, src Source, ids *roaring64.Bitmap, dst blobstore.BlobStore, optFns ...Option) (*Summary, error) {
	o := applyOptions(optFns)
	start := time.Now()
	s, err := extract(ctx, src, ids, dst, "", &o)
	if err != nil {
		o.metricsCollector.RecordWrite(0, 0, time.Since(start), err)
		o.logger.LogWrite(ctx, nil, err)
		return nil, err
	}
	o.metricsCollector.RecordWrite(s.Count, s.TotalLength, s.Duration, nil)
	o.logger.WithStore("").LogWrite(ctx, s, nil)
	return s, nil
}

func extract(ctx context.Context, src Source, ids *roaring64.Bitmap, dst blobstore.BlobStore, prefix string, o *options) (*Summary, error) {
	count := uint64(src.Count())
	if ids != nil && !ids.IsEmpty() && ids.Maximum() >= count {
		return nil, errs.Invalid("id %d outside [0,%d)", ids.Maximum(), count)
	}
	o.names = o.names && src.HasNames()
	withQual := src.HasQuality() && o.quality

	b, err := newBuilder(ctx, dst, prefix, src.Type(), withQual, o)
	if err != nil {
		return nil, err
	}

	workers := o.controller().Workers()
	forks := make(chan Source, workers)
	for range workers {
		forks <- src.fork()
	}
	defer func() {
		close(forks)
		for f := range forks {
			_ = f.Close()
		}
	}()

	var it roaring64.IntIterable64
	if ids != nil {
		it = ids.Iterator()
	}
	var nextID uint64
	next := func() ([]int64, bool, error) {
		batch := make([]int64, 0, extractBatch)
		for len(batch) < extractBatch {
			switch {
			case it != nil && it.HasNext():
				batch = append(batch, int64(it.Next()))
			case it == nil && nextID < count:
				batch = append(batch, int64(nextID))
				nextID++
			default:
				return batch, len(batch) > 0, nil
			}
		}
		return batch, true, nil
	}

	process := func(ctx context.Context, batch []int64) ([]extracted, error) {
		r := <-forks
		defer func() { forks <- r }()
		out := make([]extracted, len(batch))
		for i, id := range batch {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rec, err := readRecord(r, id, o.names, withQual)
			if err != nil {
				return nil, err
			}
			out[i] = rec
		}
		return out, nil
	}

	emit := func(recs []extracted) error {
		for _, rec := range recs {
			if err := b.addPacked(rec.name, rec.seq, rec.qual); err != nil {
				return err
			}
		}
		return nil
	}

	if err := ProcessOrdered(ctx, workers, next, process, emit); err != nil {
		b.abort()
		return nil, err
	}
	if _, err := b.finish(); err != nil {
		return nil, err
	}
	return b.summary(), nil
}

// readRecord copies sequence id out of r without decoding its residues.
func readRecord(r Source, id int64, names, quality bool) (extracted, error) {
	var rec extracted
	n, err := r.Length(id)
	if err != nil {
		return rec, err
	}
	if rec.seq, err = bitpack.NewArray(r.Type().Width(), uint64(n)); err != nil {
		return rec, err
	}
	if quality {
		if rec.qual, err = bitpack.NewArray(alphabet.QualityWidth, uint64(n)); err != nil {
			return rec, err
		}
	}
	if err := r.appendPacked(id, rec.seq, rec.qual); err != nil {
		return rec, err
	}
	if names {
		if rec.name, err = r.Name(id); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// ExtractPair extracts the same ids from both arms of p into a new paired
// store at the root of dst. Both arms share a fresh store identifier unless
// WithStoreID is given.
func ExtractPair(ctx context.Context, p *Pair, ids *roaring64.Bitmap, dst blobstore.BlobStore, optFns ...Option) (*PairSummary, error) {
	o := applyOptions(optFns)
	lo, ro := armOptions(o)
	left, err := extract(ctx, p.Left, ids, dst, layout.LeftArm, &lo)
	if err != nil {
		return nil, err
	}
	right, err := extract(ctx, p.Right, ids, dst, layout.RightArm, &ro)
	if err != nil {
		return nil, errors.Join(err, unfinish(ctx, dst, layout.LeftArm))
	}
	return &PairSummary{Left: left, Right: right}, nil
}
