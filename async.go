package seqstore

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/feed"
)

type recordPair struct {
	left  feed.Record
	right feed.Record
}

// AsyncPairedWriter writes paired records on a background goroutine so the
// producer is not serialized on chunk I/O.
//
// Records are passed through a bounded queue; Add blocks while it is full.
// An error of the background writer is returned by the next Add and by
// every later one, and again by Close. Add and Close must not be called
// concurrently.
type AsyncPairedWriter struct {
	opts  options
	left  *builder
	right *builder
	start time.Time

	queue  chan recordPair
	failed chan struct{} // closed when the background writer stops on error
	exited chan struct{}

	mu  sync.Mutex
	err error

	closed bool
}

// NewAsyncPairedWriter starts a paired writer for records of typ. quality
// declares whether records carry quality values. ctx bounds the background
// writes.
func NewAsyncPairedWriter(ctx context.Context, store blobstore.BlobStore, typ alphabet.Type, quality bool, optFns ...Option) (*AsyncPairedWriter, error) {
	o := applyOptions(optFns)
	shape := feedShape{typ: typ, quality: quality}
	left, right, err := newPairBuilders(ctx, store, o, shape, shape)
	if err != nil {
		return nil, err
	}
	w := &AsyncPairedWriter{
		opts:   o,
		left:   left,
		right:  right,
		start:  time.Now(),
		queue:  make(chan recordPair, o.queueSize),
		failed: make(chan struct{}),
		exited: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *AsyncPairedWriter) run() {
	defer close(w.exited)
	for p := range w.queue {
		err := w.left.add(p.left.Name, p.left.Sequence, p.left.Quality)
		if err == nil {
			err = w.right.add(p.right.Name, p.right.Sequence, p.right.Quality)
		}
		if err != nil {
			w.setErr(err)
			close(w.failed)
			return
		}
	}
}

func (w *AsyncPairedWriter) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

// Err returns the first background error.
func (w *AsyncPairedWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func cloneRecord(r feed.Record) feed.Record {
	return feed.Record{
		Name:     r.Name,
		Sequence: bytes.Clone(r.Sequence),
		Quality:  bytes.Clone(r.Quality),
	}
}

// Add queues one record per arm. The records are copied.
func (w *AsyncPairedWriter) Add(ctx context.Context, left, right feed.Record) error {
	if w.closed {
		return ErrClosed
	}
	if err := w.Err(); err != nil {
		return err
	}
	p := recordPair{left: cloneRecord(left), right: cloneRecord(right)}
	select {
	case w.queue <- p:
		return nil
	case <-w.failed:
		return w.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue, finishes both arms and returns the first error.
// On error neither arm gets an INDEX.
func (w *AsyncPairedWriter) Close() (*PairSummary, error) {
	if w.closed {
		return nil, ErrClosed
	}
	w.closed = true
	close(w.queue)
	<-w.exited

	if err := w.Err(); err != nil {
		w.left.abort()
		w.right.abort()
		w.opts.metricsCollector.RecordWrite(0, 0, time.Since(w.start), err)
		return nil, err
	}
	s, err := finishPair(w.left, w.right)
	w.opts.metricsCollector.RecordWrite(w.left.count+w.right.count, w.left.total+w.right.total, time.Since(w.start), err)
	if err != nil {
		w.opts.logger.LogWrite(w.left.ctx, nil, err)
		return nil, err
	}
	w.opts.logger.WithArm(ArmLeft).LogWrite(w.left.ctx, s.Left, nil)
	w.opts.logger.WithArm(ArmRight).LogWrite(w.left.ctx, s.Right, nil)
	return s, nil
}
