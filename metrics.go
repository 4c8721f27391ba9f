package seqstore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordWrite is called after each write pass with the number of
	// sequences and residues written.
	RecordWrite(sequences, residues uint64, duration time.Duration, err error)

	// RecordChunk is called whenever a data chunk is closed.
	RecordChunk(chunk int, elements uint64)

	// RecordVerify is called after each verification.
	RecordVerify(duration time.Duration, valid bool, err error)

	// RecordRead is called after each sequence or quality read.
	RecordRead(elements int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordWrite(uint64, uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordChunk(int, uint64)                          {}
func (NoopMetricsCollector) RecordVerify(time.Duration, bool, error)          {}
func (NoopMetricsCollector) RecordRead(int, error)                            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	WriteCount       atomic.Int64
	WriteErrors      atomic.Int64
	WriteTotalNanos  atomic.Int64
	SequencesWritten atomic.Int64
	ResiduesWritten  atomic.Int64
	ChunksClosed     atomic.Int64
	VerifyCount      atomic.Int64
	VerifyFailures   atomic.Int64
	ReadCount        atomic.Int64
	ReadErrors       atomic.Int64
	ElementsRead     atomic.Int64
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(sequences, residues uint64, duration time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WriteErrors.Add(1)
		return
	}
	b.SequencesWritten.Add(int64(sequences))
	b.ResiduesWritten.Add(int64(residues))
}

// RecordChunk implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunk(int, uint64) {
	b.ChunksClosed.Add(1)
}

// RecordVerify implements MetricsCollector.
func (b *BasicMetricsCollector) RecordVerify(_ time.Duration, valid bool, err error) {
	b.VerifyCount.Add(1)
	if err != nil || !valid {
		b.VerifyFailures.Add(1)
	}
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(elements int, err error) {
	b.ReadCount.Add(1)
	if err != nil {
		b.ReadErrors.Add(1)
		return
	}
	b.ElementsRead.Add(int64(elements))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		WriteCount:       b.WriteCount.Load(),
		WriteErrors:      b.WriteErrors.Load(),
		WriteAvgNanos:    b.getAvgWriteNanos(),
		SequencesWritten: b.SequencesWritten.Load(),
		ResiduesWritten:  b.ResiduesWritten.Load(),
		ChunksClosed:     b.ChunksClosed.Load(),
		VerifyCount:      b.VerifyCount.Load(),
		VerifyFailures:   b.VerifyFailures.Load(),
		ReadCount:        b.ReadCount.Load(),
		ReadErrors:       b.ReadErrors.Load(),
		ElementsRead:     b.ElementsRead.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgWriteNanos() int64 {
	count := b.WriteCount.Load()
	if count == 0 {
		return 0
	}
	return b.WriteTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	WriteCount       int64
	WriteErrors      int64
	WriteAvgNanos    int64
	SequencesWritten int64
	ResiduesWritten  int64
	ChunksClosed     int64
	VerifyCount      int64
	VerifyFailures   int64
	ReadCount        int64
	ReadErrors       int64
	ElementsRead     int64
}
