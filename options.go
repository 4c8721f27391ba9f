package seqstore

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/seqstore/internal/cache"
	"github.com/hupe1980/seqstore/internal/resource"
)

const (
	// DefaultMaxChunkBytes bounds the packed size of a data chunk.
	DefaultMaxChunkBytes = 64 << 20

	// DefaultNameCacheBytes bounds decoded name chunks held by a reader.
	DefaultNameCacheBytes = 16 << 20

	// DefaultQueueSize is the record queue length of AsyncPairedWriter.
	DefaultQueueSize = 1024
)

// ResourceLimits bounds workers, memory and IO of verification, extraction
// and copies.
type ResourceLimits = resource.Config

type options struct {
	maxChunkBytes   uint64
	storeID         StoreID
	arm             Arm
	notes           string
	provenance      map[string]string
	nameCompression Compression
	names           bool
	quality         bool

	regionStart int64
	regionEnd   int64
	region      bool

	nameCacheBytes int64
	queueSize      int
	limits         *ResourceLimits

	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures writers, readers and the verifier. Options that do not
// apply to an operation are ignored by it.
type Option func(*options)

// WithMaxChunkBytes bounds the packed size of each data and quality chunk
// and the raw size of each name chunk. Values below 1 are raised to 1.
func WithMaxChunkBytes(n uint64) Option {
	return func(o *options) {
		if n == 0 {
			n = 1
		}
		o.maxChunkBytes = n
	}
}

// WithStoreID sets the store identifier. By default a writer draws a random
// one.
func WithStoreID(id StoreID) Option {
	return func(o *options) {
		o.storeID = id
	}
}

// WithArm records which half of a paired store is written.
func WithArm(arm Arm) Option {
	return func(o *options) {
		o.arm = arm
	}
}

// WithNotes stores free text in the header and in NOTES.json.
func WithNotes(notes string) Option {
	return func(o *options) {
		o.notes = notes
	}
}

// WithProvenance records a key/value pair in NOTES.json. It may be given
// multiple times.
func WithProvenance(key, value string) Option {
	return func(o *options) {
		if o.provenance == nil {
			o.provenance = make(map[string]string)
		}
		o.provenance[key] = value
	}
}

// WithNameCompression selects the block compression of name chunks.
func WithNameCompression(c Compression) Option {
	return func(o *options) {
		o.nameCompression = c
	}
}

// WithoutNames drops sequence names.
func WithoutNames() Option {
	return func(o *options) {
		o.names = false
	}
}

// WithoutQuality drops quality data even when the feed carries it.
func WithoutQuality() Option {
	return func(o *options) {
		o.quality = false
	}
}

// WithRegion bounds a reader to the sequences [start, end). Ids seen through
// the reader are relative to start. An end beyond the store is clamped.
func WithRegion(start, end int64) Option {
	return func(o *options) {
		o.regionStart = start
		o.regionEnd = end
		o.region = true
	}
}

// WithNameCacheBytes bounds the decoded name chunks a reader keeps.
func WithNameCacheBytes(n int64) Option {
	return func(o *options) {
		o.nameCacheBytes = n
	}
}

// WithQueueSize sets the record queue length of AsyncPairedWriter.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithResourceLimits bounds workers, memory and IO bandwidth.
func WithResourceLimits(limits ResourceLimits) Option {
	return func(o *options) {
		o.limits = &limits
	}
}

// WithMetrics configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &seqstore.BasicMetricsCollector{}
//	w := seqstore.NewWriter(store, seqstore.WithMetrics(metrics))
//	// ... write ...
//	stats := metrics.GetStats()
//	fmt.Printf("Sequences: %d, Chunks: %d\n", stats.SequencesWritten, stats.ChunksClosed)
func WithMetrics(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := seqstore.NewJSONLogger(slog.LevelInfo)
//	r, _ := seqstore.Open(ctx, store, seqstore.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		maxChunkBytes:    DefaultMaxChunkBytes,
		nameCompression:  CompressionNone,
		names:            true,
		quality:          true,
		nameCacheBytes:   DefaultNameCacheBytes,
		queueSize:        DefaultQueueSize,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// controller builds the resource controller for one operation. Without
// explicit limits, workers default to the number of CPUs.
func (o *options) controller() *resource.Controller {
	var cfg resource.Config
	if o.limits != nil {
		cfg = *o.limits
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = int64(runtime.GOMAXPROCS(0))
	}
	return resource.NewController(cfg)
}

func (o *options) nameCache(rc *resource.Controller) cache.BlockCache {
	if o.nameCacheBytes <= 0 {
		return nil
	}
	return cache.NewLRU(o.nameCacheBytes, rc)
}
