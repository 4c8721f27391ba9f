// Command seqstore builds, verifies, inspects, subsets and mirrors sequence
// stores.
//
//	seqstore build   -in reads.fq [-in2 mates.fq] -out ./store
//	seqstore verify  -store ./store [-paired]
//	seqstore info    -store ./store
//	seqstore extract -store ./store -ids 0,5,10-20 -out ./subset
//	seqstore mirror  -store ./store -s3-bucket b [-s3-prefix p] [-verify]
//	seqstore mirror  -store ./store -minio-endpoint host:9000 -minio-bucket b
//
// verify exits with 0 for a valid store, 1 for a corrupt store, 2 when the
// location is not a store and 3 when the store needs a newer version.
// Other failures exit with 4.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/seqstore"
	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/blobstore"
	miniostore "github.com/hupe1980/seqstore/blobstore/minio"
	"github.com/hupe1980/seqstore/blobstore/s3"
	"github.com/hupe1980/seqstore/codec"
	"github.com/hupe1980/seqstore/feed"
	"github.com/hupe1980/seqstore/internal/cache"
)

const (
	exitOK = iota
	exitCorrupt
	exitNotStore
	exitNewerVersion
	exitFailure
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitFailure)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1], os.Args[2:])
	stop()
	os.Exit(code)
}

// run dispatches one command and returns the process exit code.
func run(ctx context.Context, cmd string, args []string) int {
	var err error
	switch cmd {
	case "build":
		err = runBuild(ctx, args)
	case "verify":
		return runVerify(ctx, args)
	case "info":
		err = runInfo(ctx, args)
	case "extract":
		err = runExtract(ctx, args)
	case "mirror":
		err = runMirror(ctx, args)
	default:
		usage()
		return exitFailure
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "seqstore:", err)
		return exitFailure
	}
	return exitOK
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: seqstore <build|verify|info|extract|mirror> [flags]")
}

// common holds flags shared by all commands.
type common struct {
	verbose bool
	workers int
	ioLimit int64
}

func (c *common) register(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "v", false, "log progress to stderr")
	fs.IntVar(&c.workers, "workers", 0, "parallel workers (0 = GOMAXPROCS)")
	fs.Int64Var(&c.ioLimit, "io-limit", 0, "I/O limit in bytes per second (0 = unlimited)")
}

func (c *common) options() []seqstore.Option {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	opts := []seqstore.Option{seqstore.WithLogger(seqstore.NewTextLogger(level))}
	if c.workers > 0 || c.ioLimit > 0 {
		opts = append(opts, seqstore.WithResourceLimits(seqstore.ResourceLimits{
			MaxWorkers:         int64(c.workers),
			IOLimitBytesPerSec: c.ioLimit,
		}))
	}
	return opts
}

func runBuild(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var c common
	c.register(fs)
	in := fs.String("in", "", "FASTA or FASTQ input (.gz allowed)")
	in2 := fs.String("in2", "", "mate input; builds a paired store")
	out := fs.String("out", "", "output directory")
	typName := fs.String("type", "dna", "sequence type: dna or protein")
	chunkBytes := fs.Uint64("chunk-bytes", seqstore.DefaultMaxChunkBytes, "maximum chunk size in bytes")
	compression := fs.String("name-compression", "zstd", "name chunk compression: none, lz4 or zstd")
	notes := fs.String("notes", "", "free text stored in the header and NOTES.json")
	noNames := fs.Bool("no-names", false, "drop sequence names")
	noQuality := fs.Bool("no-quality", false, "drop quality values")
	_ = fs.Parse(args)
	if *in == "" || *out == "" {
		return errors.New("build: -in and -out are required")
	}

	typ, err := alphabet.ParseType(*typName)
	if err != nil {
		return err
	}
	comp, err := seqstore.ParseCompression(*compression)
	if err != nil {
		return err
	}
	opts := append(c.options(),
		seqstore.WithMaxChunkBytes(*chunkBytes),
		seqstore.WithNameCompression(comp),
		seqstore.WithNotes(*notes),
		seqstore.WithProvenance("source", *in),
		seqstore.WithProvenance("built_at", time.Now().UTC().Format(time.RFC3339)),
	)
	if *noNames {
		opts = append(opts, seqstore.WithoutNames())
	}
	if *noQuality {
		opts = append(opts, seqstore.WithoutQuality())
	}

	store := blobstore.NewLocalStore(*out)
	left, err := feed.OpenFile(*in, typ)
	if err != nil {
		return err
	}
	defer left.Close()

	if *in2 == "" {
		s, err := seqstore.NewWriter(store, opts...).Write(ctx, left)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d sequences, %d residues, %d chunks\n", s.StoreID, s.Count, s.TotalLength, s.Chunks)
		return nil
	}

	right, err := feed.OpenFile(*in2, typ)
	if err != nil {
		return err
	}
	defer right.Close()
	s, err := seqstore.NewPairedWriter(store, opts...).Write(ctx, left, right)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d pairs, %d+%d residues\n", s.Left.StoreID, s.Left.Count, s.Left.TotalLength, s.Right.TotalLength)
	return nil
}

func runVerify(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var c common
	c.register(fs)
	dir := fs.String("store", "", "store directory")
	paired := fs.Bool("paired", false, "verify a paired store")
	_ = fs.Parse(args)
	if *dir == "" {
		fmt.Fprintln(os.Stderr, "verify: -store is required")
		return exitFailure
	}

	store := blobstore.NewLocalStore(*dir)
	verify := seqstore.Verify
	if *paired {
		verify = seqstore.VerifyPair
	}
	report, err := verify(ctx, store, c.options()...)
	code := verifyExitCode(report, err)
	switch {
	case err != nil:
		fmt.Fprintln(os.Stderr, "verify:", err)
	case !report.Valid:
		for _, m := range report.Mismatches {
			fmt.Fprintln(os.Stderr, m)
		}
		fmt.Printf("CORRUPT: %d mismatches\n", len(report.Mismatches))
	default:
		fmt.Printf("OK: %d sequences in %d chunks (%s)\n", report.Count, report.Chunks, report.Duration.Round(time.Millisecond))
	}
	return code
}

func verifyExitCode(report *seqstore.VerifyReport, err error) int {
	switch {
	case errors.Is(err, seqstore.ErrNewerVersion):
		return exitNewerVersion
	case errors.Is(err, seqstore.ErrNotStore):
		return exitNotStore
	case errors.Is(err, seqstore.ErrIncompatiblePair):
		return exitCorrupt
	case err != nil:
		return exitFailure
	case !report.Valid:
		return exitCorrupt
	default:
		return exitOK
	}
}

func runInfo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	dir := fs.String("store", "", "store directory")
	format := fs.String("format", codec.GoJSON.Name(), "output codec: go-json, go-json-compact or json")
	_ = fs.Parse(args)
	if *dir == "" {
		return errors.New("info: -store is required")
	}
	c, err := codec.ByName(*format)
	if err != nil {
		return err
	}
	info, err := seqstore.Info(ctx, blobstore.NewLocalStore(*dir))
	if err != nil {
		return err
	}
	data, err := c.Marshal(info)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runExtract(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	var c common
	c.register(fs)
	dir := fs.String("store", "", "source store directory")
	out := fs.String("out", "", "output directory")
	idList := fs.String("ids", "", "ids and ranges, e.g. 0,5,10-20 (inclusive)")
	paired := fs.Bool("paired", false, "extract from a paired store")
	_ = fs.Parse(args)
	if *dir == "" || *out == "" || *idList == "" {
		return errors.New("extract: -store, -out and -ids are required")
	}
	ids, err := parseIDs(*idList)
	if err != nil {
		return err
	}

	src := blobstore.NewLocalStore(*dir)
	dst := blobstore.NewLocalStore(*out)
	opts := c.options()
	if *paired {
		p, err := seqstore.OpenPair(ctx, src, opts...)
		if err != nil {
			return err
		}
		defer p.Close()
		s, err := seqstore.ExtractPair(ctx, p, ids, dst, opts...)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d pairs\n", s.Left.StoreID, s.Left.Count)
		return nil
	}

	r, err := seqstore.Open(ctx, src, opts...)
	if err != nil {
		return err
	}
	defer r.Close()
	s, err := seqstore.Extract(ctx, r, ids, dst, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d sequences, %d residues\n", s.StoreID, s.Count, s.TotalLength)
	return nil
}

// parseIDs parses a comma separated list of ids and inclusive ranges.
func parseIDs(s string) (*roaring64.Bitmap, error) {
	ids := roaring64.New()
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.ParseUint(lo, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", part, err)
		}
		if !isRange {
			ids.Add(first)
			continue
		}
		last, err := strconv.ParseUint(hi, 10, 64)
		if err != nil || last < first {
			return nil, fmt.Errorf("bad id range %q", part)
		}
		ids.AddRange(first, last+1)
	}
	return ids, nil
}

func runMirror(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mirror", flag.ExitOnError)
	var c common
	c.register(fs)
	dir := fs.String("store", "", "source store directory")
	s3Bucket := fs.String("s3-bucket", "", "target S3 bucket")
	s3Prefix := fs.String("s3-prefix", "", "key prefix in the S3 bucket")
	s3Region := fs.String("s3-region", "", "S3 region (default from environment)")
	s3Endpoint := fs.String("s3-endpoint", "", "custom S3 endpoint")
	minioEndpoint := fs.String("minio-endpoint", "", "target MinIO endpoint")
	minioBucket := fs.String("minio-bucket", "", "target MinIO bucket")
	minioPrefix := fs.String("minio-prefix", "", "key prefix in the MinIO bucket")
	minioSecure := fs.Bool("minio-secure", true, "use TLS for MinIO")
	check := fs.Bool("verify", false, "verify the mirrored copy")
	cacheBytes := fs.Int64("cache-bytes", 64<<20, "block cache size for -verify reads")
	_ = fs.Parse(args)
	if *dir == "" {
		return errors.New("mirror: -store is required")
	}

	var dst blobstore.BlobStore
	switch {
	case *s3Bucket != "":
		s3Opts := []s3.Option{s3.WithPrefix(*s3Prefix)}
		if *s3Region != "" {
			s3Opts = append(s3Opts, s3.WithRegion(*s3Region))
		}
		if *s3Endpoint != "" {
			s3Opts = append(s3Opts, s3.WithEndpoint(*s3Endpoint))
		}
		store, err := s3.New(ctx, *s3Bucket, s3Opts...)
		if err != nil {
			return err
		}
		dst = store
	case *minioEndpoint != "" && *minioBucket != "":
		client, err := minio.New(*minioEndpoint, &minio.Options{
			Creds:  credentials.NewEnvMinio(),
			Secure: *minioSecure,
		})
		if err != nil {
			return err
		}
		dst = miniostore.NewStore(client, *minioBucket, *minioPrefix)
	default:
		return errors.New("mirror: -s3-bucket or -minio-endpoint with -minio-bucket is required")
	}

	n, err := seqstore.CopyStore(ctx, blobstore.NewLocalStore(*dir), dst, c.options()...)
	if err != nil {
		return err
	}
	fmt.Printf("mirrored %d bytes\n", n)
	if !*check {
		return nil
	}

	remote := blobstore.NewCachingStore(dst, cache.NewLRU(*cacheBytes, nil), 0)
	report, err := seqstore.Verify(ctx, remote, c.options()...)
	if err != nil {
		return err
	}
	if err := report.Err(); err != nil {
		return fmt.Errorf("mirror: copy failed verification: %w", err)
	}
	fmt.Printf("mirrored copy valid: %d sequences\n", report.Count)
	return nil
}
