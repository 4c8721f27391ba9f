package feed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/klauspost/compress/gzip"
)

// ErrFormat reports malformed FASTA or FASTQ input.
var ErrFormat = errors.New("feed: malformed input")

// textFeed holds the state shared by the FASTA and FASTQ parsers.
type textFeed struct {
	typ    alphabet.Type
	r      *bufio.Reader
	closer io.Closer
	line   int

	name string
	seq  []byte
	qual []byte
	err  error
	done bool
}

func newTextFeed(r io.Reader, typ alphabet.Type) textFeed {
	tf := textFeed{typ: typ, r: bufio.NewReaderSize(r, 256<<10)}
	if c, ok := r.(io.Closer); ok {
		tf.closer = c
	}
	return tf
}

// nextLine returns the next non-empty line without its line terminator.
func (f *textFeed) nextLine() ([]byte, error) {
	for {
		line, err := f.r.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return nil, err
		}
		f.line++
		line = bytes.TrimRight(line, "\r\n")
		if len(bytes.TrimSpace(line)) > 0 {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (f *textFeed) fail(format string, args ...any) bool {
	f.err = fmt.Errorf("%w: line %d: %s", ErrFormat, f.line, fmt.Sprintf(format, args...))
	f.done = true
	return false
}

func (f *textFeed) appendResidues(line []byte) {
	for _, c := range line {
		if c == ' ' || c == '\t' {
			continue
		}
		f.seq = append(f.seq, f.typ.Encode(c))
	}
}

func (f *textFeed) Name() string         { return f.name }
func (f *textFeed) SequenceData() []byte { return f.seq }
func (f *textFeed) CurrentLength() int   { return len(f.seq) }
func (f *textFeed) Type() alphabet.Type  { return f.typ }
func (f *textFeed) Err() error           { return f.err }

func (f *textFeed) Close() error {
	f.done = true
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// FASTA parses FASTA records. Sequence lines may wrap.
type FASTA struct {
	textFeed
	pending []byte // header line read ahead of the next record
}

// NewFASTA returns a FASTA feed over r. If r is an io.Closer, Close closes it.
func NewFASTA(r io.Reader, typ alphabet.Type) *FASTA {
	return &FASTA{textFeed: newTextFeed(r, typ)}
}

func (f *FASTA) Advance() bool {
	if f.done {
		return false
	}
	header := f.pending
	f.pending = nil
	if header == nil {
		line, err := f.nextLine()
		if err != nil {
			f.done = true
			if !errors.Is(err, io.EOF) {
				f.err = err
			}
			return false
		}
		header = line
	}
	if header[0] != '>' {
		return f.fail("expected '>' header")
	}

	f.name = strings.TrimSpace(string(header[1:]))
	f.seq = f.seq[:0]
	for {
		line, err := f.nextLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				f.err = err
				f.done = true
				return false
			}
			break
		}
		if line[0] == '>' {
			f.pending = append(f.pending[:0], line...)
			break
		}
		f.appendResidues(line)
	}
	return true
}

func (f *FASTA) QualityData() []byte  { return nil }
func (f *FASTA) HasQualityData() bool { return false }

// FASTQ parses four-line FASTQ records with Sanger (offset 33) qualities.
// Sequence and quality blocks may wrap.
type FASTQ struct {
	textFeed
}

// NewFASTQ returns a FASTQ feed over r. If r is an io.Closer, Close closes it.
func NewFASTQ(r io.Reader, typ alphabet.Type) *FASTQ {
	return &FASTQ{textFeed: newTextFeed(r, typ)}
}

func (f *FASTQ) Advance() bool {
	if f.done {
		return false
	}
	header, err := f.nextLine()
	if err != nil {
		f.done = true
		if !errors.Is(err, io.EOF) {
			f.err = err
		}
		return false
	}
	if header[0] != '@' {
		return f.fail("expected '@' header")
	}
	f.name = strings.TrimSpace(string(header[1:]))
	f.seq = f.seq[:0]
	f.qual = f.qual[:0]

	for {
		line, err := f.nextLine()
		if err != nil {
			return f.fail("record %q ends before '+' line", f.name)
		}
		if line[0] == '+' {
			if id := strings.TrimSpace(string(line[1:])); id != "" && id != f.name {
				return f.fail("quality id %q does not match %q", id, f.name)
			}
			break
		}
		f.appendResidues(line)
	}
	for len(f.qual) < len(f.seq) {
		line, err := f.nextLine()
		if err != nil {
			return f.fail("record %q has %d qualities for %d residues", f.name, len(f.qual), len(f.seq))
		}
		f.qual = alphabet.EncodeQuality(f.qual, bytes.TrimSpace(line))
	}
	if len(f.qual) != len(f.seq) {
		return f.fail("record %q has %d qualities for %d residues", f.name, len(f.qual), len(f.seq))
	}
	return true
}

func (f *FASTQ) QualityData() []byte  { return f.qual }
func (f *FASTQ) HasQualityData() bool { return true }

// OpenFile opens a FASTA or FASTQ file, chosen by its first character.
// Files ending in .gz are decompressed.
func OpenFile(path string, typ alphabet.Type) (Feed, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var r io.Reader = file
	closers := multiCloser{file}
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		r = zr
		closers = multiCloser{zr, file}
	}

	br := bufio.NewReaderSize(r, 256<<10)
	first, err := peekFirst(br)
	if err != nil {
		closers.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	src := struct {
		io.Reader
		io.Closer
	}{br, closers}

	switch first {
	case '>':
		return NewFASTA(src, typ), nil
	case '@':
		return NewFASTQ(src, typ), nil
	default:
		closers.Close()
		return nil, fmt.Errorf("open %s: %w: neither FASTA nor FASTQ", path, ErrFormat)
	}
}

func peekFirst(br *bufio.Reader) (byte, error) {
	for i := 1; ; i++ {
		b, err := br.Peek(i)
		if err != nil {
			if errors.Is(err, io.EOF) && len(b) == i-1 {
				// Empty input is an empty FASTA file.
				return '>', nil
			}
			return 0, err
		}
		if c := b[i-1]; c != ' ' && c != '\t' && c != '\r' && c != '\n' {
			return c, nil
		}
	}
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
