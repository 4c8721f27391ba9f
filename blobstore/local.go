package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/seqstore/internal/fs"
	"github.com/hupe1980/seqstore/internal/mmap"
)

// LocalStore implements BlobStore using the local file system.
type LocalStore struct {
	root string
	fs   fs.FileSystem
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithFileSystem replaces the file system used for writes and listings.
// Reads always go through mmap.
func WithFileSystem(fsys fs.FileSystem) LocalOption {
	return func(s *LocalStore) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string, opts ...LocalOption) *LocalStore {
	s := &LocalStore{root: root, fs: fs.Default}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory the store is rooted at.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Open opens a blob for reading.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	r, err := mmap.Map(s.path(name))
	if err != nil {
		return nil, err
	}
	return &localBlob{r: r}, nil
}

// Create creates a blob for streaming writes.
func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	p := s.path(name)
	f, err := s.fs.Create(p)
	if err != nil {
		return nil, err
	}
	return &localWriter{File: f, remove: func() error { return s.fs.Remove(p) }}, nil
}

// Put writes a blob atomically through a temporary file and a rename.
func (s *LocalStore) Put(_ context.Context, name string, data []byte) error {
	p := s.path(name)
	tmp := p + ".tmp"
	f, err := s.fs.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return s.fs.Rename(tmp, p)
}

// Delete removes a blob.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := s.fs.Remove(s.path(name))
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// List returns all blobs whose slash-separated name starts with prefix.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	var walk func(dir, rel string) error
	walk = func(dir, rel string) error {
		entries, err := s.fs.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			name := e.Name()
			if rel != "" {
				name = rel + "/" + name
			}
			if e.IsDir() {
				if err := walk(filepath.Join(dir, e.Name()), name); err != nil {
					return err
				}
				continue
			}
			if strings.HasPrefix(name, prefix) && !strings.HasSuffix(name, ".tmp") {
				names = append(names, name)
			}
		}
		return nil
	}
	if err := walk(s.root, ""); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

type localBlob struct {
	r *mmap.Region
}

func (b *localBlob) ReadAt(p []byte, off int64) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	return b.r.ReadAt(p, off)
}

func (b *localBlob) Close() error {
	return b.r.Close()
}

func (b *localBlob) Size() int64 {
	return int64(b.r.Len())
}

func (b *localBlob) Bytes() ([]byte, error) {
	return b.r.Bytes(), nil
}

func (b *localBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	return sectionRange(b, b.Size(), off, length), nil
}

func (b *localBlob) Advise(pattern AccessPattern) error {
	switch pattern {
	case AccessSequential:
		return b.r.Advise(mmap.Sequential)
	case AccessRandom:
		return b.r.Advise(mmap.Random)
	default:
		return b.r.Advise(mmap.Normal)
	}
}

type localWriter struct {
	fs.File
	remove func() error
}

func (w *localWriter) Abort() error {
	_ = w.File.Close()
	if err := w.remove(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
