package fs

import (
	"io"
	"os"
	"path/filepath"
)

// File is a blob file opened for writing.
type File interface {
	io.WriteCloser
	Sync() error
}

// FileSystem is the part of the os package the local blob store writes
// through. Reads bypass it and map files directly.
type FileSystem interface {
	// Create truncates or creates name, making missing parent directories.
	Create(name string) (File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	ReadDir(name string) ([]os.DirEntry, error)
}

// OS writes to the local disk.
type OS struct{}

func (OS) Create(name string) (File, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
}

func (OS) Remove(name string) error                   { return os.Remove(name) }
func (OS) Rename(oldpath, newpath string) error       { return os.Rename(oldpath, newpath) }
func (OS) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }

// Default is the file system used when none is configured.
var Default FileSystem = OS{}
