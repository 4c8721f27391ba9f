//go:build windows

package mmap

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func mapFile(f *os.File, n int) ([]byte, func([]byte) error, error) {
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		return nil, nil, err
	}
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ, 0, 0, uintptr(n))
	if err != nil {
		return nil, nil, err
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	return buf, func([]byte) error { return windows.UnmapViewOfFile(addr) }, nil
}

// Windows has no madvise; sequential scans rely on the cache manager.
func advise([]byte, Advice) error { return nil }
