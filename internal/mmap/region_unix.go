//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

var madvise = [...]int{
	Normal:     unix.MADV_NORMAL,
	Sequential: unix.MADV_SEQUENTIAL,
	Random:     unix.MADV_RANDOM,
}

func mapFile(f *os.File, n int) ([]byte, func([]byte) error, error) {
	buf, err := unix.Mmap(int(f.Fd()), 0, n, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return buf, unix.Munmap, nil
}

func advise(buf []byte, a Advice) error {
	if int(a) >= len(madvise) {
		a = Normal
	}
	if err := unix.Madvise(buf, madvise[a]); err != nil && err != unix.EINVAL {
		return err
	}
	return nil
}
