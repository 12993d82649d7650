//go:build unix

package mmap

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func osMap(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, unix.Munmap, nil
}

var madvise = [...]int{
	AdviseNormal:     unix.MADV_NORMAL,
	AdviseSequential: unix.MADV_SEQUENTIAL,
	AdviseRandom:     unix.MADV_RANDOM,
	AdviseWillNeed:   unix.MADV_WILLNEED,
}

func osAdvise(data []byte, a Advice) error {
	if len(data) == 0 || int(a) >= len(madvise) {
		return nil
	}
	// EINVAL from an unaligned slice is ignored.
	if err := unix.Madvise(data, madvise[a]); err != nil && !errors.Is(err, unix.EINVAL) {
		return err
	}
	return nil
}
