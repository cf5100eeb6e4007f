//go:build unix

package cli

import (
	"os"

	"golang.org/x/sys/unix"
)

// readFileFast memory-maps the input file with unix.Mmap for zero-copy
// access, mirroring this codebase's zero-copy I/O helpers for large
// sequential reads. Empty files and mmap failures fall back to a plain
// os.ReadFile.
func readFileFast(path string) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	size := st.Size()
	if size == 0 {
		return readFileFallback(path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return readFileFallback(path)
	}

	release := func() {
		_ = unix.Munmap(data)
	}

	return data, release, nil
}
