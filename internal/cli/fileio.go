package cli

import "os"

// ReadFileFast loads the contents of path as fast as the platform allows.
// On unix-like platforms it memory-maps the file (see fileio_unix.go); on
// other platforms, or when mmap is unavailable for this file, it falls back
// to a plain read. The returned release func must be called once the caller
// is done with the returned slice; for a plain read it is a no-op.
func ReadFileFast(path string) (data []byte, release func(), err error) {
	return readFileFast(path)
}

func readFileFallback(path string) ([]byte, func(), error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	return data, func() {}, nil
}
