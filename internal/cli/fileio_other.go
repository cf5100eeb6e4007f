//go:build !unix

package cli

// readFileFast on non-unix platforms has no portable zero-copy mapping
// available through this codebase's dependency set, so it reads the file
// directly.
func readFileFast(path string) ([]byte, func(), error) {
	return readFileFallback(path)
}
