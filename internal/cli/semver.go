package cli

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CheckMinTapeFormat returns an error if this build's TapeFormatVersion is
// older than minVersion. Used by -min-tape-version to refuse running a
// reference tokenizer build against a minimum the caller doesn't trust.
func CheckMinTapeFormat(minVersion string) error {
	if minVersion == "" {
		return nil
	}

	want, err := semver.NewVersion(minVersion)
	if err != nil {
		return fmt.Errorf("invalid -min-tape-version %q: %w", minVersion, err)
	}

	have, err := semver.NewVersion(TapeFormatVersion)
	if err != nil {
		return fmt.Errorf("invalid built-in tape format version %q: %w", TapeFormatVersion, err)
	}

	if have.LessThan(want) {
		return fmt.Errorf("this build emits tape format v%s, older than required v%s", have, want)
	}

	return nil
}
