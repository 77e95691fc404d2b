package execx

import (
	"errors"
	"fmt"
)

// ErrTimeout reports that a command exceeded its allotted run time. The
// process has already been killed when this is returned.
var ErrTimeout = errors.New("command timed out")

// SpawnError reports that a process could not be started at all (binary not
// found, permission denied). It is distinct from a non-zero exit: a command
// that ran and failed reports its exit code as data, not as an error.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsSpawnError reports whether err is (or wraps) a SpawnError.
func IsSpawnError(err error) bool {
	var se *SpawnError
	return errors.As(err, &se)
}
