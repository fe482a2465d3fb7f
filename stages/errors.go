package stages

import (
	"errors"
	"fmt"
)

var ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

// CorruptCheckpointError reports a checkpoint record that exists but cannot
// be read. Err is the underlying decode failure.
type CorruptCheckpointError struct {
	Stage StageID
	Err   error
}

func (e *CorruptCheckpointError) Error() string {
	return fmt.Sprintf("stage %s: %v: %v", e.Stage, ErrCorruptCheckpoint, e.Err)
}

func (e *CorruptCheckpointError) Unwrap() error {
	return e.Err
}

func (e *CorruptCheckpointError) Is(target error) bool {
	return target == ErrCorruptCheckpoint
}
