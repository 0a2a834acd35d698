package htmlstream

import (
	"errors"
	"fmt"

	"github.com/jacoelho/htmlstream/dompatch"
)

var (
	// ErrSessionFinished reports input pushed after Finish.
	ErrSessionFinished = errors.New("session is finished")
	// ErrSessionSuspended reports a Finish attempted while the tree
	// stage is suspended; resume with Pump first.
	ErrSessionSuspended = errors.New("session is suspended")

	errDepthLimit = errors.New("open element depth limit exceeded")
)

// EngineError is a fatal pipeline failure. After one is returned the
// session refuses further input; Reset discards the document and
// re-arms the session on the same handle.
type EngineError struct {
	Handle dompatch.Handle
	Stage  string
	Err    error
}

// Error formats the failure with its pipeline stage.
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine failure in %s stage (handle %d): %v", e.Stage, e.Handle, e.Err)
}

// Unwrap exposes the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}
