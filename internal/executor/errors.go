package executor

import "errors"

var (
	// ErrValidationFailed is returned by Start when the graph has error findings.
	ErrValidationFailed = errors.New("graph failed validation")
	// ErrInvalidSpeed is returned by SetSpeed for non-positive factors.
	ErrInvalidSpeed = errors.New("speed must be positive")
	// ErrNotStarted is returned by Wait when no run was ever started.
	ErrNotStarted = errors.New("executor has not been started")
	// ErrNodeFault marks errors raised while a node processed a message.
	ErrNodeFault = errors.New("node fault")
)
