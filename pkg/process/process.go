// Package process binds the calling goroutine's OS thread to a CPU so a
// reactor loop keeps one core warm.
package process

import (
	"github.com/brickingsoft/errors"
)

var (
	ErrInvalidCPU  = errors.Define("cpu index is out of range")
	ErrUnsupported = errors.Define("cpu affinity is not supported on this platform")
)
