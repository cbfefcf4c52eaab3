package vizmap

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports a widget setting that prevents it from
	// running, such as an empty topic. It is not retried.
	ErrConfiguration = errors.New("vizmap: configuration error")

	// ErrUnresolvedFrame reports a frame with no transform to the fixed
	// frame yet. Transient; the next message or topology change retries.
	ErrUnresolvedFrame = errors.New("vizmap: unresolved frame")

	// ErrDegenerateOrientation reports an all-zero quaternion. Recovered by
	// substituting identity, never surfaced as a failure.
	ErrDegenerateOrientation = errors.New("vizmap: degenerate orientation")

	// ErrInvalidMessage reports a message that failed boundary validation.
	ErrInvalidMessage = errors.New("vizmap: invalid message")
)

// UnresolvedFrameError names the frame that could not be resolved.
type UnresolvedFrameError struct {
	Frame string
}

func (e *UnresolvedFrameError) Error() string {
	return fmt.Sprintf("vizmap: frame %q has no transform to the fixed frame", e.Frame)
}

// Unwrap lets errors.Is match ErrUnresolvedFrame.
func (e *UnresolvedFrameError) Unwrap() error {
	return ErrUnresolvedFrame
}

// configErrorf wraps ErrConfiguration with a message.
func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// invalidMessagef wraps ErrInvalidMessage with a message.
func invalidMessagef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, fmt.Sprintf(format, args...))
}
