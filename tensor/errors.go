package tensor

import "errors"

// Decode failure taxonomy. All are deterministic and non-retryable;
// callers match with errors.Is.
var (
	// ErrShape reports a tensor of rank below 2.
	ErrShape = errors.New("tensor: shape rank must be at least 2")

	// ErrAxis reports an invalid or duplicate axis assignment.
	ErrAxis = errors.New("tensor: invalid axis assignment")

	// ErrChannelRange reports an explicit channel index outside the
	// channel dimension.
	ErrChannelRange = errors.New("tensor: channel index out of range")

	// ErrUnsupportedChannels reports a channel dimension other than
	// 1, 3 or 4 when no explicit channel is selected.
	ErrUnsupportedChannels = errors.New("tensor: unsupported channel count")

	// ErrRange reports a degenerate or inverted value range.
	ErrRange = errors.New("tensor: invalid value range")
)
