package ffmpegfeed

import "errors"

var (
	// ErrFFmpegNotFound is returned when no ffmpeg binary can be located.
	ErrFFmpegNotFound = errors.New("ffmpegfeed: ffmpeg not found")

	// ErrUnsupportedFormat is returned for an output container format
	// ffmpeg cannot be configured for.
	ErrUnsupportedFormat = errors.New("ffmpegfeed: unsupported output container format")

	// ErrInvalidFrameRate is returned when the target frame rate is not positive.
	ErrInvalidFrameRate = errors.New("ffmpegfeed: target frame rate must be positive")

	// ErrNoTarget is returned when neither a file path nor a writer is given.
	ErrNoTarget = errors.New("ffmpegfeed: no output target")

	// ErrStopped is returned by Write after the feed has been stopped.
	ErrStopped = errors.New("ffmpegfeed: feed already stopped")
)
