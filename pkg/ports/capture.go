// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
)

// CapturedFrame is a single screencast frame event from a capture source.
type CapturedFrame struct {
	Data         []byte  // encoded image data (JPEG or PNG)
	Timestamp    float64 // capture time in seconds
	DeviceWidth  int
	DeviceHeight int

	// Ack acknowledges the frame to the capture transport. It must be
	// called exactly once per event, even when the frame is dropped,
	// or the transport stops delivering further frames. A nil Ack is
	// treated as already acknowledged.
	Ack func()
}

// CaptureSource abstracts a screencast session against a rendering surface.
type CaptureSource interface {
	// Start begins frame delivery and returns the frame event channel.
	// The channel is closed when the session ends, which consumers treat
	// as an implicit stop signal.
	Start(ctx context.Context, opts CaptureOptions) (<-chan CapturedFrame, error)

	// Stop ends frame delivery and closes the frame channel.
	Stop() error
}

// CaptureOptions configures a screencast session.
type CaptureOptions struct {
	Quality      int  // JPEG quality 0-100 (0 uses the source default)
	FollowNewTab bool // also capture pages opened during the session
}
