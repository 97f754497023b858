// Package pipeline defines the data types flowing through the recording pipeline.
package pipeline

// Dimension represents width and height in pixels.
type Dimension struct {
	Width  int
	Height int
}

// RawFrame is a captured still image as delivered by a capture source.
// Timestamps are in seconds and non-decreasing per source, but frames from
// concurrent sources may arrive interleaved out of order.
type RawFrame struct {
	Data         []byte  // encoded image data (JPEG or PNG)
	Timestamp    float64 // capture time in seconds
	DeviceWidth  int
	DeviceHeight int
}

// ProcessedFrame is a canvas-sized encoded image awaiting assembly.
// It is owned by the frame buffer from insert until drain.
type ProcessedFrame struct {
	Blob      []byte
	Timestamp float64
}

// TimedFrame pairs an image with the duration it was actually displayed.
type TimedFrame struct {
	Blob     []byte
	Duration float64 // seconds, never negative
}

// Status tracks the pipeline lifecycle. Transitions are forward-only:
// NotStarted -> InProgress -> Completed.
type Status int

const (
	// StatusNotStarted means no frame has reached the sink yet.
	StatusNotStarted Status = iota
	// StatusInProgress means at least one frame has been written.
	StatusInProgress
	// StatusCompleted means the pipeline has been stopped and finalized.
	StatusCompleted
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}
