package ports

// FrameSink is a sequential destination for duration-weighted frames,
// typically the input stream of an external video encoder.
type FrameSink interface {
	// Write delivers one frame to be displayed for the given duration.
	// The sink repeats the frame as needed to simulate the duration at its
	// target frame rate; even a zero duration emits the frame once.
	// Write may block when the downstream encoder applies backpressure.
	Write(blob []byte, durationSeconds float64) error

	// Stop signals end-of-stream to the encoder, waits for it to finish and
	// reports whether it succeeded. Safe to call more than once; repeated
	// calls return the memoized result without side effects.
	Stop() bool

	// Events returns the sink's asynchronous signal channels.
	Events() SinkEvents
}

// SinkEvents carries a sink's asynchronous signals.
type SinkEvents struct {
	// Error receives at most one fatal sink error. A fatal sink error ends
	// the pipeline instance but is non-fatal to the owning application.
	Error <-chan error

	// Progress receives encoder progress timemarks (e.g. "00:00:03.52").
	Progress <-chan string
}

// DebugSink abstracts debug output for intermediate results.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveRawFrame saves a raw captured frame.
	SaveRawFrame(index int, data []byte) error
}
