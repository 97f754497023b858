// Package assembler reassembles asynchronously captured screencast frames
// into a strictly time-ordered, duration-annotated sequence and paces them
// into a video encoder sink.
package assembler

import (
	"github.com/user/pagecast/pkg/pipeline"
)

// ScreenLimit is the default capacity of the frame buffer. When the buffer
// fills, the oldest half is drained to the sink so memory stays bounded even
// if the encoder falls behind.
const ScreenLimit = 40

// frameBuffer is an insertion-sorted, capacity-bounded queue of processed
// frames. It is not safe for concurrent use; the Controller serializes all
// access behind its own lock.
type frameBuffer struct {
	frames   []pipeline.ProcessedFrame
	capacity int
}

func newFrameBuffer(capacity int) *frameBuffer {
	if capacity <= 0 {
		capacity = ScreenLimit
	} else if capacity < 2 {
		// drainHalf removes floor(capacity/2) frames; below two nothing
		// would ever drain and the capacity bound would not hold.
		capacity = 2
	}
	return &frameBuffer{
		frames:   make([]pipeline.ProcessedFrame, 0, capacity),
		capacity: capacity,
	}
}

// insert places the frame so that timestamps remain ascending. New frames
// usually belong near the tail, so the scan runs backwards from the end.
// Equal timestamps keep insertion order: a new frame goes after existing
// frames with the same timestamp.
func (b *frameBuffer) insert(f pipeline.ProcessedFrame) {
	i := len(b.frames)
	for i > 0 && b.frames[i-1].Timestamp > f.Timestamp {
		i--
	}
	b.frames = append(b.frames, pipeline.ProcessedFrame{})
	copy(b.frames[i+1:], b.frames[i:])
	b.frames[i] = f
}

// atCapacity reports whether the buffer has reached its capacity bound.
func (b *frameBuffer) atCapacity() bool {
	return len(b.frames) >= b.capacity
}

func (b *frameBuffer) len() int {
	return len(b.frames)
}

// head returns the oldest buffered frame without removing it.
func (b *frameBuffer) head() (pipeline.ProcessedFrame, bool) {
	if len(b.frames) == 0 {
		return pipeline.ProcessedFrame{}, false
	}
	return b.frames[0], true
}

// drainHalf removes and returns the oldest floor(capacity/2) frames. Keeping
// the newer half buffered leaves room for continued out-of-order inserts and
// retains a "next" timestamp to bound the drained batch's last duration.
func (b *frameBuffer) drainHalf() []pipeline.ProcessedFrame {
	n := b.capacity / 2
	if n > len(b.frames) {
		n = len(b.frames)
	}
	return b.remove(n)
}

// drainAll removes and returns every buffered frame. Used only at shutdown.
func (b *frameBuffer) drainAll() []pipeline.ProcessedFrame {
	return b.remove(len(b.frames))
}

func (b *frameBuffer) remove(n int) []pipeline.ProcessedFrame {
	drained := make([]pipeline.ProcessedFrame, n)
	copy(drained, b.frames[:n])
	kept := copy(b.frames, b.frames[n:])
	// Release blob references in the tail so drained frames can be freed
	// once the sink is done with them.
	for i := kept; i < len(b.frames); i++ {
		b.frames[i] = pipeline.ProcessedFrame{}
	}
	b.frames = b.frames[:kept]
	return drained
}
