package assembler

import (
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/pagecast/pkg/adapters/logger"
	"github.com/user/pagecast/pkg/pipeline"
	"github.com/user/pagecast/pkg/ports"
)

// stopLockWait bounds how long Stop waits for an in-flight insert or drain
// before finalizing anyway, so a stalled encoder write cannot hang shutdown.
const stopLockWait = time.Second

// Options configures a Controller.
type Options struct {
	// Capacity bounds the frame buffer. Zero uses ScreenLimit.
	Capacity int

	// Canvas is the fixed output size frames are normalized to. A zero
	// dimension passes frames through untransformed.
	Canvas pipeline.Dimension

	// Background is the padding color for frames smaller than the canvas.
	// Nil means black.
	Background color.Color

	// Logger receives per-frame warnings. Nil disables logging.
	Logger ports.Logger
}

// Controller owns one recording pipeline instance: it normalizes incoming
// frames, keeps them time-ordered in a bounded buffer, and paces them into
// the encoder sink. A Controller and its buffer and sink are never shared
// between instances; multiple capture sources multiplex through Insert.
type Controller struct {
	sink        ports.FrameSink
	transformer ports.Transformer
	buffer      *frameBuffer
	canvas      pipeline.Dimension
	background  color.Color
	logger      ports.Logger

	// sem is a one-slot semaphore guarding the buffer. A channel instead
	// of sync.Mutex so Stop can bound its wait for the lock.
	sem    chan struct{}
	status atomic.Int32

	stopping   atomic.Bool
	stopOnce   sync.Once
	stopResult bool

	accepted atomic.Int64
	dropped  atomic.Int64
}

// NewController creates a Controller writing to the given sink.
func NewController(sink ports.FrameSink, transformer ports.Transformer, opts Options) *Controller {
	bg := opts.Background
	if bg == nil {
		bg = color.Black
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	return &Controller{
		sink:        sink,
		transformer: transformer,
		buffer:      newFrameBuffer(opts.Capacity),
		canvas:      opts.Canvas,
		background:  bg,
		logger:      log.WithComponent("assembler"),
		sem:         make(chan struct{}, 1),
	}
}

// Insert transforms the frame and adds it to the ordered buffer. When the
// buffer reaches capacity the oldest half is drained to the sink, using the
// new buffer head's timestamp as the batch end boundary.
//
// A frame that fails to transform is dropped with a warning; a single bad
// frame must not halt the pipeline. Frames arriving after Stop has begun are
// discarded to preserve sink ordering. Sink write errors are returned.
func (c *Controller) Insert(frame pipeline.RawFrame) error {
	if c.stopping.Load() {
		c.dropped.Add(1)
		return nil
	}

	blob := frame.Data
	if c.canvas.Width > 0 && c.canvas.Height > 0 {
		var err error
		blob, err = c.transformer.Transform(frame.Data, c.canvas.Width, c.canvas.Height, c.background)
		if err != nil {
			c.dropped.Add(1)
			c.logger.Warn("Dropping frame at %.3fs: %s", frame.Timestamp, err)
			return nil
		}
	}

	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	if c.Status() == pipeline.StatusCompleted {
		c.dropped.Add(1)
		return nil
	}

	// Drain before inserting so the buffer never exceeds its bound. The
	// batch end boundary is the timestamp of the new head of the retained
	// half, keeping durations exact across the split.
	var werr error
	if c.buffer.atCapacity() {
		drained := c.buffer.drainHalf()
		if head, ok := c.buffer.head(); ok {
			werr = c.writeBatch(drained, head.Timestamp)
		}
	}

	c.buffer.insert(pipeline.ProcessedFrame{Blob: blob, Timestamp: frame.Timestamp})
	c.accepted.Add(1)
	return werr
}

// Stop drains every remaining frame using stopTime as the end boundary for
// the last frame's duration, finalizes the sink and freezes the pipeline.
// Repeated calls return the memoized result without side effects.
//
// Stop waits up to one second for an in-flight insert or drain to finish,
// then proceeds regardless to avoid an indefinite hang when the upstream
// event source never completes.
func (c *Controller) Stop(stopTime float64) bool {
	c.stopOnce.Do(func() {
		c.stopping.Store(true)

		select {
		case c.sem <- struct{}{}:
			defer func() { <-c.sem }()
		case <-time.After(stopLockWait):
			c.logger.Warn("Timed out waiting for in-flight frame, finalizing anyway")
		}

		drained := c.buffer.drainAll()
		if err := c.writeBatch(drained, stopTime); err != nil {
			// The sink is still finalized so partial output stays playable.
			c.logger.Warn("Final drain failed: %s", err)
		}

		c.stopResult = c.sink.Stop()
		c.status.Store(int32(pipeline.StatusCompleted))
	})
	return c.stopResult
}

// Status returns the current pipeline status.
func (c *Controller) Status() pipeline.Status {
	return pipeline.Status(c.status.Load())
}

// Accepted returns the number of frames accepted into the buffer.
func (c *Controller) Accepted() int {
	return int(c.accepted.Load())
}

// Dropped returns the number of frames discarded.
func (c *Controller) Dropped() int {
	return int(c.dropped.Load())
}

// writeBatch resolves durations for a drained batch and writes each frame to
// the sink in timestamp order. Must run with the pipeline lock held (or past
// the bounded wait during Stop).
func (c *Controller) writeBatch(frames []pipeline.ProcessedFrame, batchEnd float64) error {
	for _, tf := range resolveDurations(frames, batchEnd) {
		c.status.CompareAndSwap(int32(pipeline.StatusNotStarted), int32(pipeline.StatusInProgress))
		if err := c.sink.Write(tf.Blob, tf.Duration); err != nil {
			return err
		}
	}
	return nil
}
