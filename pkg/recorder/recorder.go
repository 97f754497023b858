// Package recorder wires a capture source, frame assembly and an encoder
// sink into a single recording run.
package recorder

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"github.com/user/pagecast/pkg/adapters/logger"
	"github.com/user/pagecast/pkg/assembler"
	"github.com/user/pagecast/pkg/pipeline"
	"github.com/user/pagecast/pkg/ports"
)

// Options configures a recording run.
type Options struct {
	// RecordLimit caps the capture phase. Zero records until the source
	// closes its frame channel.
	RecordLimit time.Duration

	// CaptureQuality is the JPEG quality requested from the browser (0-100).
	CaptureQuality int

	// FollowNewTab extends the screencast to pages opened in new tabs, for
	// sources that support it.
	FollowNewTab bool

	// Canvas is the fixed output frame size. Zero passes frames through at
	// their captured size.
	Canvas pipeline.Dimension

	// Background is the padding color for frames smaller than the canvas.
	Background color.Color

	// BufferCapacity bounds the assembly buffer. Zero uses the default.
	BufferCapacity int

	// Navigate runs once the screencast is live, typically to load the
	// target URL so the page's first paint is captured. An error ends the
	// run before any frame is consumed.
	Navigate func(ctx context.Context) error

	// DebugSink receives raw captured frames when enabled. Nil disables it.
	DebugSink ports.DebugSink

	// Logger receives run progress. Nil disables logging.
	Logger ports.Logger
}

// Result summarizes a completed recording run.
type Result struct {
	// Accepted is the number of frames that entered the assembly buffer.
	Accepted int
	// Dropped is the number of frames discarded on the way in.
	Dropped int
	// EncoderOK reports whether the encoder finalized its output cleanly.
	EncoderOK bool
	// Elapsed is the wall-clock duration of the capture phase.
	Elapsed time.Duration
}

// Recorder drives one capture source into one encoder sink.
type Recorder struct {
	source      ports.CaptureSource
	sink        ports.FrameSink
	transformer ports.Transformer
	opts        Options
	logger      ports.Logger
}

// New creates a Recorder.
func New(source ports.CaptureSource, sink ports.FrameSink, transformer ports.Transformer, opts Options) *Recorder {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	return &Recorder{
		source:      source,
		sink:        sink,
		transformer: transformer,
		opts:        opts,
		logger:      log.WithComponent("recorder"),
	}
}

// Run captures frames until the source ends, the record limit fires, the
// context is canceled or the sink fails, then finalizes the encoder. The
// returned Result is valid even when an error is returned; partial output is
// finalized as far as the encoder allows.
func (r *Recorder) Run(ctx context.Context) (Result, error) {
	ctrl := assembler.NewController(r.sink, r.transformer, assembler.Options{
		Capacity:   r.opts.BufferCapacity,
		Canvas:     r.opts.Canvas,
		Background: r.opts.Background,
		Logger:     r.opts.Logger,
	})
	events := r.sink.Events()

	r.logger.Info("Starting screencast")
	frames, err := r.source.Start(ctx, ports.CaptureOptions{
		Quality:      r.opts.CaptureQuality,
		FollowNewTab: r.opts.FollowNewTab,
	})
	if err != nil {
		return Result{}, fmt.Errorf("start capture: %w", err)
	}

	start := time.Now()
	var limitCh <-chan time.Time
	if r.opts.RecordLimit > 0 {
		timer := time.NewTimer(r.opts.RecordLimit)
		defer timer.Stop()
		limitCh = timer.C
	}

	var runErr error
	frameIndex := 0

	if r.opts.Navigate != nil {
		if err := r.opts.Navigate(ctx); err != nil {
			runErr = fmt.Errorf("navigate: %w", err)
		}
	}

loop:
	for runErr == nil {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop

		case <-limitCh:
			r.logger.Debug("Record limit reached")
			break loop

		case err := <-events.Error:
			runErr = fmt.Errorf("encoder: %w", err)
			break loop

		case mark := <-events.Progress:
			r.logger.Debug("Encoder progress: %s", mark)

		case frame, ok := <-frames:
			if !ok {
				// Source ended the screencast on its own.
				break loop
			}
			if r.opts.DebugSink != nil && r.opts.DebugSink.Enabled() {
				if err := r.opts.DebugSink.SaveRawFrame(frameIndex, frame.Data); err != nil {
					r.logger.Warn("Failed to save debug frame: %s", err)
				}
			}
			frameIndex++

			insertErr := ctrl.Insert(pipeline.RawFrame{
				Data:         frame.Data,
				Timestamp:    frame.Timestamp,
				DeviceWidth:  frame.DeviceWidth,
				DeviceHeight: frame.DeviceHeight,
			})
			if frame.Ack != nil {
				frame.Ack()
			}
			if insertErr != nil {
				runErr = fmt.Errorf("feed frame: %w", insertErr)
				break loop
			}
		}
	}

	elapsed := time.Since(start)

	// The stop boundary gives the newest buffered frame its final duration.
	stopTime := float64(time.Now().UnixNano()) / 1e9
	encoderOK := ctrl.Stop(stopTime)

	if err := r.source.Stop(); err != nil {
		r.logger.Warn("Stopping capture source failed: %s", err)
	}
	drainFrames(frames)

	result := Result{
		Accepted:  ctrl.Accepted(),
		Dropped:   ctrl.Dropped(),
		EncoderOK: encoderOK,
		Elapsed:   elapsed,
	}
	r.logger.Info("Captured %d frames, dropped %d", result.Accepted, result.Dropped)
	r.logger.Info("Recording completed in %d ms", elapsed.Milliseconds())

	if runErr != nil {
		return result, runErr
	}
	if !encoderOK {
		return result, fmt.Errorf("encoder did not finalize cleanly")
	}
	return result, nil
}

// drainFrames acknowledges frames left in flight after the run ends so the
// source's event transport is not left waiting.
func drainFrames(frames <-chan ports.CapturedFrame) {
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if frame.Ack != nil {
				frame.Ack()
			}
		default:
			return
		}
	}
}
