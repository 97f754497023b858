// Package ffmpegfeed streams duration-weighted still frames into an external
// ffmpeg process to produce a fixed-frame-rate video. Each frame is repeated
// on the encoder's input in proportion to how long it was actually displayed.
package ffmpegfeed

import (
	"fmt"
	"io"
	"math"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/user/pagecast/pkg/adapters/logger"
	"github.com/user/pagecast/pkg/ports"
)

// Options configures the encoder feed.
type Options struct {
	// FPS is the target frame rate of the output video. Must be positive.
	FPS int

	// Width and Height fix the output frame size. Zero keeps the input size.
	Width  int
	Height int

	// AspectRatio is the display aspect ratio, e.g. "4:3". Empty keeps the
	// frame's natural ratio.
	AspectRatio string

	// Autopad letterboxes frames to the output size instead of stretching.
	Autopad bool
	// AutopadColor is the letterbox color ("#rrggbb" or an ffmpeg color name).
	AutopadColor string

	// Codec selects the video codec. Empty means libx264.
	Codec string
	// Bitrate is the target bitrate in kbps. Zero leaves it to the codec.
	Bitrate int
	// CRF is the constant rate factor. Zero leaves the codec default.
	CRF int
	// Preset is the encoder preset. Empty means "fast".
	Preset string
	// PixelFormat is the output pixel format. Empty means yuv420p.
	PixelFormat string

	// FFmpegPath overrides ffmpeg binary discovery.
	FFmpegPath string

	// Logger receives debug output. Nil disables logging.
	Logger ports.Logger
}

// Feed implements ports.FrameSink on top of an ffmpeg process.
type Feed struct {
	opts   Options
	args   []string
	path   string
	writer io.Writer
	fs     ports.FileSystem
	logger ports.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stopped bool
	failed  atomic.Bool

	progress   *progressReader
	stderrDone chan struct{}
	copyDone   chan struct{}

	errOnce    sync.Once
	errCh      chan error
	progressCh chan string

	stopOnce   sync.Once
	stopResult bool
}

// NewFile creates a Feed that encodes into the named file. The parent
// directory is provisioned through fs. The container format is derived from
// the file extension; an unknown extension fails here, before any frame is
// accepted.
func NewFile(path string, fs ports.FileSystem, opts Options) (*Feed, error) {
	if path == "" {
		return nil, ErrNoTarget
	}
	format, err := formatForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := newFeed(opts)
	if err != nil {
		return nil, err
	}
	f.path = path
	f.fs = fs
	f.args = buildArgs(opts, format, path, false)
	return f, nil
}

// NewWriter creates a Feed that streams the encoded container to w. The
// caller owns w's lifecycle beyond end-of-stream. Only streamable container
// formats ("mp4", "webm", "matroska") are accepted.
func NewWriter(w io.Writer, format string, opts Options) (*Feed, error) {
	if w == nil {
		return nil, ErrNoTarget
	}
	if !streamableFormats[format] {
		return nil, fmt.Errorf("%w: %q is not streamable", ErrUnsupportedFormat, format)
	}
	f, err := newFeed(opts)
	if err != nil {
		return nil, err
	}
	f.writer = w
	f.args = buildArgs(opts, format, "pipe:1", true)
	return f, nil
}

func newFeed(opts Options) (*Feed, error) {
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrameRate, opts.FPS)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	return &Feed{
		opts:       opts,
		logger:     log.WithComponent("ffmpeg"),
		errCh:      make(chan error, 1),
		progressCh: make(chan string, 16),
		stderrDone: make(chan struct{}),
	}, nil
}

// RepeatCount returns how many times a frame is emitted so that a still
// image occupies its display duration at the target frame rate. Even a zero
// duration yields one emission.
func RepeatCount(durationSeconds float64, fps int) int {
	n := int(math.Round(durationSeconds * float64(fps)))
	if n < 1 {
		n = 1
	}
	return n
}

// Write streams the frame to ffmpeg, repeated to cover its display duration.
// The first call starts the encoder process. Write blocks while the encoder
// applies backpressure on its input pipe.
func (f *Feed) Write(blob []byte, durationSeconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return ErrStopped
	}
	if f.cmd == nil {
		if err := f.start(); err != nil {
			f.fail(err)
			return err
		}
	}

	for i, n := 0, RepeatCount(durationSeconds, f.opts.FPS); i < n; i++ {
		if _, err := f.stdin.Write(blob); err != nil {
			err = fmt.Errorf("write frame to encoder: %w", err)
			f.fail(err)
			return err
		}
	}
	return nil
}

// Stop signals end-of-stream, waits for ffmpeg to finish and reports whether
// encoding succeeded. Repeated calls return the memoized result.
func (f *Feed) Stop() bool {
	f.stopOnce.Do(func() {
		f.mu.Lock()
		f.stopped = true
		cmd := f.cmd
		stdin := f.stdin
		f.stdin = nil
		f.mu.Unlock()

		if cmd == nil {
			// Never started: nothing to finalize.
			f.stopResult = !f.failed.Load()
			return
		}

		if stdin != nil {
			stdin.Close()
		}

		// Drain stderr fully before Wait so the error tail is complete.
		<-f.stderrDone
		err := cmd.Wait()
		if f.copyDone != nil {
			<-f.copyDone
		}

		switch {
		case err == nil:
			f.stopResult = !f.failed.Load()
		case f.progress.sawInputEOF():
			// ffmpeg reporting end of file on pipe:0 after a normal stop is
			// a benign race with encoder shutdown, not a failure.
			f.logger.Debug("Ignoring end-of-file condition after stop")
			f.stopResult = !f.failed.Load()
		default:
			f.fail(fmt.Errorf("ffmpeg exited: %w\n%s", err, f.progress.tail()))
			f.stopResult = false
		}
	})
	return f.stopResult
}

// Events returns the feed's asynchronous signal channels.
func (f *Feed) Events() ports.SinkEvents {
	return ports.SinkEvents{Error: f.errCh, Progress: f.progressCh}
}

// start launches the ffmpeg process. Caller holds f.mu.
func (f *Feed) start() error {
	ffmpegPath, err := FindFFmpeg(f.opts.FFmpegPath)
	if err != nil {
		return err
	}

	if f.path != "" {
		if dir := filepath.Dir(f.path); dir != "" && dir != "." {
			if err := f.fs.MkdirAll(dir); err != nil {
				return fmt.Errorf("provision output directory: %w", err)
			}
		}
	}

	cmd := exec.Command(ffmpegPath, f.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stderr: %w", err)
	}

	var stdout io.ReadCloser
	if f.writer != nil {
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("ffmpeg stdout: %w", err)
		}
	}

	f.logger.Debug("Starting ffmpeg %s", strings.Join(f.args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	f.cmd = cmd
	f.stdin = stdin
	f.progress = newProgressReader(f.progressCh)
	go func() {
		defer close(f.stderrDone)
		f.progress.consume(stderr)
	}()

	if stdout != nil {
		f.copyDone = make(chan struct{})
		go func() {
			defer close(f.copyDone)
			if _, err := io.Copy(f.writer, stdout); err != nil {
				f.fail(fmt.Errorf("copy encoder output: %w", err))
			}
		}()
	}

	return nil
}

// fail records the first fatal sink error and signals it exactly once.
func (f *Feed) fail(err error) {
	f.errOnce.Do(func() {
		f.failed.Store(true)
		f.logger.Error("Encoder feed failed: %s", err)
		select {
		case f.errCh <- err:
		default:
		}
	})
}

var _ ports.FrameSink = (*Feed)(nil)
