// Package integration contains integration tests for the recording pipeline.
package integration

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/pagecast/pkg/adapters/ffmpegfeed"
	"github.com/user/pagecast/pkg/adapters/ggtransform"
	"github.com/user/pagecast/pkg/adapters/mp4probe"
	"github.com/user/pagecast/pkg/adapters/osfilesystem"
	"github.com/user/pagecast/pkg/mocks"
	"github.com/user/pagecast/pkg/pipeline"
	"github.com/user/pagecast/pkg/ports"
	"github.com/user/pagecast/pkg/recorder"
)

// makeJPEG encodes a solid-tint test frame.
func makeJPEG(t *testing.T, width, height, tint int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x + tint*20) % 256),
				G: uint8((y + tint*10) % 256),
				B: uint8(tint * 25 % 256),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode test frame: %v", err)
	}
	return buf.Bytes()
}

// fakeSource builds a capture source that emits the given timestamped frames
// and then ends the screencast.
func fakeSource(t *testing.T, timestamps []float64) *mocks.CaptureSource {
	t.Helper()

	return &mocks.CaptureSource{
		StartFunc: func(ctx context.Context, opts ports.CaptureOptions) (<-chan ports.CapturedFrame, error) {
			ch := make(chan ports.CapturedFrame, len(timestamps))
			for i, ts := range timestamps {
				ch <- ports.CapturedFrame{
					Data:         makeJPEG(t, 640, 360, i),
					Timestamp:    ts,
					DeviceWidth:  640,
					DeviceHeight: 360,
					Ack:          func() {},
				}
			}
			close(ch)
			return ch, nil
		},
	}
}

func TestPipeline_FramesReachSinkInOrderWithDurations(t *testing.T) {
	// Frames arrive out of order; the assembly buffer must reorder them.
	source := fakeSource(t, []float64{10.0, 10.4, 10.2, 10.1, 10.3})
	sink := mocks.NewFrameSink()

	rec := recorder.New(source, sink, ggtransform.New(0), recorder.Options{
		Canvas: pipeline.Dimension{Width: 320, Height: 240},
	})

	result, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Accepted != 5 {
		t.Errorf("expected 5 accepted frames, got %d", result.Accepted)
	}
	if len(sink.WriteCalls) != 5 {
		t.Fatalf("expected 5 sink writes, got %d", len(sink.WriteCalls))
	}

	// The first four durations come from timestamp gaps of the sorted
	// sequence; the last is bounded by the stop time and just needs to be
	// non-negative.
	durations := sink.Durations()
	for i := 0; i < 4; i++ {
		if diff := durations[i] - 0.1; diff < -0.0001 || diff > 0.0001 {
			t.Errorf("duration[%d] = %f, want 0.1", i, durations[i])
		}
	}
	if durations[4] < 0 {
		t.Errorf("final duration %f is negative", durations[4])
	}

	// Transformed frames are canvas-sized JPEGs.
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(sink.WriteCalls[0].Blob))
	if err != nil {
		t.Fatalf("decode transformed frame: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 240 {
		t.Errorf("expected 320x240 transformed frame, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPipeline_DebugSinkCapturesRawFrames(t *testing.T) {
	source := fakeSource(t, []float64{1.0, 1.1, 1.2})
	sink := mocks.NewFrameSink()
	debug := &mocks.DebugSink{EnabledValue: true}

	rec := recorder.New(source, sink, ggtransform.New(0), recorder.Options{
		DebugSink: debug,
	})
	if _, err := rec.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(debug.SavedFrames) != 3 {
		t.Errorf("expected 3 raw frames saved, got %d", len(debug.SavedFrames))
	}
}

func TestPipeline_EncodesToPlayableMP4(t *testing.T) {
	if !ffmpegfeed.IsFFmpegAvailable() {
		t.Skip("ffmpeg not available")
	}

	outPath := filepath.Join(t.TempDir(), "out", "recording.mp4")
	fs := osfilesystem.New()

	feed, err := ffmpegfeed.NewFile(outPath, fs, ffmpegfeed.Options{
		FPS:    10,
		Width:  320,
		Height: 240,
	})
	if err != nil {
		t.Fatalf("create feed: %v", err)
	}

	// Timestamps share the stop boundary's epoch clock so the final frame's
	// stop-bounded duration stays small.
	base := float64(time.Now().UnixNano()) / 1e9
	source := fakeSource(t, []float64{base, base + 0.2, base + 0.4, base + 0.6})

	rec := recorder.New(source, feed, ggtransform.New(0), recorder.Options{
		Canvas:      pipeline.Dimension{Width: 320, Height: 240},
		RecordLimit: 10 * time.Second,
	})

	result, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.EncoderOK {
		t.Fatal("expected encoder to finalize cleanly")
	}

	info, err := mp4probe.ProbeFile(outPath)
	if err != nil {
		t.Fatalf("probe output: %v", err)
	}
	if info.Codec != "h264" {
		t.Errorf("expected h264 output, got %q", info.Codec)
	}
	if info.Width != 320 || info.Height != 240 {
		t.Errorf("expected 320x240 video, got %dx%d", info.Width, info.Height)
	}
	// Three 0.2s gaps plus the final frame's stop-bounded duration.
	if info.Duration < 500*time.Millisecond {
		t.Errorf("expected at least 0.5s of video, got %v", info.Duration)
	}
}
