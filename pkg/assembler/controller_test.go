package assembler

import (
	"errors"
	"image/color"
	"testing"

	"github.com/user/pagecast/pkg/mocks"
	"github.com/user/pagecast/pkg/pipeline"
)

func rawFrame(ts float64) pipeline.RawFrame {
	return pipeline.RawFrame{Data: []byte{0xFF, 0xD8, 0xFF}, Timestamp: ts}
}

func TestController_EndToEnd(t *testing.T) {
	sink := mocks.NewFrameSink()
	c := NewController(sink, &mocks.Transformer{}, Options{})

	for _, ts := range []float64{0.0, 0.5, 1.0} {
		if err := c.Insert(rawFrame(ts)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	if c.Status() != pipeline.StatusNotStarted {
		t.Errorf("expected status not_started before drain, got %s", c.Status())
	}

	if ok := c.Stop(1.5); !ok {
		t.Fatal("expected successful stop")
	}

	durations := sink.Durations()
	want := []float64{0.5, 0.5, 0.5}
	if len(durations) != len(want) {
		t.Fatalf("expected %d writes, got %d", len(want), len(durations))
	}
	for i := range want {
		if durations[i] != want[i] {
			t.Errorf("write %d: expected duration %v, got %v", i, want[i], durations[i])
		}
	}
	if sink.StopCalls != 1 {
		t.Errorf("expected exactly one sink stop, got %d", sink.StopCalls)
	}
	if c.Status() != pipeline.StatusCompleted {
		t.Errorf("expected status completed, got %s", c.Status())
	}
}

func TestController_OutOfOrderInsertsReachSinkOrdered(t *testing.T) {
	sink := mocks.NewFrameSink()
	c := NewController(sink, &mocks.Transformer{}, Options{})

	for i, ts := range []float64{0.3, 0.1, 0.4, 0.2, 0.0} {
		f := pipeline.RawFrame{Data: []byte{byte(i)}, Timestamp: ts}
		if err := c.Insert(f); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	c.Stop(0.5)

	if len(sink.WriteCalls) != 5 {
		t.Fatalf("expected 5 writes, got %d", len(sink.WriteCalls))
	}
	// Sorted by timestamp the insertion indexes come out as 4,1,3,0,2.
	wantOrder := []byte{4, 1, 3, 0, 2}
	for i, call := range sink.WriteCalls {
		if call.Blob[0] != wantOrder[i] {
			t.Errorf("write %d: expected frame %d, got %d", i, wantOrder[i], call.Blob[0])
		}
	}
}

func TestController_CapacityTriggersSingleHalfDrain(t *testing.T) {
	sink := mocks.NewFrameSink()
	c := NewController(sink, &mocks.Transformer{}, Options{Capacity: 10})

	for i := 0; i < 10; i++ {
		c.Insert(rawFrame(float64(i)))
	}
	if len(sink.WriteCalls) != 0 {
		t.Fatalf("no drain expected at capacity, got %d writes", len(sink.WriteCalls))
	}

	// The 11th insert drains exactly floor(10/2) oldest frames.
	c.Insert(rawFrame(10))
	if len(sink.WriteCalls) != 5 {
		t.Fatalf("expected 5 writes after half drain, got %d", len(sink.WriteCalls))
	}
	// Durations are bounded by the retained head (timestamp 5): 1s each.
	for i, d := range sink.Durations() {
		if d != 1 {
			t.Errorf("write %d: expected duration 1, got %v", i, d)
		}
	}
	if c.Status() != pipeline.StatusInProgress {
		t.Errorf("expected status in_progress after first write, got %s", c.Status())
	}

	// Remaining frames flush on stop.
	c.Stop(11)
	if len(sink.WriteCalls) != 11 {
		t.Errorf("expected 11 total writes, got %d", len(sink.WriteCalls))
	}
}

func TestController_TinyCapacityStaysBounded(t *testing.T) {
	sink := mocks.NewFrameSink()
	c := NewController(sink, &mocks.Transformer{}, Options{Capacity: 1})

	for i := 0; i < 1000; i++ {
		if err := c.Insert(rawFrame(float64(i))); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	if c.buffer.len() > 2 {
		t.Errorf("buffer grew past its bound: %d frames", c.buffer.len())
	}
	if len(sink.WriteCalls) == 0 {
		t.Error("expected drains to reach the sink")
	}
	if got := c.buffer.len() + len(sink.WriteCalls); got != 1000 {
		t.Errorf("expected every frame buffered or written, got %d", got)
	}
}

func TestController_StopIsIdempotent(t *testing.T) {
	sink := mocks.NewFrameSink()
	stops := 0
	sink.StopFunc = func() bool {
		stops++
		return true
	}
	c := NewController(sink, &mocks.Transformer{}, Options{})
	c.Insert(rawFrame(0))

	first := c.Stop(1)
	second := c.Stop(2)

	if first != second {
		t.Errorf("expected identical results, got %v then %v", first, second)
	}
	if stops != 1 {
		t.Errorf("expected sink finalized once, got %d", stops)
	}
	if len(sink.WriteCalls) != 1 {
		t.Errorf("expected drain performed once, got %d writes", len(sink.WriteCalls))
	}
}

func TestController_InsertAfterStopIsDiscarded(t *testing.T) {
	sink := mocks.NewFrameSink()
	c := NewController(sink, &mocks.Transformer{}, Options{})
	c.Insert(rawFrame(0))
	c.Stop(1)

	if err := c.Insert(rawFrame(2)); err != nil {
		t.Fatalf("insert after stop: %v", err)
	}

	if len(sink.WriteCalls) != 1 {
		t.Errorf("frame appended after final drain: %d writes", len(sink.WriteCalls))
	}
	if c.Dropped() != 1 {
		t.Errorf("expected 1 dropped frame, got %d", c.Dropped())
	}
}

func TestController_TransformFailureDropsFrame(t *testing.T) {
	sink := mocks.NewFrameSink()
	transformer := &mocks.Transformer{
		TransformFunc: func(data []byte, w, h int, bg color.Color) ([]byte, error) {
			if data[0] == 0xBA {
				return nil, errors.New("decode failed")
			}
			return data, nil
		},
	}
	c := NewController(sink, transformer, Options{
		Canvas: pipeline.Dimension{Width: 100, Height: 100},
	})

	c.Insert(pipeline.RawFrame{Data: []byte{0x00}, Timestamp: 0})
	c.Insert(pipeline.RawFrame{Data: []byte{0xBA}, Timestamp: 0.5})
	c.Insert(pipeline.RawFrame{Data: []byte{0x01}, Timestamp: 1.0})
	c.Stop(1.5)

	if c.Accepted() != 2 || c.Dropped() != 1 {
		t.Errorf("expected 2 accepted / 1 dropped, got %d / %d", c.Accepted(), c.Dropped())
	}
	if len(sink.WriteCalls) != 2 {
		t.Errorf("expected 2 writes, got %d", len(sink.WriteCalls))
	}
}

func TestController_PassThroughWithoutCanvas(t *testing.T) {
	sink := mocks.NewFrameSink()
	transformer := &mocks.Transformer{}
	c := NewController(sink, transformer, Options{})

	c.Insert(rawFrame(0))
	c.Stop(1)

	if transformer.TransformCalls != 0 {
		t.Errorf("expected no transform calls without a canvas, got %d", transformer.TransformCalls)
	}
}

func TestController_SinkErrorDuringStopStillFinalizes(t *testing.T) {
	sink := mocks.NewFrameSink()
	sink.WriteFunc = func(blob []byte, d float64) error {
		return errors.New("broken pipe")
	}
	sink.StopFunc = func() bool { return false }
	c := NewController(sink, &mocks.Transformer{}, Options{})
	c.Insert(rawFrame(0))

	if ok := c.Stop(1); ok {
		t.Error("expected stop to report failure")
	}
	if sink.StopCalls != 1 {
		t.Errorf("sink must be finalized even on the error path, got %d stops", sink.StopCalls)
	}
}
