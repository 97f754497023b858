// Package mocks provides mock implementations for testing.
package mocks

import (
	"sync"

	"github.com/user/pagecast/pkg/ports"
)

// FrameSink is a mock implementation of ports.FrameSink.
type FrameSink struct {
	WriteFunc func(blob []byte, durationSeconds float64) error
	StopFunc  func() bool

	mu sync.Mutex

	// Recorded calls for verification
	WriteCalls []WriteCall
	StopCalls  int

	errCh      chan error
	progressCh chan string
}

// WriteCall records a call to Write.
type WriteCall struct {
	Blob     []byte
	Duration float64
}

// NewFrameSink creates a new mock FrameSink.
func NewFrameSink() *FrameSink {
	return &FrameSink{
		errCh:      make(chan error, 1),
		progressCh: make(chan string, 16),
	}
}

func (m *FrameSink) Write(blob []byte, durationSeconds float64) error {
	m.mu.Lock()
	m.WriteCalls = append(m.WriteCalls, WriteCall{Blob: blob, Duration: durationSeconds})
	m.mu.Unlock()
	if m.WriteFunc != nil {
		return m.WriteFunc(blob, durationSeconds)
	}
	return nil
}

func (m *FrameSink) Stop() bool {
	m.mu.Lock()
	m.StopCalls++
	m.mu.Unlock()
	if m.StopFunc != nil {
		return m.StopFunc()
	}
	return true
}

func (m *FrameSink) Events() ports.SinkEvents {
	return ports.SinkEvents{Error: m.errCh, Progress: m.progressCh}
}

// EmitError delivers an error on the mock's error channel.
func (m *FrameSink) EmitError(err error) {
	m.errCh <- err
}

// Durations returns the durations of all recorded writes.
func (m *FrameSink) Durations() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.WriteCalls))
	for i, c := range m.WriteCalls {
		out[i] = c.Duration
	}
	return out
}

var _ ports.FrameSink = (*FrameSink)(nil)
