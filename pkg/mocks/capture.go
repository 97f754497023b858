package mocks

import (
	"context"

	"github.com/user/pagecast/pkg/ports"
)

// CaptureSource is a mock implementation of ports.CaptureSource.
type CaptureSource struct {
	StartFunc func(ctx context.Context, opts ports.CaptureOptions) (<-chan ports.CapturedFrame, error)
	StopFunc  func() error

	// Recorded calls for verification
	StartCalled bool
	StopCalled  bool
}

func (m *CaptureSource) Start(ctx context.Context, opts ports.CaptureOptions) (<-chan ports.CapturedFrame, error) {
	m.StartCalled = true
	if m.StartFunc != nil {
		return m.StartFunc(ctx, opts)
	}
	ch := make(chan ports.CapturedFrame)
	close(ch)
	return ch, nil
}

func (m *CaptureSource) Stop() error {
	m.StopCalled = true
	if m.StopFunc != nil {
		return m.StopFunc()
	}
	return nil
}

var _ ports.CaptureSource = (*CaptureSource)(nil)
