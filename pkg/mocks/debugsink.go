package mocks

import (
	"github.com/user/pagecast/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	EnabledValue     bool
	SaveRawFrameFunc func(index int, data []byte) error

	// Recorded calls for verification
	SavedFrames []int
}

func (m *DebugSink) Enabled() bool {
	return m.EnabledValue
}

func (m *DebugSink) SaveRawFrame(index int, data []byte) error {
	m.SavedFrames = append(m.SavedFrames, index)
	if m.SaveRawFrameFunc != nil {
		return m.SaveRawFrameFunc(index, data)
	}
	return nil
}

var _ ports.DebugSink = (*DebugSink)(nil)
