package mocks

import (
	"image/color"

	"github.com/user/pagecast/pkg/ports"
)

// Transformer is a mock implementation of ports.Transformer.
// By default it passes data through unchanged.
type Transformer struct {
	TransformFunc func(data []byte, width, height int, background color.Color) ([]byte, error)

	// Recorded calls for verification
	TransformCalls int
}

func (m *Transformer) Transform(data []byte, width, height int, background color.Color) ([]byte, error) {
	m.TransformCalls++
	if m.TransformFunc != nil {
		return m.TransformFunc(data, width, height, background)
	}
	return data, nil
}

var _ ports.Transformer = (*Transformer)(nil)
