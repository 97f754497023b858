package ports

import (
	"image/color"
)

// Transformer normalizes a raw captured image onto the output canvas.
// Implementations are pure: they carry no state between calls and have no
// ordering concerns.
type Transformer interface {
	// Transform converts raw image data into a canvas-sized encoded image.
	// The image is scaled to fit the canvas preserving its aspect ratio and
	// padded with the background color. When width or height is zero the
	// data passes through unchanged.
	Transform(data []byte, width, height int, background color.Color) ([]byte, error)
}
