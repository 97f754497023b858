// Package ggtransform normalizes captured frames onto a fixed output canvas
// using the gg drawing library.
package ggtransform

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // screencast sources may deliver PNG frames

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/pagecast/pkg/ports"
)

// defaultQuality is the JPEG quality of re-encoded frames.
const defaultQuality = 90

// Transformer implements ports.Transformer. It is stateless and safe for
// concurrent use.
type Transformer struct {
	quality int
}

// New creates a Transformer re-encoding frames at the given JPEG quality.
// Quality outside 1-100 uses the default.
func New(quality int) *Transformer {
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}
	return &Transformer{quality: quality}
}

// Transform decodes the frame, scales it to fit the canvas preserving its
// aspect ratio, centers it over the background color and re-encodes it as
// JPEG. Zero canvas dimensions pass the data through unchanged.
func (t *Transformer) Transform(data []byte, width, height int, background color.Color) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	if background == nil {
		background = color.Black
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(background)
	dc.Clear()

	scaled := fit(img, width, height)
	bounds := scaled.Bounds()
	x := (width - bounds.Dx()) / 2
	y := (height - bounds.Dy()) / 2
	dc.DrawImage(scaled, x, y)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: t.quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// fit scales img down (or up) to the largest size fitting within w x h while
// preserving its aspect ratio. An image already at the target size is
// returned as-is.
func fit(img image.Image, w, h int) image.Image {
	bounds := img.Bounds()
	sw, sh := bounds.Dx(), bounds.Dy()
	if sw == w && sh == h {
		return img
	}

	scaleX := float64(w) / float64(sw)
	scaleY := float64(h) / float64(sh)
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}

	dw := int(float64(sw) * scale)
	dh := int(float64(sh) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// Ensure Transformer implements ports.Transformer
var _ ports.Transformer = (*Transformer)(nil)
