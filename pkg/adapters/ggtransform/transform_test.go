package ggtransform

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func encodeTestImage(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestTransform_ResizesToCanvas(t *testing.T) {
	tr := New(90)
	data := encodeTestImage(t, 200, 100, color.White)

	out, err := tr.Transform(data, 100, 100, color.Black)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 100 {
		t.Errorf("expected 100x100 canvas, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestTransform_PadsWithBackground(t *testing.T) {
	tr := New(90)
	// A wide white image on a 100x100 canvas leaves bars above and below.
	data := encodeTestImage(t, 200, 100, color.White)

	out, err := tr.Transform(data, 100, 100, color.Black)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}

	r, g, b, _ := img.At(50, 2).RGBA()
	if r>>8 > 40 || g>>8 > 40 || b>>8 > 40 {
		t.Errorf("expected dark padding at top, got rgb(%d,%d,%d)", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = img.At(50, 50).RGBA()
	if r>>8 < 200 || g>>8 < 200 || b>>8 < 200 {
		t.Errorf("expected white content at center, got rgb(%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestTransform_PassThroughWithoutCanvas(t *testing.T) {
	tr := New(90)
	data := []byte{0x01, 0x02, 0x03} // not even an image

	out, err := tr.Transform(data, 0, 0, nil)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("expected pass-through to return data unchanged")
	}
}

func TestTransform_DecodeErrorIsReturned(t *testing.T) {
	tr := New(90)
	if _, err := tr.Transform([]byte{0xDE, 0xAD}, 100, 100, nil); err == nil {
		t.Error("expected decode error for garbage input")
	}
}
