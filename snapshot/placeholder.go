package snapshot

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

var placeholderPNG = sync.OnceValue(func() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	var buf bytes.Buffer
	// Encoding a 1x1 in-memory image cannot fail.
	_ = png.Encode(&buf, img)
	return buf.Bytes()
})
