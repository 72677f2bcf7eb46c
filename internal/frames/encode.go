package frames

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Encoding defaults for frames sent to vision models.
const (
	DefaultMaxEdge     = 640
	DefaultJPEGQuality = 78
)

// Encode decodes an image (PNG from ffmpeg, or any registered format),
// shrinks it so the long edge is at most maxEdge and re-encodes it as JPEG.
// Images already within bounds are not enlarged.
func Encode(raw []byte, maxEdge, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return encodeImage(img, maxEdge, quality)
}

func encodeImage(img image.Image, maxEdge, quality int) ([]byte, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	b := img.Bounds()
	if b.Dx() > maxEdge || b.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
