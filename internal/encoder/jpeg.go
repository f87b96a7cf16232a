package encoder

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/gen2brain/jpegli"
	"golang.org/x/image/draw"
)

const defaultQuality = 40

// JPEGEncoder encodes images to JPEG. With Optimize set it uses jpegli with
// optimized Huffman tables and adaptive quantization; the standard library
// encoder is the fallback when jpegli fails.
type JPEGEncoder struct {
	Optimize bool
}

func (e *JPEGEncoder) Format() string { return FormatJPEG }
func (e *JPEGEncoder) Available() bool { return true }

func (e *JPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}

	var buf bytes.Buffer
	buf.Grow(128 * 1024)

	src := opaqueRGBA(img)
	if e.Optimize {
		err := jpegli.Encode(&buf, src, &jpegli.EncodingOptions{
			Quality:              quality,
			ChromaSubsampling:    image.YCbCrSubsampleRatio420,
			OptimizeCoding:       true,
			AdaptiveQuantization: true,
			FancyDownsampling:    true,
		})
		if err == nil {
			return buf.Bytes(), nil
		}
		buf.Reset()
	}

	err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// opaqueRGBA flattens img onto an RGBA canvas. Gray and RGBA inputs pass
// through untouched.
func opaqueRGBA(img image.Image) image.Image {
	switch img.(type) {
	case *image.RGBA, *image.Gray, *image.YCbCr:
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
