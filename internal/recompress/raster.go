package recompress

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// raster is the interleaved 8-bit working buffer: colors samples (1 gray,
// 3 RGB, 4 CMYK) optionally followed by one alpha sample.
type raster struct {
	width, height int
	colors        int
	alpha         bool
	pix           []byte
}

func (r *raster) stride() int {
	n := r.colors
	if r.alpha {
		n++
	}
	return n
}

// newRaster validates src and wraps its buffer. When the buffer length does
// not match the declared layout it is tried as an encoded image instead; the
// returned note describes that fallback.
func newRaster(src SourceImage) (*raster, string, error) {
	if src.Width < 0 || src.Height < 0 {
		return nil, "", fmt.Errorf("invalid dimensions %dx%d", src.Width, src.Height)
	}
	colors := src.Channels
	if src.HasAlpha {
		colors--
	}
	switch colors {
	case 1, 3, 4:
	default:
		return nil, "", fmt.Errorf("unsupported channel layout: %d channels, alpha=%v", src.Channels, src.HasAlpha)
	}

	r := &raster{
		width:  src.Width,
		height: src.Height,
		colors: colors,
		alpha:  src.HasAlpha,
		pix:    src.Pix,
	}
	if len(src.Pix) == src.Width*src.Height*src.Channels {
		return r, "", nil
	}

	img, format, err := image.Decode(bytes.NewReader(src.Pix))
	if err != nil {
		return nil, "", fmt.Errorf("pixel buffer has %d bytes, want %d for %dx%dx%d",
			len(src.Pix), src.Width*src.Height*src.Channels, src.Width, src.Height, src.Channels)
	}
	return rasterFromImage(img), fmt.Sprintf("decoded %s stream", format), nil
}

func rasterFromImage(img image.Image) *raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		pix := make([]byte, w*h)
		for y := 0; y < h; y++ {
			copy(pix[y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
		}
		return &raster{width: w, height: h, colors: 1, pix: pix}
	case *image.CMYK:
		pix := make([]byte, w*h*4)
		for y := 0; y < h; y++ {
			copy(pix[y*w*4:(y+1)*w*4], src.Pix[y*src.Stride:y*src.Stride+w*4])
		}
		return &raster{width: w, height: h, colors: 4, pix: pix}
	}

	n := imaging.Clone(img)
	if opaque(n) {
		pix := make([]byte, 0, w*h*3)
		for i := 0; i < len(n.Pix); i += 4 {
			pix = append(pix, n.Pix[i], n.Pix[i+1], n.Pix[i+2])
		}
		return &raster{width: w, height: h, colors: 3, pix: pix}
	}
	return &raster{width: w, height: h, colors: 3, alpha: true, pix: n.Pix}
}

func opaque(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			return false
		}
	}
	return true
}

// composeMask merges a separate single-channel mask into the alpha channel,
// replacing any alpha already present.
func (r *raster) composeMask(mask []byte, mw, mh int) error {
	if mw == 0 && mh == 0 {
		mw, mh = r.width, r.height
	}
	if mw != r.width || mh != r.height {
		return fmt.Errorf("mask %dx%d does not match image %dx%d", mw, mh, r.width, r.height)
	}
	if len(mask) != mw*mh {
		return fmt.Errorf("mask buffer has %d bytes, want %d", len(mask), mw*mh)
	}

	in := r.stride()
	out := r.colors + 1
	pix := make([]byte, r.width*r.height*out)
	for i, j, k := 0, 0, 0; k < len(mask); i, j, k = i+in, j+out, k+1 {
		copy(pix[j:j+r.colors], r.pix[i:i+r.colors])
		pix[j+r.colors] = mask[k]
	}
	r.pix = pix
	r.alpha = true
	return nil
}

// cmykToRGB converts 4-color samples to RGB, keeping alpha.
func (r *raster) cmykToRGB() {
	in := r.stride()
	out := 3
	if r.alpha {
		out++
	}
	n := r.width * r.height
	pix := make([]byte, n*out)
	for i, j := 0, 0; j < len(pix); i, j = i+in, j+out {
		pix[j], pix[j+1], pix[j+2] = color.CMYKToRGB(r.pix[i], r.pix[i+1], r.pix[i+2], r.pix[i+3])
		if r.alpha {
			pix[j+3] = r.pix[i+4]
		}
	}
	r.pix = pix
	r.colors = 3
}

// mode picks the working representation.
func (r *raster) mode() PixelMode {
	switch {
	case r.alpha:
		return RGBA
	case r.colors == 1:
		return Gray
	}
	return RGB
}

// toImage wraps the buffer as an image.Image in the given mode. Gray shares the
// buffer; it is never written to afterwards.
func (r *raster) toImage(m PixelMode) image.Image {
	rect := image.Rect(0, 0, r.width, r.height)
	if m == Gray {
		return &image.Gray{Pix: r.pix, Stride: r.width, Rect: rect}
	}

	img := image.NewNRGBA(rect)
	in := r.stride()
	for i, j := 0, 0; j < len(img.Pix); i, j = i+in, j+4 {
		if r.colors == 1 {
			v := r.pix[i]
			img.Pix[j], img.Pix[j+1], img.Pix[j+2] = v, v, v
		} else {
			img.Pix[j], img.Pix[j+1], img.Pix[j+2] = r.pix[i], r.pix[i+1], r.pix[i+2]
		}
		if r.alpha {
			img.Pix[j+3] = r.pix[i+r.colors]
		} else {
			img.Pix[j+3] = 0xff
		}
	}
	return img
}
