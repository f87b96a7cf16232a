// Package recompress rewrites one embedded raster image into a smaller
// stream: mask composition, CMYK conversion, aspect-preserving Lanczos
// downsampling, then palette PNG for transparent images or JPEG otherwise.
package recompress

import (
	"fmt"
	"image"
	"math"

	"github.com/AnyUserName/pdfslim/internal/encoder"
	"github.com/AnyUserName/pdfslim/internal/profile"
	"github.com/AnyUserName/pdfslim/internal/quantize"
	"github.com/disintegration/imaging"
)

// Processor applies one profile to images. It holds no per-image state and
// may be reused for any number of Process calls.
type Processor struct {
	prof     profile.Profile
	registry *encoder.Registry
}

// New creates a processor for the given profile.
func New(prof profile.Profile) *Processor {
	return &Processor{
		prof:     prof,
		registry: encoder.NewRegistry(prof.Optimize),
	}
}

// Encoders describes the available output encoders.
func (p *Processor) Encoders() string { return p.registry.String() }

// Process transforms src. It never panics: any failure is reported as a
// Failed outcome and the caller keeps the original stream. sink may be nil.
func (p *Processor) Process(src SourceImage, sink Sink) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Status: Failed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	var actions []string

	r, note, err := newRaster(src)
	if err != nil {
		return Outcome{Status: Failed, Err: err}
	}
	if note != "" {
		actions = append(actions, note)
	}

	composed := false
	if len(src.Mask) > 0 {
		if err := r.composeMask(src.Mask, src.MaskWidth, src.MaskHeight); err != nil {
			actions = append(actions, "mask composition failed: "+err.Error())
		} else {
			composed = true
		}
	}

	if r.width < p.prof.MinDim || r.height < p.prof.MinDim {
		return Outcome{Status: Skipped}
	}

	if r.colors >= 4 {
		r.cmykToRGB()
		actions = append(actions, "CMYK->RGB")
	}

	mode := r.mode()
	img := r.toImage(mode)
	put(sink, "before", img)

	img = downsample(img, p.prof.MaxDim, &actions, true)

	var res *EncodedResult
	if mode == RGBA {
		res, err = p.encodeAlpha(img, &actions, sink)
	} else {
		res, err = p.encodeOpaque(img, mode, &actions, sink)
	}
	if err != nil {
		return Outcome{Status: Failed, Err: err}
	}
	res.MaskComposed = composed
	res.Actions = actions
	return Outcome{Status: Recompressed, Result: res}
}

func (p *Processor) encodeAlpha(img image.Image, actions *[]string, sink Sink) (*EncodedResult, error) {
	img = downsample(img, p.prof.AlphaMaxDim, actions, false)

	out := img
	if q, err := quantize.Image(img, p.prof.PaletteSize); err != nil {
		*actions = append(*actions, "quantize failed: "+err.Error())
	} else {
		out = q
		*actions = append(*actions, fmt.Sprintf("quantize %d colors", len(q.Palette)))
	}
	put(sink, "after", out)

	data, err := p.registry.Get(encoder.FormatPNG).Encode(out, 0)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	*actions = append(*actions, "format: PNG (optimized)")

	b := out.Bounds()
	return &EncodedResult{
		Bytes:  data,
		Format: FormatPNG,
		Width:  b.Dx(),
		Height: b.Dy(),
		// Alpha now travels inside the PNG; the old mask can go.
		MaskStillNeeded: false,
	}, nil
}

func (p *Processor) encodeOpaque(img image.Image, mode PixelMode, actions *[]string, sink Sink) (*EncodedResult, error) {
	if mode != RGB {
		img = imaging.Clone(img)
		*actions = append(*actions, fmt.Sprintf("convert %s->RGB", mode))
	}

	img = downsample(img, p.prof.OpaqueMaxDim, actions, false)
	put(sink, "after", img)

	data, err := p.registry.Get(encoder.FormatJPEG).Encode(img, p.prof.Quality)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	*actions = append(*actions, fmt.Sprintf("format: JPEG (q=%d)", p.prof.Quality))

	b := img.Bounds()
	return &EncodedResult{
		Bytes:           data,
		Format:          FormatJPEG,
		Width:           b.Dx(),
		Height:          b.Dy(),
		MaskStillNeeded: false,
	}, nil
}

// downsample shrinks img so its longer side equals limit when either side
// exceeds it. keepNote records "keep dims" when nothing changes.
func downsample(img image.Image, limit int, actions *[]string, keepNote bool) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	nw, nh, ok := FitWithin(w, h, limit)
	if !ok {
		if keepNote {
			*actions = append(*actions, fmt.Sprintf("keep dims %dx%d", w, h))
		}
		return img
	}
	*actions = append(*actions, fmt.Sprintf("resize %dx%d -> %dx%d", w, h, nw, nh))
	return imaging.Resize(img, nw, nh, imaging.Lanczos)
}

// FitWithin returns the aspect-preserving size whose longer side equals limit,
// and false when neither side exceeds limit.
func FitWithin(w, h, limit int) (int, int, bool) {
	if w <= limit && h <= limit {
		return w, h, false
	}
	if w >= h {
		return limit, scaleSide(h, limit, w), true
	}
	return scaleSide(w, limit, h), limit, true
}

func scaleSide(short, limit, long int) int {
	v := int(math.Round(float64(short) * float64(limit) / float64(long)))
	if v < 1 {
		v = 1
	}
	return v
}

func put(sink Sink, stage string, img image.Image) {
	if sink != nil {
		sink.Put(stage, img)
	}
}
