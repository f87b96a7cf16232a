package recompress

import "image"

// SourceImage is one embedded image as handed over by the container.
// The pipeline only reads it.
type SourceImage struct {
	Width    int
	Height   int
	Channels int  // samples per pixel, alpha included when HasAlpha is set
	HasAlpha bool // last sample of each pixel is alpha
	Pix      []byte

	// Mask is an optional separate 8-bit transparency buffer.
	// Zero MaskWidth/MaskHeight mean "same as the image".
	Mask       []byte
	MaskWidth  int
	MaskHeight int
}

// PixelMode is the working representation chosen after normalization.
type PixelMode int

const (
	Gray PixelMode = iota
	RGB
	RGBA
)

func (m PixelMode) String() string {
	switch m {
	case Gray:
		return "Gray"
	case RGB:
		return "RGB"
	case RGBA:
		return "RGBA"
	}
	return "unknown"
}

// Output formats.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// EncodedResult is the re-encoded stream plus everything done to get there.
type EncodedResult struct {
	Bytes  []byte
	Format string
	Width  int
	Height int

	// MaskStillNeeded tells the container whether the original transparency
	// mask must stay attached to the image.
	MaskStillNeeded bool
	// MaskComposed reports that a separate mask was merged into the pixels.
	MaskComposed bool

	// Actions lists the transformations in the order they were applied.
	Actions []string
}

// Status is the terminal state of one Process call.
type Status int

const (
	Recompressed Status = iota
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Recompressed:
		return "recompressed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the result of processing one image. Result is set only for
// Recompressed, Err only for Failed.
type Outcome struct {
	Status Status
	Result *EncodedResult
	Err    error
}

// Sink receives intermediate pixel buffers, e.g. for debug dumps.
// stage is "before" or "after".
type Sink interface {
	Put(stage string, img image.Image)
}
