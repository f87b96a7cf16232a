package encoder

import (
	"image"
)

// Format names understood by the registry.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// Encoder encodes an image to a specific format.
type Encoder interface {
	// Format returns the output format name ("jpeg" or "png").
	Format() string

	// Encode converts the image to bytes at the given quality (1-100).
	// Lossless encoders ignore quality.
	Encode(img image.Image, quality int) ([]byte, error)

	// Available returns true if the encoder is ready to use.
	Available() bool
}
