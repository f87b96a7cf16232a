// Package fixture builds small, valid PDF documents with embedded images.
//
// The output is deterministic: the same sequence of Add calls always yields
// the same bytes. Tests use it instead of checked-in binaries, and
// e2e/gen_fixtures.go writes its results to disk.
package fixture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// Image describes one image XObject placed on its own page.
type Image struct {
	Width      int
	Height     int
	ColorSpace string // DeviceGray, DeviceRGB or DeviceCMYK
	Pix        []byte // 8-bit interleaved samples
	Filter     string // "", "FlateDecode" or "DCTDecode"

	// Palette turns ColorSpace into the base of an /Indexed space with
	// len(Palette)/components entries; Pix then holds indices.
	Palette []byte
	// BitsPerComponent defaults to 8. Pix must already be packed.
	BitsPerComponent int

	// Mask adds an 8-bit DeviceGray /SMask. Zero MaskWidth/MaskHeight
	// mean "same as the image".
	Mask       []byte
	MaskWidth  int
	MaskHeight int
}

// Builder accumulates images and serializes them as one PDF.
type Builder struct {
	images []Image
}

// New returns an empty builder.
func New() *Builder { return &Builder{} }

// Add appends an image and returns its object number in the written file.
func (b *Builder) Add(img Image) int {
	b.images = append(b.images, img)
	id := 3 // 1 catalog, 2 pages
	for _, prev := range b.images[:len(b.images)-1] {
		id += objectsFor(prev)
	}
	return id + 2 // page, content
}

// MaskID returns the object number of the n-th image's soft mask
// (n counts from 0), or 0 if it has none.
func (b *Builder) MaskID(n int) int {
	if n < 0 || n >= len(b.images) || b.images[n].Mask == nil {
		return 0
	}
	id := 3
	for _, prev := range b.images[:n] {
		id += objectsFor(prev)
	}
	return id + 3
}

// page, content, image, optional mask
func objectsFor(img Image) int {
	if img.Mask != nil {
		return 4
	}
	return 3
}

// Bytes serializes the document.
func (b *Builder) Bytes() ([]byte, error) {
	if len(b.images) == 0 {
		return nil, fmt.Errorf("fixture: no images")
	}

	var objs [][]byte
	var kids []string
	next := 3
	for i, img := range b.images {
		pageID, contentID, imageID := next, next+1, next+2
		maskID := 0
		if img.Mask != nil {
			maskID = next + 3
		}
		next += objectsFor(img)
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))

		name := fmt.Sprintf("Im%d", i+1)
		objs = append(objs, []byte(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /XObject << /%s %d 0 R >> >> /Contents %d 0 R >>",
			name, imageID, contentID)))

		content := fmt.Sprintf("q 500 0 0 %d 56 100 cm /%s Do Q", 500*img.Height/max(img.Width, 1), name)
		objs = append(objs, stream("", []byte(content)))

		body, filter, err := encodeSamples(img.Pix, img.Filter, img.Width, img.Height, img.ColorSpace)
		if err != nil {
			return nil, fmt.Errorf("fixture: image %d: %w", i+1, err)
		}
		dict := fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace %s /BitsPerComponent %d%s",
			img.Width, img.Height, colorSpace(img), bitsPerComponent(img), filter)
		if maskID != 0 {
			dict += fmt.Sprintf(" /SMask %d 0 R", maskID)
		}
		objs = append(objs, stream(dict, body))

		if maskID != 0 {
			mw, mh := img.MaskWidth, img.MaskHeight
			if mw == 0 || mh == 0 {
				mw, mh = img.Width, img.Height
			}
			mbody, mfilter, err := encodeSamples(img.Mask, "FlateDecode", mw, mh, "DeviceGray")
			if err != nil {
				return nil, fmt.Errorf("fixture: mask %d: %w", i+1, err)
			}
			objs = append(objs, stream(fmt.Sprintf(
				"/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8%s",
				mw, mh, mfilter), mbody))
		}
	}

	head := [][]byte{
		[]byte("<< /Type /Catalog /Pages 2 0 R >>"),
		[]byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))),
	}
	return serialize(append(head, objs...)), nil
}

// Write serializes the document to path.
func (b *Builder) Write(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func colorSpace(img Image) string {
	if img.Palette == nil {
		return "/" + img.ColorSpace
	}
	n := 3
	switch img.ColorSpace {
	case "DeviceGray":
		n = 1
	case "DeviceCMYK":
		n = 4
	}
	return fmt.Sprintf("[/Indexed /%s %d <%x>]", img.ColorSpace, len(img.Palette)/n-1, img.Palette)
}

func bitsPerComponent(img Image) int {
	if img.BitsPerComponent == 0 {
		return 8
	}
	return img.BitsPerComponent
}

func stream(dict string, body []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< %s /Length %d >>\nstream\n", strings.TrimSpace(dict), len(body))
	buf.Write(body)
	buf.WriteString("\nendstream")
	return buf.Bytes()
}

func serialize(objs [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		buf.Write(o)
		buf.WriteString("\nendobj\n")
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func encodeSamples(pix []byte, filter string, w, h int, cs string) ([]byte, string, error) {
	switch filter {
	case "":
		return pix, "", nil
	case "FlateDecode":
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(pix); err != nil {
			return nil, "", err
		}
		if err := zw.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), " /Filter /FlateDecode", nil
	case "DCTDecode":
		data, err := EncodeJPEG(pix, w, h, cs)
		if err != nil {
			return nil, "", err
		}
		return data, " /Filter /DCTDecode", nil
	}
	return nil, "", fmt.Errorf("unsupported filter %q", filter)
}

// EncodeJPEG encodes 8-bit gray or RGB samples at quality 90.
func EncodeJPEG(pix []byte, w, h int, cs string) ([]byte, error) {
	var img image.Image
	switch cs {
	case "DeviceGray":
		img = &image.Gray{Pix: pix, Stride: w, Rect: image.Rect(0, 0, w, h)}
	case "DeviceRGB":
		rgba := image.NewNRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < w*h; i++ {
			rgba.Pix[i*4] = pix[i*3]
			rgba.Pix[i*4+1] = pix[i*3+1]
			rgba.Pix[i*4+2] = pix[i*3+2]
			rgba.Pix[i*4+3] = 0xff
		}
		img = rgba
	default:
		return nil, fmt.Errorf("no JPEG encoding for %s", cs)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RGB returns a w*h gradient with 3 samples per pixel.
func RGB(w, h int) []byte {
	pix := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			pix[i] = uint8(x * 255 / max(w-1, 1))
			pix[i+1] = uint8(y * 255 / max(h-1, 1))
			pix[i+2] = 128
		}
	}
	return pix
}

// Gray returns a w*h horizontal ramp with 1 sample per pixel.
func Gray(w, h int) []byte {
	pix := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix[y*w+x] = uint8(x * 255 / max(w-1, 1))
		}
	}
	return pix
}

// CMYK returns a w*h pattern with 4 samples per pixel.
func CMYK(w, h int) []byte {
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			pix[i] = uint8(x * 255 / max(w-1, 1))
			pix[i+1] = uint8(y * 255 / max(h-1, 1))
			pix[i+2] = 40
			pix[i+3] = 10
		}
	}
	return pix
}

// Mask returns a w*h soft mask: opaque center, transparent border band.
func Mask(w, h int) []byte {
	pix := make([]byte, w*h)
	bw, bh := w/8, h/8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= bw && x < w-bw && y >= bh && y < h-bh {
				pix[y*w+x] = 0xff
			}
		}
	}
	return pix
}

// Solid returns w*h RGB samples of a single color.
func Solid(w, h int, c color.RGBA) []byte {
	pix := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		pix[i*3], pix[i*3+1], pix[i*3+2] = c.R, c.G, c.B
	}
	return pix
}
