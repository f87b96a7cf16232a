package container

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/draw"

	"github.com/AnyUserName/pdfslim/internal/recompress"
)

// Commit replaces the content of an image object with a re-encoded stream.
// The object number stays the same, so every page using the image sees the
// new version.
func (d *Document) Commit(img Image, res *recompress.EncodedResult) error {
	if res == nil || len(res.Bytes) == 0 {
		return fmt.Errorf("image %d: empty result", img.ID)
	}
	sd, err := d.stream(img.ID)
	if err != nil {
		return err
	}

	dict := sd.Dict
	if !res.MaskStillNeeded {
		if ref, ok := dict["SMask"].(types.IndirectRef); ok {
			d.orphans[ref.ObjectNumber.Value()] = true
		}
		delete(dict, "SMask")
		delete(dict, "SMaskInData")
	}
	delete(dict, "Decode")
	delete(dict, "DecodeParms")
	if _, ok := d.resolve(dict["Mask"]).(types.Array); ok {
		// color key ranges no longer match lossy samples
		delete(dict, "Mask")
	}

	switch res.Format {
	case recompress.FormatJPEG:
		dict["ColorSpace"] = types.Name("DeviceRGB")
		dict["BitsPerComponent"] = types.Integer(8)
		dict["Width"] = types.Integer(res.Width)
		dict["Height"] = types.Integer(res.Height)
		setStream(&sd, nil, res.Bytes, types.PDFFilter{Name: "DCTDecode"})
	case recompress.FormatPNG:
		if err := d.embedPNG(&sd, res.Bytes); err != nil {
			return fmt.Errorf("image %d: %w", img.ID, err)
		}
	default:
		return fmt.Errorf("image %d: unsupported format %q", img.ID, res.Format)
	}

	d.store(img.ID, sd)
	return nil
}

// embedPNG stores a PNG as Flate-compressed samples. Palette images keep
// their palette as an /Indexed color space; non-opaque alpha becomes a new
// /SMask object.
func (d *Document) embedPNG(sd *types.StreamDict, data []byte) error {
	m, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode png: %w", err)
	}
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()

	var pix, alpha []byte
	var cs types.Object = types.Name("DeviceRGB")
	if p, ok := m.(*image.Paletted); ok {
		pix, alpha = indexed(p)
		cs = types.Array{
			types.Name("Indexed"),
			types.Name("DeviceRGB"),
			types.Integer(len(p.Palette) - 1),
			types.HexLiteral(hex.EncodeToString(lookup(p.Palette))),
		}
	} else {
		pix, alpha = rgbAlpha(m)
	}

	z, err := deflate(pix)
	if err != nil {
		return err
	}
	dict := sd.Dict
	dict["ColorSpace"] = cs
	dict["BitsPerComponent"] = types.Integer(8)
	dict["Width"] = types.Integer(w)
	dict["Height"] = types.Integer(h)
	setStream(sd, pix, z, types.PDFFilter{Name: "FlateDecode"})

	if alpha == nil {
		return nil
	}
	ref, err := d.newMask(alpha, w, h)
	if err != nil {
		return err
	}
	dict["SMask"] = *ref
	return nil
}

func (d *Document) newMask(alpha []byte, w, h int) (*types.IndirectRef, error) {
	z, err := deflate(alpha)
	if err != nil {
		return nil, err
	}
	dict := types.Dict{
		"Type":             types.Name("XObject"),
		"Subtype":          types.Name("Image"),
		"Width":            types.Integer(w),
		"Height":           types.Integer(h),
		"ColorSpace":       types.Name("DeviceGray"),
		"BitsPerComponent": types.Integer(8),
	}
	sd := types.StreamDict{Dict: dict}
	setStream(&sd, alpha, z, types.PDFFilter{Name: "FlateDecode"})
	ref, err := d.ctx.IndRefForNewObject(sd)
	if err != nil {
		return nil, fmt.Errorf("add mask object: %w", err)
	}
	return ref, nil
}

// indexed returns the palette indices and, if any entry is not fully opaque,
// the per-pixel alpha.
func indexed(p *image.Paletted) (pix, alpha []byte) {
	b := p.Bounds()
	w, h := b.Dx(), b.Dy()
	pix = make([]byte, 0, w*h)
	for y := 0; y < h; y++ {
		pix = append(pix, p.Pix[y*p.Stride:y*p.Stride+w]...)
	}

	entryAlpha := make([]byte, len(p.Palette))
	translucent := false
	for i, c := range p.Palette {
		_, _, _, a := c.RGBA()
		entryAlpha[i] = uint8(a >> 8)
		if entryAlpha[i] != 0xff {
			translucent = true
		}
	}
	if !translucent {
		return pix, nil
	}
	alpha = make([]byte, len(pix))
	for i, idx := range pix {
		if int(idx) < len(entryAlpha) {
			alpha[i] = entryAlpha[idx]
		}
	}
	return pix, alpha
}

// lookup builds the RGB lookup string of an /Indexed color space.
// Colors are un-premultiplied.
func lookup(pal []color.Color) []byte {
	out := make([]byte, 0, len(pal)*3)
	for _, c := range pal {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		out = append(out, n.R, n.G, n.B)
	}
	return out
}

// rgbAlpha flattens any image into RGB samples plus alpha when needed.
func rgbAlpha(m image.Image) (pix, alpha []byte) {
	b := m.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Bounds(), m, b.Min, draw.Src)

	count := b.Dx() * b.Dy()
	pix = make([]byte, count*3)
	a := make([]byte, count)
	translucent := false
	for i := 0; i < count; i++ {
		pix[i*3] = n.Pix[i*4]
		pix[i*3+1] = n.Pix[i*4+1]
		pix[i*3+2] = n.Pix[i*4+2]
		a[i] = n.Pix[i*4+3]
		if a[i] != 0xff {
			translucent = true
		}
	}
	if translucent {
		alpha = a
	}
	return pix, alpha
}
