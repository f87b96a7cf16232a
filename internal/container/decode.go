package container

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/AnyUserName/pdfslim/internal/recompress"
)

// Load decodes an image and its soft mask into raw 8-bit samples.
// Indexed images are expanded into their base color space. Lab, Separation
// and DeviceN color spaces and JPX, JBIG2 and CCITT streams are rejected.
func (d *Document) Load(img Image) (recompress.SourceImage, error) {
	sd, err := d.stream(img.ID)
	if err != nil {
		return recompress.SourceImage{}, err
	}
	pix, w, h, channels, err := d.samples(sd)
	if err != nil {
		return recompress.SourceImage{}, fmt.Errorf("image %d: %w", img.ID, err)
	}
	src := recompress.SourceImage{Width: w, Height: h, Channels: channels, Pix: pix}

	if img.MaskID != 0 {
		msd, err := d.stream(img.MaskID)
		if err != nil {
			return recompress.SourceImage{}, fmt.Errorf("image %d: mask: %w", img.ID, err)
		}
		mpix, mw, mh, mc, err := d.samples(msd)
		if err != nil {
			return recompress.SourceImage{}, fmt.Errorf("image %d: mask %d: %w", img.ID, img.MaskID, err)
		}
		if mc != 1 {
			return recompress.SourceImage{}, fmt.Errorf("image %d: mask %d has %d channels", img.ID, img.MaskID, mc)
		}
		src.Mask, src.MaskWidth, src.MaskHeight = mpix, mw, mh
	}
	return src, nil
}

// colorSpace is a resolved image color space. For /Indexed, palette holds
// hival+1 entries of n base samples each.
type colorSpace struct {
	n       int
	palette []byte
}

// samples returns the decoded pixel buffer of one image stream.
func (d *Document) samples(sd types.StreamDict) (pix []byte, w, h, channels int, err error) {
	w, h = d.intEntry(sd.Dict, "Width"), d.intEntry(sd.Dict, "Height")
	if w <= 0 || h <= 0 {
		return nil, 0, 0, 0, fmt.Errorf("invalid dimensions %dx%d", w, h)
	}

	for _, f := range sd.FilterPipeline {
		switch f.Name {
		case "JPXDecode", "JBIG2Decode", "CCITTFaxDecode":
			return nil, 0, 0, 0, fmt.Errorf("unsupported filter %s", f.Name)
		}
	}
	if n := len(sd.FilterPipeline); n > 0 && sd.FilterPipeline[n-1].Name == "DCTDecode" {
		pix, channels, err = d.decodeDCT(sd)
		if err != nil {
			return nil, 0, 0, 0, err
		}
		// image/jpeg undoes the Adobe inversion of 4-component JPEGs, but
		// PDF applies only /Decode to the stored samples.
		inv := d.inverted(sd.Dict, channels)
		if channels == 4 {
			inv = !inv
		}
		if inv {
			invert(pix)
		}
		return pix, w, h, channels, nil
	}

	cs, err := d.colorSpace(sd.Dict["ColorSpace"])
	if err != nil {
		return nil, 0, 0, 0, err
	}
	bpc := d.intEntry(sd.Dict, "BitsPerComponent")
	switch bpc {
	case 1, 2, 4, 8:
	case 16:
		if cs.palette != nil {
			return nil, 0, 0, 0, fmt.Errorf("indexed image with 16 bits per component")
		}
	default:
		return nil, 0, 0, 0, fmt.Errorf("unsupported bits per component %d", bpc)
	}

	data := sd.Raw
	if len(sd.FilterPipeline) > 0 {
		if err := sd.Decode(); err != nil {
			return nil, 0, 0, 0, fmt.Errorf("decode stream: %w", err)
		}
		data = sd.Content
	}

	if cs.palette != nil {
		idx, err := unpack(data, w, h, 1, bpc, false)
		if err != nil {
			return nil, 0, 0, 0, err
		}
		return expandPalette(idx, cs), w, h, cs.n, nil
	}

	pix, err = unpack(data, w, h, cs.n, bpc, true)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	if d.inverted(sd.Dict, cs.n) {
		invert(pix)
	}
	return pix, w, h, cs.n, nil
}

// decodeDCT decodes a JPEG stream with the standard decoder. The channel
// count follows the JPEG, not the /ColorSpace entry.
func (d *Document) decodeDCT(sd types.StreamDict) ([]byte, int, error) {
	data := sd.Raw
	if len(sd.FilterPipeline) > 1 {
		// DCT behind another filter, e.g. FlateDecode DCTDecode
		if err := sd.Decode(); err != nil {
			return nil, 0, fmt.Errorf("decode stream: %w", err)
		}
		data = sd.Content
	}
	m, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("decode jpeg: %w", err)
	}
	b := m.Bounds()
	switch v := m.(type) {
	case *image.Gray:
		return packRows(v.Pix, v.Stride, b.Dx(), b.Dy(), 1), 1, nil
	case *image.CMYK:
		return packRows(v.Pix, v.Stride, b.Dx(), b.Dy(), 4), 4, nil
	}
	n := imaging.Clone(m)
	pix := make([]byte, 0, b.Dx()*b.Dy()*3)
	for i := 0; i < len(n.Pix); i += 4 {
		pix = append(pix, n.Pix[i], n.Pix[i+1], n.Pix[i+2])
	}
	return pix, 3, nil
}

func packRows(src []byte, stride, w, h, channels int) []byte {
	row := w * channels
	out := make([]byte, 0, row*h)
	for y := 0; y < h; y++ {
		out = append(out, src[y*stride:y*stride+row]...)
	}
	return out
}

func (d *Document) colorSpace(o types.Object) (colorSpace, error) {
	switch v := d.resolve(o).(type) {
	case nil:
		return colorSpace{}, fmt.Errorf("missing color space")
	case types.Name:
		switch v.Value() {
		case "DeviceGray", "CalGray", "G":
			return colorSpace{n: 1}, nil
		case "DeviceRGB", "CalRGB", "RGB":
			return colorSpace{n: 3}, nil
		case "DeviceCMYK", "CMYK":
			return colorSpace{n: 4}, nil
		}
		return colorSpace{}, fmt.Errorf("unsupported color space %s", v.Value())
	case types.Array:
		if len(v) == 0 {
			return colorSpace{}, fmt.Errorf("empty color space array")
		}
		name, _ := d.resolve(v[0]).(types.Name)
		switch name.Value() {
		case "CalGray":
			return colorSpace{n: 1}, nil
		case "CalRGB":
			return colorSpace{n: 3}, nil
		case "ICCBased":
			if len(v) < 2 {
				return colorSpace{}, fmt.Errorf("ICCBased without profile")
			}
			profile, ok := d.resolve(v[1]).(types.StreamDict)
			if !ok {
				return colorSpace{}, fmt.Errorf("ICCBased profile is not a stream")
			}
			switch n := d.intEntry(profile.Dict, "N"); n {
			case 1, 3, 4:
				return colorSpace{n: n}, nil
			default:
				return colorSpace{}, fmt.Errorf("ICCBased with %d components", n)
			}
		case "Indexed", "I":
			return d.indexed(v)
		}
		return colorSpace{}, fmt.Errorf("unsupported color space %s", name.Value())
	}
	return colorSpace{}, fmt.Errorf("malformed color space")
}

// indexed resolves [/Indexed base hival lookup].
func (d *Document) indexed(arr types.Array) (colorSpace, error) {
	if len(arr) != 4 {
		return colorSpace{}, fmt.Errorf("indexed color space with %d entries", len(arr))
	}
	base, err := d.colorSpace(arr[1])
	if err != nil {
		return colorSpace{}, fmt.Errorf("indexed base: %w", err)
	}
	if base.palette != nil {
		return colorSpace{}, fmt.Errorf("indexed base is indexed")
	}
	hival := d.intValue(arr[2])
	if hival < 0 || hival > 255 {
		return colorSpace{}, fmt.Errorf("indexed hival %d out of range", hival)
	}

	var lut []byte
	switch v := d.resolve(arr[3]).(type) {
	case types.HexLiteral:
		lut, err = v.Bytes()
	case types.StringLiteral:
		lut, err = types.Unescape(v.Value())
	case types.StreamDict:
		if len(v.FilterPipeline) > 0 {
			err = v.Decode()
			lut = v.Content
		} else {
			lut = v.Raw
		}
	default:
		return colorSpace{}, fmt.Errorf("indexed lookup of type %T", v)
	}
	if err != nil {
		return colorSpace{}, fmt.Errorf("indexed lookup: %w", err)
	}

	want := (hival + 1) * base.n
	if len(lut) < want {
		// short tables are padded with black, as viewers do
		lut = append(lut, make([]byte, want-len(lut))...)
	}
	return colorSpace{n: base.n, palette: lut[:want]}, nil
}

func (d *Document) intValue(o types.Object) int {
	switch v := d.resolve(o).(type) {
	case types.Integer:
		return v.Value()
	case types.Float:
		return int(v.Value())
	}
	return -1
}

// expandPalette maps indices to base samples. Out-of-range indices clamp to
// the last entry.
func expandPalette(idx []byte, cs colorSpace) []byte {
	entries := len(cs.palette) / cs.n
	pix := make([]byte, 0, len(idx)*cs.n)
	for _, i := range idx {
		e := int(i)
		if e >= entries {
			e = entries - 1
		}
		pix = append(pix, cs.palette[e*cs.n:(e+1)*cs.n]...)
	}
	return pix
}

// inverted reports a /Decode array of the form [1 0 1 0 ...].
func (d *Document) inverted(dict types.Dict, channels int) bool {
	arr, ok := d.resolve(dict["Decode"]).(types.Array)
	if !ok || len(arr) != 2*channels {
		return false
	}
	for i, o := range arr {
		want := 1 - i%2
		switch v := d.resolve(o).(type) {
		case types.Integer:
			if v.Value() != want {
				return false
			}
		case types.Float:
			if v.Value() != float64(want) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func invert(pix []byte) {
	for i := range pix {
		pix[i] = 0xff - pix[i]
	}
}

// unpack reads w*h pixels of n components at bpc bits each. Rows start on a
// byte boundary. With scale set, values are mapped onto 0-255; otherwise
// they are returned as-is (palette indices, bpc <= 8).
func unpack(data []byte, w, h, n, bpc int, scale bool) ([]byte, error) {
	row := (w*n*bpc + 7) / 8
	if len(data) < row*h {
		return nil, fmt.Errorf("%d-bit stream too short: %d < %d", bpc, len(data), row*h)
	}
	count := w * n
	pix := make([]byte, 0, count*h)

	switch bpc {
	case 8:
		for y := 0; y < h; y++ {
			pix = append(pix, data[y*row:y*row+count]...)
		}
		return pix, nil
	case 16:
		for y := 0; y < h; y++ {
			for i := 0; i < count; i++ {
				pix = append(pix, data[y*row+2*i]) // high byte
			}
		}
		return pix, nil
	}

	top := 1<<bpc - 1
	perByte := 8 / bpc
	for y := 0; y < h; y++ {
		line := data[y*row : (y+1)*row]
		for i := 0; i < count; i++ {
			shift := uint(8 - bpc*(i%perByte+1))
			v := int(line[i/perByte]>>shift) & top
			if scale {
				v = v * 255 / top
			}
			pix = append(pix, byte(v))
		}
	}
	return pix, nil
}
