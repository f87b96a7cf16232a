// Package quantize reduces an image to a small palette with median cut.
//
// Colors are bucketed at 5 bits per channel (including alpha) before the cut,
// so the histogram never exceeds 2^20 entries regardless of image size.
// Fully transparent pixels collapse into a single bucket.
package quantize

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
)

// ErrEmpty is returned for images without pixels.
var ErrEmpty = errors.New("quantize: empty image")

type bin struct {
	key   uint32
	count uint64
	sum   [4]uint64
}

func (b *bin) channel(c int) uint32 {
	return (b.key >> (15 - 5*uint(c))) & 0x1f
}

type box struct {
	bins  []bin
	count uint64
}

// Image remaps img onto a palette of at most n colors. Palette entries are
// color.NRGBA, so per-entry alpha survives PNG encoding.
func Image(img image.Image, n int) (*image.Paletted, error) {
	if n < 2 || n > 256 {
		return nil, fmt.Errorf("quantize: palette size %d out of range 2-256", n)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmpty
	}

	src := imaging.Clone(img)
	bins := histogram(src)
	pal := palette(bins, n)
	if len(pal) == 0 {
		return nil, ErrEmpty
	}

	dst := image.NewPaletted(src.Bounds(), pal)
	cache := make(map[uint32]uint8, len(bins))
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	for y := 0; y < h; y++ {
		si := y * src.Stride
		di := y * dst.Stride
		for x := 0; x < w; x++ {
			r, g, bl, a := src.Pix[si], src.Pix[si+1], src.Pix[si+2], src.Pix[si+3]
			if a == 0 {
				r, g, bl = 0, 0, 0
			}
			k := bucket(r, g, bl, a)
			idx, ok := cache[k]
			if !ok {
				idx = nearest(pal, r, g, bl, a)
				cache[k] = idx
			}
			dst.Pix[di+x] = idx
			si += 4
		}
	}
	return dst, nil
}

func bucket(r, g, b, a uint8) uint32 {
	if a == 0 {
		return 0
	}
	return uint32(r>>3)<<15 | uint32(g>>3)<<10 | uint32(b>>3)<<5 | uint32(a>>3)
}

func histogram(img *image.NRGBA) []bin {
	index := make(map[uint32]int)
	var bins []bin
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for y := 0; y < h; y++ {
		i := y * img.Stride
		for x := 0; x < w; x++ {
			r, g, b, a := img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]
			if a == 0 {
				r, g, b = 0, 0, 0
			}
			k := bucket(r, g, b, a)
			j, ok := index[k]
			if !ok {
				j = len(bins)
				index[k] = j
				bins = append(bins, bin{key: k})
			}
			bn := &bins[j]
			bn.count++
			bn.sum[0] += uint64(r)
			bn.sum[1] += uint64(g)
			bn.sum[2] += uint64(b)
			bn.sum[3] += uint64(a)
			i += 4
		}
	}
	return bins
}

func palette(bins []bin, n int) color.Palette {
	if len(bins) == 0 {
		return nil
	}
	var total uint64
	for _, b := range bins {
		total += b.count
	}
	boxes := []box{{bins: bins, count: total}}

	for len(boxes) < n {
		pick, ch := -1, 0
		var best uint64
		for i := range boxes {
			if len(boxes[i].bins) < 2 {
				continue
			}
			c, r := widest(boxes[i].bins)
			score := boxes[i].count * uint64(r+1)
			if r > 0 && score > best {
				best, pick, ch = score, i, c
			}
		}
		if pick < 0 {
			break
		}
		lo, hi := split(boxes[pick], ch)
		boxes[pick] = lo
		boxes = append(boxes, hi)
	}

	pal := make(color.Palette, 0, len(boxes))
	for _, bx := range boxes {
		var sum [4]uint64
		for _, b := range bx.bins {
			for c := 0; c < 4; c++ {
				sum[c] += b.sum[c]
			}
		}
		pal = append(pal, color.NRGBA{
			R: uint8(sum[0] / bx.count),
			G: uint8(sum[1] / bx.count),
			B: uint8(sum[2] / bx.count),
			A: uint8(sum[3] / bx.count),
		})
	}
	return pal
}

// widest returns the channel with the largest bucket range and that range.
func widest(bins []bin) (int, uint32) {
	var ch int
	var best uint32
	for c := 0; c < 4; c++ {
		lo, hi := uint32(31), uint32(0)
		for i := range bins {
			v := bins[i].channel(c)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if r := hi - lo; c == 0 || r > best {
			best, ch = r, c
		}
	}
	return ch, best
}

// split cuts a box at the population median along channel ch.
func split(bx box, ch int) (box, box) {
	bins := bx.bins
	sort.Slice(bins, func(i, j int) bool {
		return bins[i].channel(ch) < bins[j].channel(ch)
	})
	half := bx.count / 2
	var acc uint64
	cut := 1
	for i := range bins {
		acc += bins[i].count
		if acc >= half {
			cut = i + 1
			break
		}
	}
	if cut >= len(bins) {
		cut = len(bins) - 1
	}
	lo := box{bins: bins[:cut]}
	hi := box{bins: bins[cut:]}
	for _, b := range lo.bins {
		lo.count += b.count
	}
	hi.count = bx.count - lo.count
	return lo, hi
}

func nearest(pal color.Palette, r, g, b, a uint8) uint8 {
	best, bestDist := 0, -1
	for i, c := range pal {
		p := c.(color.NRGBA)
		dr := int(p.R) - int(r)
		dg := int(p.G) - int(g)
		db := int(p.B) - int(b)
		da := int(p.A) - int(a)
		d := dr*dr + dg*dg + db*db + 2*da*da
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return uint8(best)
}
