package quantize

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func noisy(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x * y) % 256),
				A: uint8((x + y) * 255 / (w + h)),
			})
		}
	}
	return img
}

func TestImagePaletteSize(t *testing.T) {
	out, err := Image(noisy(200, 150), 128)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Palette) > 128 {
		t.Errorf("palette: got %d colors, want <= 128", len(out.Palette))
	}
	if b := out.Bounds(); b.Dx() != 200 || b.Dy() != 150 {
		t.Errorf("dims: got %dx%d", b.Dx(), b.Dy())
	}
}

func TestImageKeepsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			a := uint8(255)
			if x < 10 {
				a = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 40, B: 10, A: a})
		}
	}

	out, err := Image(img, 16)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := out.At(0, 0).RGBA(); a != 0 {
		t.Errorf("transparent pixel alpha: got %d, want 0", a)
	}
	if _, _, _, a := out.At(19, 19).RGBA(); a != 0xffff {
		t.Errorf("opaque pixel alpha: got %d, want 65535", a)
	}
}

func TestImageFewColorsExact(t *testing.T) {
	colors := []color.NRGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
	}
	img := image.NewNRGBA(image.Rect(0, 0, 30, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 30; x++ {
			img.SetNRGBA(x, y, colors[x/10])
		}
	}

	out, err := Image(img, 128)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Palette) != 3 {
		t.Errorf("palette: got %d colors, want 3", len(out.Palette))
	}
	for i, want := range colors {
		got := color.NRGBAModel.Convert(out.At(i*10+5, 5)).(color.NRGBA)
		if got != want {
			t.Errorf("color %d: got %v, want %v", i, got, want)
		}
	}
}

func TestImageErrors(t *testing.T) {
	if _, err := Image(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 128); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty image: got %v, want ErrEmpty", err)
	}
	if _, err := Image(noisy(4, 4), 1); err == nil {
		t.Error("palette size 1 accepted")
	}
	if _, err := Image(noisy(4, 4), 257); err == nil {
		t.Error("palette size 257 accepted")
	}
}
