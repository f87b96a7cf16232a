//go:build ignore

// gen_fixtures creates sample PDFs for the E2E smoke test.
// Usage: go run gen_fixtures.go <output_dir>
package main

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/AnyUserName/pdfslim/internal/fixture"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "[gen_fixtures] %v\n", err)
		os.Exit(1)
	}

	docs := map[string]*fixture.Builder{
		// Large opaque photo, JPEG encoded.
		"photo.pdf": build(fixture.Image{Width: 2400, Height: 1600, ColorSpace: "DeviceRGB", Pix: fixture.RGB(2400, 1600), Filter: "DCTDecode"}),
		// Print-ready CMYK scan with a soft mask.
		"cmyk-masked.pdf": build(fixture.Image{
			Width: 3000, Height: 3000, ColorSpace: "DeviceCMYK", Pix: fixture.CMYK(3000, 3000), Filter: "FlateDecode",
			Mask: fixture.Mask(3000, 3000),
		}),
		// Mixed: small icon, gray scan, flat logo used twice.
		"mixed.pdf": build(
			fixture.Image{Width: 64, Height: 64, ColorSpace: "DeviceRGB", Pix: fixture.RGB(64, 64)},
			fixture.Image{Width: 1700, Height: 2200, ColorSpace: "DeviceGray", Pix: fixture.Gray(1700, 2200), Filter: "FlateDecode"},
			fixture.Image{Width: 600, Height: 200, ColorSpace: "DeviceRGB", Pix: fixture.Solid(600, 200, color.RGBA{R: 20, G: 90, B: 200, A: 255})},
			fixture.Image{Width: 600, Height: 200, ColorSpace: "DeviceRGB", Pix: fixture.Solid(600, 200, color.RGBA{R: 20, G: 90, B: 200, A: 255})},
		),
	}

	for name, b := range docs {
		if err := b.Write(filepath.Join(dir, name)); err != nil {
			fmt.Fprintf(os.Stderr, "[gen_fixtures] %s: %v\n", name, err)
			os.Exit(1)
		}
	}
	fmt.Fprintf(os.Stderr, "[gen_fixtures] created %d fixtures in %s\n", len(docs), dir)
}

func build(imgs ...fixture.Image) *fixture.Builder {
	b := fixture.New()
	for _, img := range imgs {
		b.Add(img)
	}
	return b
}
