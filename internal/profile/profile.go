package profile

import "fmt"

// Profile defines the recompression thresholds applied to every embedded image.
type Profile struct {
	Name         string
	MinDim       int  // images with a side below this are left alone
	MaxDim       int  // primary downsample cap (longer side)
	AlphaMaxDim  int  // cap for images that keep transparency
	OpaqueMaxDim int  // cap for images re-encoded as JPEG
	Quality      int  // JPEG quality 1-100
	PaletteSize  int  // max colors for transparent images, 2-256
	Optimize     bool // optimized Huffman coding for JPEG output
}

// DefaultName is the profile used when none is requested.
const DefaultName = "default"

// Built-in profiles.
var profiles = map[string]Profile{
	"default": {
		Name:         "default",
		MinDim:       100,
		MaxDim:       1500,
		AlphaMaxDim:  800,
		OpaqueMaxDim: 1200,
		Quality:      40,
		PaletteSize:  128,
		Optimize:     true,
	},
	"ebook": {
		Name:         "ebook",
		MinDim:       100,
		MaxDim:       2000,
		AlphaMaxDim:  1200,
		OpaqueMaxDim: 1600,
		Quality:      60,
		PaletteSize:  256,
		Optimize:     true,
	},
	"minimal": {
		Name:         "minimal",
		MinDim:       100,
		MaxDim:       1000,
		AlphaMaxDim:  600,
		OpaqueMaxDim: 800,
		Quality:      30,
		PaletteSize:  64,
		Optimize:     true,
	},
}

// Get returns a profile by name. Falls back to default if unknown.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	p := profiles[DefaultName]
	p.Name = name // preserve requested name
	return p
}

// Default returns the built-in default profile.
func Default() Profile {
	return profiles[DefaultName]
}

// Names lists the built-in profile names in a stable order.
func Names() []string {
	return []string{"default", "ebook", "minimal"}
}

// Validate checks that all thresholds are usable.
func (p Profile) Validate() error {
	if p.MinDim < 1 {
		return fmt.Errorf("profile %q: min dim must be positive, got %d", p.Name, p.MinDim)
	}
	for _, d := range []struct {
		name string
		v    int
	}{
		{"max dim", p.MaxDim},
		{"alpha max dim", p.AlphaMaxDim},
		{"opaque max dim", p.OpaqueMaxDim},
	} {
		if d.v < p.MinDim {
			return fmt.Errorf("profile %q: %s %d is below min dim %d", p.Name, d.name, d.v, p.MinDim)
		}
	}
	if p.Quality < 1 || p.Quality > 100 {
		return fmt.Errorf("profile %q: quality must be 1-100, got %d", p.Name, p.Quality)
	}
	if p.PaletteSize < 2 || p.PaletteSize > 256 {
		return fmt.Errorf("profile %q: palette size must be 2-256, got %d", p.Name, p.PaletteSize)
	}
	return nil
}
