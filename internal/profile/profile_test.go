package profile

import "testing"

func TestDefaultConstants(t *testing.T) {
	p := Default()
	if p.MinDim != 100 || p.MaxDim != 1500 || p.AlphaMaxDim != 800 || p.OpaqueMaxDim != 1200 {
		t.Errorf("dims: got %d/%d/%d/%d", p.MinDim, p.MaxDim, p.AlphaMaxDim, p.OpaqueMaxDim)
	}
	if p.Quality != 40 {
		t.Errorf("quality: got %d, want 40", p.Quality)
	}
	if p.PaletteSize != 128 {
		t.Errorf("palette: got %d, want 128", p.PaletteSize)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("default profile invalid: %v", err)
	}
}

func TestGetUnknownFallsBack(t *testing.T) {
	p := Get("does-not-exist")
	if p.Name != "does-not-exist" {
		t.Errorf("name: got %q", p.Name)
	}
	if p.Quality != Default().Quality {
		t.Errorf("quality: got %d, want default %d", p.Quality, Default().Quality)
	}
}

func TestBuiltinsValid(t *testing.T) {
	for _, name := range Names() {
		if err := Get(name).Validate(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	p := Default()
	p.Quality = 0
	if err := p.Validate(); err == nil {
		t.Error("quality 0 accepted")
	}

	p = Default()
	p.PaletteSize = 300
	if err := p.Validate(); err == nil {
		t.Error("palette 300 accepted")
	}

	p = Default()
	p.AlphaMaxDim = 50
	if err := p.Validate(); err == nil {
		t.Error("alpha cap below min dim accepted")
	}
}
