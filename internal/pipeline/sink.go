package pipeline

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// DirSink writes pipeline stages as Image<N>-<stage>.png into Dir.
type DirSink struct {
	Dir   string
	Index int

	err error
}

// Put saves img. The first error is kept and later puts are ignored.
func (s *DirSink) Put(stage string, img image.Image) {
	if s.err != nil {
		return
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("Image%d-%s.png", s.Index, stage))
	if err := imaging.Save(img, path); err != nil {
		s.err = fmt.Errorf("save %s: %w", path, err)
	}
}

// Err returns the first write error.
func (s *DirSink) Err() error { return s.err }
