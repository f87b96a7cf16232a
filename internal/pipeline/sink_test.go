package pipeline

import (
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestDirSinkKeepsFirstError(t *testing.T) {
	s := &DirSink{Dir: filepath.Join(t.TempDir(), "missing"), Index: 3}
	s.Put("before", image.NewGray(image.Rect(0, 0, 4, 4)))
	if s.Err() == nil {
		t.Fatal("write into missing dir succeeded")
	}
	first := s.Err()
	s.Put("after", image.NewGray(image.Rect(0, 0, 4, 4)))
	if s.Err() != first {
		t.Error("error replaced")
	}
}

func TestDirSinkNames(t *testing.T) {
	dir := t.TempDir()
	s := &DirSink{Dir: dir, Index: 12}
	s.Put("after", image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	if s.Err() != nil {
		t.Fatal(s.Err())
	}
	if _, err := os.Stat(filepath.Join(dir, "Image12-after.png")); err != nil {
		t.Error(err)
	}
}
