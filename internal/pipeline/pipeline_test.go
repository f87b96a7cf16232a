package pipeline

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AnyUserName/pdfslim/internal/container"
	"github.com/AnyUserName/pdfslim/internal/fixture"
	"github.com/AnyUserName/pdfslim/internal/profile"
	"github.com/AnyUserName/pdfslim/internal/recompress"
	"github.com/AnyUserName/pdfslim/internal/report"
)

// fakeDoc is an in-memory container.
type fakeDoc struct {
	images  []container.Image
	sources map[int]recompress.SourceImage
	loadErr map[int]error
	commits map[int]*recompress.EncodedResult
	loads   map[int]int
}

func newFakeDoc() *fakeDoc {
	return &fakeDoc{
		sources: make(map[int]recompress.SourceImage),
		loadErr: make(map[int]error),
		commits: make(map[int]*recompress.EncodedResult),
		loads:   make(map[int]int),
	}
}

func (d *fakeDoc) add(id, maskID int, src recompress.SourceImage) {
	d.images = append(d.images, container.Image{
		ID: id, MaskID: maskID, Width: src.Width, Height: src.Height,
		ColorSpace: "DeviceRGB", BitsPerComponent: 8, Size: int64(len(src.Pix) + len(src.Mask)),
	})
	d.sources[id] = src
}

func (d *fakeDoc) Images() []container.Image { return d.images }

func (d *fakeDoc) Load(img container.Image) (recompress.SourceImage, error) {
	d.loads[img.ID]++
	if err := d.loadErr[img.ID]; err != nil {
		return recompress.SourceImage{}, err
	}
	return d.sources[img.ID], nil
}

func (d *fakeDoc) Commit(img container.Image, res *recompress.EncodedResult) error {
	d.commits[img.ID] = res
	return nil
}

func rgb(w, h int) recompress.SourceImage {
	return recompress.SourceImage{Width: w, Height: h, Channels: 3, Pix: fixture.RGB(w, h)}
}

func newPipeline(progress *bytes.Buffer) *Pipeline {
	cfg := Config{Profile: profile.Default()}
	if progress != nil {
		cfg.Progress = progress
	}
	return New(cfg)
}

func TestRunMixedOutcomes(t *testing.T) {
	doc := newFakeDoc()
	doc.add(5, 0, rgb(2000, 3000))
	doc.add(9, 0, rgb(50, 50))
	doc.add(12, 0, rgb(300, 300))
	doc.loadErr[12] = errors.New("unsupported color space Indexed")
	doc.add(15, 0, recompress.SourceImage{Width: 200, Height: 200, Channels: 3, Pix: []byte{1, 2, 3}})

	var progress bytes.Buffer
	r, err := newPipeline(&progress).Run(doc)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(r.Images) != 4 {
		t.Fatalf("records: got %d, want 4", len(r.Images))
	}
	want := []string{report.StatusRecompressed, report.StatusSkipped, report.StatusFailed, report.StatusFailed}
	for i, w := range want {
		if r.Images[i].Status != w {
			t.Errorf("image %d: got %s, want %s", r.Images[i].ID, r.Images[i].Status, w)
		}
	}
	if len(doc.commits) != 1 || doc.commits[5] == nil {
		t.Errorf("commits: got %v", doc.commits)
	}
	if r.Stats.Recompressed != 1 || r.Stats.Skipped != 1 || r.Stats.Failed != 2 {
		t.Errorf("stats: got %+v", r.Stats)
	}

	res := r.Images[0].Result
	if res == nil || res.Format != recompress.FormatJPEG || res.Width != 800 || res.Height != 1200 {
		t.Errorf("result: got %+v", res)
	}

	lines := strings.Split(strings.TrimSpace(progress.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("progress lines: got %d", len(lines))
	}
	if want := "Processing image 1 of 4 (ID: 5): resize 2000x3000 -> 1000x1500, resize 1000x1500 -> 800x1200, format: JPEG (q=40)"; lines[0] != want {
		t.Errorf("line 1:\n got %q\nwant %q", lines[0], want)
	}
	if !strings.HasPrefix(lines[2], "Processing image 3 of 4 (ID: 12): failed: unsupported color space") {
		t.Errorf("line 3: got %q", lines[2])
	}
}

func TestRunMarksMasksProcessed(t *testing.T) {
	doc := newFakeDoc()
	src := rgb(400, 400)
	src.Mask = fixture.Mask(400, 400)
	doc.add(5, 6, src)
	// the mask object also shows up as a standalone image
	doc.add(6, 0, recompress.SourceImage{Width: 400, Height: 400, Channels: 1, Pix: fixture.Mask(400, 400)})
	// and the same image object twice
	doc.images = append(doc.images, doc.images[0])

	r, err := newPipeline(nil).Run(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Images) != 1 {
		t.Fatalf("records: got %d, want 1", len(r.Images))
	}
	if doc.loads[5] != 1 || doc.loads[6] != 0 {
		t.Errorf("loads: got %v", doc.loads)
	}
	rec := r.Images[0]
	if rec.Result == nil || rec.Result.Format != recompress.FormatPNG || !rec.Result.MaskDropped {
		t.Errorf("result: got %+v", rec.Result)
	}
}

func TestRunReusesIdenticalContent(t *testing.T) {
	doc := newFakeDoc()
	doc.add(5, 0, rgb(640, 480))
	doc.add(8, 0, rgb(640, 480))

	r, err := newPipeline(nil).Run(doc)
	if err != nil {
		t.Fatal(err)
	}
	if doc.commits[5] == nil || doc.commits[5] != doc.commits[8] {
		t.Error("second image did not reuse the first result")
	}
	if got := r.Images[1].Result.ReusedFrom; got != 5 {
		t.Errorf("reused from: got %d, want 5", got)
	}
	if r.Images[0].Result.Hash != r.Images[1].Result.Hash {
		t.Error("hashes differ for reused result")
	}
}

func TestRunIdempotent(t *testing.T) {
	// A second pass over the output only finds images at or below the caps;
	// small ones are skipped with no actions.
	doc := newFakeDoc()
	doc.add(5, 0, rgb(99, 500))
	r, err := newPipeline(nil).Run(doc)
	if err != nil {
		t.Fatal(err)
	}
	if r.Images[0].Status != report.StatusSkipped || len(r.Images[0].Actions) != 0 {
		t.Errorf("got %+v", r.Images[0])
	}
	if len(doc.commits) != 0 {
		t.Error("skipped image was committed")
	}
}

func TestRunNoRegressSize(t *testing.T) {
	doc := newFakeDoc()
	doc.add(5, 0, rgb(300, 300))
	doc.images[0].Size = 10 // pretend the original stream is tiny

	r, err := New(Config{Profile: profile.Default(), NoRegressSize: true}).Run(doc)
	if err != nil {
		t.Fatal(err)
	}
	if r.Images[0].Status != report.StatusKept {
		t.Errorf("status: got %s, want kept", r.Images[0].Status)
	}
	if len(doc.commits) != 0 {
		t.Error("larger result was committed")
	}
	if r.Stats.Kept != 1 {
		t.Errorf("kept: got %d", r.Stats.Kept)
	}
}

func TestRunDebugDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug_images")
	doc := newFakeDoc()
	doc.add(5, 0, rgb(200, 150))
	doc.add(7, 0, rgb(20, 20))

	if _, err := New(Config{Profile: profile.Default(), DebugDir: dir}).Run(doc); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Image1-before.png", "Image1-after.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "Image2-before.png")); err == nil {
		t.Error("skipped image was dumped")
	}
}

func TestRunOnPDF(t *testing.T) {
	b := fixture.New()
	b.Add(fixture.Image{Width: 1800, Height: 1200, ColorSpace: "DeviceCMYK", Pix: fixture.CMYK(1800, 1200), Filter: "FlateDecode"})
	b.Add(fixture.Image{Width: 300, Height: 200, ColorSpace: "DeviceRGB", Pix: fixture.RGB(300, 200), Mask: fixture.Mask(300, 200)})
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	doc, err := container.Read(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	r, err := newPipeline(nil).Run(doc)
	if err != nil {
		t.Fatal(err)
	}
	if r.Stats.Recompressed != 2 {
		t.Fatalf("recompressed: got %d (%+v)", r.Stats.Recompressed, r.Images)
	}
	if a := r.Images[0].Actions; len(a) == 0 || a[0] != "CMYK->RGB" {
		t.Errorf("actions: got %v", a)
	}

	var out bytes.Buffer
	if err := doc.Write(&out); err != nil {
		t.Fatal(err)
	}
	if out.Len() >= len(data) {
		t.Errorf("output not smaller: %d >= %d", out.Len(), len(data))
	}
}
