package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/AnyUserName/pdfslim/internal/container"
	"github.com/AnyUserName/pdfslim/internal/profile"
	"github.com/AnyUserName/pdfslim/internal/recompress"
	"github.com/AnyUserName/pdfslim/internal/report"
)

// Config holds all parameters for one document run.
type Config struct {
	Profile       profile.Profile
	Verbose       bool
	NoRegressSize bool   // keep the original stream when the new one is not smaller
	DebugDir      string // before/after PNG dumps, "" disables them

	// Progress receives one line per image. Nil discards.
	Progress io.Writer
	// Log receives verbose diagnostics. Nil means stderr.
	Log io.Writer
}

// Container is the document the pipeline reads images from and commits
// results to.
type Container interface {
	Images() []container.Image
	Load(img container.Image) (recompress.SourceImage, error)
	Commit(img container.Image, res *recompress.EncodedResult) error
}

// Pipeline walks every embedded image of a document once.
type Pipeline struct {
	cfg  Config
	proc *recompress.Processor
}

// New creates a configured pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Progress == nil {
		cfg.Progress = io.Discard
	}
	if cfg.Log == nil {
		cfg.Log = os.Stderr
	}
	return &Pipeline{
		cfg:  cfg,
		proc: recompress.New(cfg.Profile),
	}
}

// Run processes every image of doc and returns the per-image report.
// Per-image failures are recorded, never returned; the error result is
// reserved for problems that stop the whole run.
func (p *Pipeline) Run(doc Container) (*report.Report, error) {
	if p.cfg.DebugDir != "" {
		if err := os.MkdirAll(p.cfg.DebugDir, 0o755); err != nil {
			return nil, fmt.Errorf("create debug dir: %w", err)
		}
	}

	imgs := doc.Images()
	p.logf("found %d images (profile %s, %s)", len(imgs), p.cfg.Profile.Name, p.proc.Encoders())

	r := report.New(p.cfg.Profile.Name)
	run := &run{
		processed: make(map[int]bool),
		cache:     make(map[uint64]cached),
	}

	index := 0
	for _, img := range imgs {
		if run.processed[img.ID] {
			p.logf("image %d already processed, skipping", img.ID)
			continue
		}
		run.processed[img.ID] = true
		if img.MaskID != 0 {
			run.processed[img.MaskID] = true
		}

		index++
		rec := p.processOne(doc, img, index, run)
		r.Add(rec)
		fmt.Fprintf(p.cfg.Progress, "Processing image %d of %d (ID: %d): %s\n",
			index, len(imgs), img.ID, summary(rec))
	}

	r.ComputeStats()
	if n := r.Stats.Failed; n > 0 {
		p.logf("warning: %d of %d images failed", n, r.Stats.TotalImages)
	}
	return r, nil
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.cfg.Verbose {
		fmt.Fprintf(p.cfg.Log, "[pdfslim] "+format+"\n", args...)
	}
}
