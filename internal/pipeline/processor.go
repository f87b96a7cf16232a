package pipeline

import (
	"fmt"
	"strings"

	"github.com/AnyUserName/pdfslim/internal/container"
	"github.com/AnyUserName/pdfslim/internal/hasher"
	"github.com/AnyUserName/pdfslim/internal/recompress"
	"github.com/AnyUserName/pdfslim/internal/report"
)

// run is the state of one Run call.
type run struct {
	processed map[int]bool
	cache     map[uint64]cached
}

// cached is a finished outcome keyed by source content.
type cached struct {
	id      int
	outcome recompress.Outcome
}

// processOne loads, transforms and commits a single image.
func (p *Pipeline) processOne(doc Container, img container.Image, index int, st *run) report.Image {
	rec := report.Image{
		Index:  index,
		ID:     img.ID,
		MaskID: img.MaskID,
		Original: report.OriginalInfo{
			Width:        img.Width,
			Height:       img.Height,
			ColorSpace:   img.ColorSpace,
			SourceFilter: img.Filter,
			Size:         img.Size,
			HasMask:      img.MaskID != 0,
		},
	}

	src, err := doc.Load(img)
	if err != nil {
		p.logf("error: %v", err)
		rec.Status = report.StatusFailed
		rec.Error = err.Error()
		return rec
	}

	key := hasher.ImageKey(hasher.Layout{
		Width:      src.Width,
		Height:     src.Height,
		Channels:   src.Channels,
		HasAlpha:   src.HasAlpha,
		MaskWidth:  src.MaskWidth,
		MaskHeight: src.MaskHeight,
	}, src.Pix, src.Mask)
	c, reused := st.cache[key]
	if reused {
		p.logf("image %d has the same content as image %d", img.ID, c.id)
	} else {
		var sink recompress.Sink
		if p.cfg.DebugDir != "" {
			sink = &DirSink{Dir: p.cfg.DebugDir, Index: index}
		}
		c = cached{id: img.ID, outcome: p.proc.Process(src, sink)}
		st.cache[key] = c
		if ds, ok := sink.(*DirSink); ok && ds.Err() != nil {
			p.logf("warn: debug dump for image %d: %v", img.ID, ds.Err())
		}
	}

	out := c.outcome
	switch out.Status {
	case recompress.Skipped:
		rec.Status = report.StatusSkipped
		return rec
	case recompress.Failed:
		p.logf("error: image %d: %v", img.ID, out.Err)
		rec.Status = report.StatusFailed
		rec.Error = out.Err.Error()
		return rec
	}

	res := out.Result
	rec.Actions = append([]string(nil), res.Actions...)
	if p.cfg.NoRegressSize && int64(len(res.Bytes)) >= img.Size {
		p.logf("keep: image %d encoded %d >= original %d bytes", img.ID, len(res.Bytes), img.Size)
		rec.Status = report.StatusKept
		rec.Actions = append(rec.Actions, fmt.Sprintf("kept original (%d >= %d bytes)", len(res.Bytes), img.Size))
		return rec
	}

	if err := doc.Commit(img, res); err != nil {
		p.logf("error: %v", err)
		rec.Status = report.StatusFailed
		rec.Error = err.Error()
		return rec
	}

	rec.Status = report.StatusRecompressed
	rec.Result = &report.ResultInfo{
		Format:      res.Format,
		Width:       res.Width,
		Height:      res.Height,
		Size:        int64(len(res.Bytes)),
		Hash:        hasher.ContentHash(res.Bytes, 16),
		MaskDropped: img.MaskID != 0 && !res.MaskStillNeeded,
	}
	if reused {
		rec.Result.ReusedFrom = c.id
	}
	return rec
}

// summary renders the progress text for one record.
func summary(rec report.Image) string {
	switch rec.Status {
	case report.StatusSkipped:
		return fmt.Sprintf("skipped (%dx%d)", rec.Original.Width, rec.Original.Height)
	case report.StatusFailed:
		return "failed: " + rec.Error
	}
	s := strings.Join(rec.Actions, ", ")
	if rec.Result != nil && rec.Result.ReusedFrom != 0 {
		s += fmt.Sprintf(" (same as ID %d)", rec.Result.ReusedFrom)
	}
	return s
}
