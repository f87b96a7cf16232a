// Package container reads a PDF, exposes its embedded raster images as raw
// sample buffers and writes recompressed streams back in place.
package container

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Image is one image XObject found in the document.
type Image struct {
	ID               int // object number
	MaskID           int // object number of the /SMask, 0 if none
	Width            int
	Height           int
	ColorSpace       string
	Filter           string // space separated filter chain, "" if unfiltered
	BitsPerComponent int
	Size             int64 // encoded bytes of the image and its mask
}

// Document is an opened PDF.
type Document struct {
	ctx *model.Context

	// orphans are soft masks detached by Commit. They stay in the table
	// until the writer drops unreachable objects.
	orphans map[int]bool

	// Warnings collects non-fatal problems hit while saving.
	Warnings []string
}

var configOnce sync.Once

func config() *model.Configuration {
	configOnce.Do(api.DisableConfigDir)
	return model.NewDefaultConfiguration()
}

// Open reads the PDF at path.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a PDF from rs.
func Read(rs io.ReadSeeker) (*Document, error) {
	ctx, err := api.ReadContext(rs, config())
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	return &Document{ctx: ctx, orphans: make(map[int]bool)}, nil
}

// PageCount returns the number of pages, or 0 if the page tree is broken.
func (d *Document) PageCount() int {
	if err := d.ctx.EnsurePageCount(); err != nil {
		return 0
	}
	return d.ctx.PageCount
}

// Images lists every image XObject by ascending object number. Stencil masks
// and objects used as another image's /SMask are not listed.
func (d *Document) Images() []Image {
	masks := make(map[int]bool)
	var ids []int
	for id, entry := range d.ctx.Table {
		if entry == nil || entry.Free {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok || !isImage(sd.Dict) {
			continue
		}
		if ref, ok := sd.Dict["SMask"].(types.IndirectRef); ok {
			masks[ref.ObjectNumber.Value()] = true
		}
		if b, ok := d.resolve(sd.Dict["ImageMask"]).(types.Boolean); ok && b.Value() {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []Image
	for _, id := range ids {
		if masks[id] || d.orphans[id] {
			continue
		}
		sd := d.ctx.Table[id].Object.(types.StreamDict)
		img := Image{
			ID:               id,
			Width:            d.intEntry(sd.Dict, "Width"),
			Height:           d.intEntry(sd.Dict, "Height"),
			ColorSpace:       d.colorSpaceName(sd.Dict["ColorSpace"]),
			Filter:           filterChain(sd),
			BitsPerComponent: d.intEntry(sd.Dict, "BitsPerComponent"),
			Size:             int64(len(sd.Raw)),
		}
		if ref, ok := sd.Dict["SMask"].(types.IndirectRef); ok {
			img.MaskID = ref.ObjectNumber.Value()
			if msd, err := d.stream(img.MaskID); err == nil {
				img.Size += int64(len(msd.Raw))
			}
		}
		out = append(out, img)
	}
	return out
}

func isImage(dict types.Dict) bool {
	st, ok := dict["Subtype"].(types.Name)
	return ok && st.Value() == "Image"
}

// stream returns the stream dict stored under object number id.
func (d *Document) stream(id int) (types.StreamDict, error) {
	entry, ok := d.ctx.Table[id]
	if !ok || entry == nil || entry.Free {
		return types.StreamDict{}, fmt.Errorf("object %d not found", id)
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return types.StreamDict{}, fmt.Errorf("object %d is not a stream", id)
	}
	return sd, nil
}

func (d *Document) store(id int, sd types.StreamDict) {
	d.ctx.Table[id].Object = sd
}

func (d *Document) resolve(o types.Object) types.Object {
	if _, ok := o.(types.IndirectRef); !ok {
		return o
	}
	r, err := d.ctx.Dereference(o)
	if err != nil {
		return nil
	}
	return r
}

func (d *Document) intEntry(dict types.Dict, key string) int {
	switch v := d.resolve(dict[key]).(type) {
	case types.Integer:
		return v.Value()
	case types.Float:
		return int(v.Value())
	}
	return 0
}

func (d *Document) colorSpaceName(o types.Object) string {
	switch v := d.resolve(o).(type) {
	case types.Name:
		return v.Value()
	case types.Array:
		if len(v) > 0 {
			if n, ok := d.resolve(v[0]).(types.Name); ok {
				return n.Value()
			}
		}
	}
	return ""
}

func filterChain(sd types.StreamDict) string {
	names := make([]string, len(sd.FilterPipeline))
	for i, f := range sd.FilterPipeline {
		names[i] = f.Name
	}
	return strings.Join(names, " ")
}

// Save writes the document to path. A failed write leaves no file behind.
func (d *Document) Save(path string) error {
	return saveFile(path, d.Write)
}

func saveFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// Write deflates unfiltered streams, compacts the object table and
// serializes the document to w. Only objects reachable from the trailer
// are written.
func (d *Document) Write(w io.Writer) error {
	if err := d.deflateStreams(); err != nil {
		return err
	}
	if err := api.OptimizeContext(d.ctx); err != nil {
		d.Warnings = append(d.Warnings, fmt.Sprintf("optimize: %v", err))
	}
	if err := api.WriteContext(d.ctx, w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// deflateStreams compresses every stream that carries no filter, except XMP
// metadata which readers expect in the clear.
func (d *Document) deflateStreams() error {
	for id, entry := range d.ctx.Table {
		if entry == nil || entry.Free {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok || len(sd.FilterPipeline) > 0 || len(sd.Raw) == 0 {
			continue
		}
		if t, ok := sd.Dict["Type"].(types.Name); ok && t.Value() == "Metadata" {
			continue
		}
		if _, ok := sd.Dict["Filter"]; ok {
			continue
		}
		z, err := deflate(sd.Raw)
		if err != nil {
			return fmt.Errorf("deflate object %d: %w", id, err)
		}
		if len(z) >= len(sd.Raw) {
			continue
		}
		setStream(&sd, sd.Raw, z, types.PDFFilter{Name: "FlateDecode"})
		d.store(id, sd)
	}
	return nil
}

// setStream replaces the payload of sd. content is the decoded data, raw the
// bytes written to the file.
func setStream(sd *types.StreamDict, content, raw []byte, filter types.PDFFilter) {
	sd.Content = content
	sd.Raw = raw
	n := int64(len(raw))
	sd.StreamLength = &n
	sd.StreamLengthObjNr = nil
	sd.FilterPipeline = []types.PDFFilter{filter}
	sd.Dict["Filter"] = types.Name(filter.Name)
	sd.Dict["Length"] = types.Integer(len(raw))
	delete(sd.Dict, "DecodeParms")
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
