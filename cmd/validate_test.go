package cmd

import (
	"strings"
	"testing"

	"github.com/AnyUserName/pdfslim/internal/container"
	"github.com/AnyUserName/pdfslim/internal/report"
)

func validReport() *report.Report {
	r := report.New("default")
	r.Add(report.Image{
		Index: 1, ID: 5, Status: report.StatusRecompressed,
		Original: report.OriginalInfo{Width: 2000, Height: 3000, Size: 9000},
		Result:   &report.ResultInfo{Format: "jpeg", Width: 800, Height: 1200, Size: 300, Hash: "0123456789abcdef"},
	})
	r.Add(report.Image{
		Index: 2, ID: 8, Status: report.StatusRecompressed,
		Original: report.OriginalInfo{Width: 2000, Height: 3000, Size: 9000},
		Result:   &report.ResultInfo{Format: "jpeg", Width: 800, Height: 1200, Size: 300, Hash: "0123456789abcdef", ReusedFrom: 5},
	})
	r.Add(report.Image{
		Index: 3, ID: 9, Status: report.StatusFailed,
		Original: report.OriginalInfo{Width: 300, Height: 300},
		Error:    "unsupported color space Indexed",
	})
	r.ComputeStats()
	return r
}

func TestValidateReportOK(t *testing.T) {
	imgs := []container.Image{
		{ID: 4, Width: 800, Height: 1200, Filter: "DCTDecode"},
		{ID: 7, Width: 300, Height: 300, Filter: "FlateDecode", ColorSpace: "Indexed"},
	}
	if errs := validateReport(validReport(), imgs); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidateReportMissingImage(t *testing.T) {
	errs := validateReport(validReport(), nil)
	if len(errs) != 2 {
		t.Fatalf("errors: got %v", errs)
	}
	if !strings.Contains(errs[0], "no 800x1200 DCTDecode image") {
		t.Errorf("message: got %q", errs[0])
	}
}

func TestValidateReportStats(t *testing.T) {
	r := validReport()
	r.Stats.Failed = 0
	r.Images[0].Result.Width = 2400
	imgs := []container.Image{{Width: 2400, Height: 1200, Filter: "DCTDecode"}, {Width: 800, Height: 1200, Filter: "DCTDecode"}}

	errs := validateReport(r, imgs)
	var grew, stats bool
	for _, e := range errs {
		grew = grew || strings.Contains(e, "grew")
		stats = stats || strings.Contains(e, "stats.failed")
	}
	if !grew || !stats {
		t.Errorf("errors: got %v", errs)
	}
}

func TestActionKind(t *testing.T) {
	tests := map[string]string{
		"resize 2000x3000 -> 1000x1500": "resize",
		"keep dims 800x600":             "keep dims",
		"quantize 128 colors":           "quantize",
		"quantize failed: boom":         "quantize failed",
		"format: JPEG (q=40)":           "format: JPEG (q=40)",
		"CMYK->RGB":                     "CMYK->RGB",
	}
	for in, want := range tests {
		if got := actionKind(in); got != want {
			t.Errorf("actionKind(%q): got %q, want %q", in, got, want)
		}
	}
}
