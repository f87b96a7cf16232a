package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AnyUserName/pdfslim/internal/container"
	"github.com/AnyUserName/pdfslim/internal/report"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <report.json>",
	Short: "Re-open the output named in a report and check every recompressed image",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	reportPath := args[0]
	r, err := report.ReadJSON(reportPath)
	if err != nil {
		return err
	}

	output := r.Output
	if output == "" {
		return fmt.Errorf("report has no output path")
	}
	if _, err := os.Stat(output); err != nil && !filepath.IsAbs(output) {
		// relative to the report instead of the working directory
		output = filepath.Join(filepath.Dir(reportPath), output)
	}
	doc, err := container.Open(output)
	if err != nil {
		return err
	}

	errs := validateReport(r, doc.Images())
	if len(errs) == 0 {
		fmt.Println("  ✓ Report is valid")
		fmt.Printf("  ✓ %d images, %d recompressed, all present in %s\n",
			r.Stats.TotalImages, r.Stats.Recompressed, output)
		return nil
	}

	fmt.Printf("  ✗ Report has %d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Printf("    • %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

// validateReport checks the report against the images found in the output.
// Object numbers may change when the writer compacts the file, so
// recompressed records are matched by dimensions and encoding.
func validateReport(r *report.Report, imgs []container.Image) []string {
	var errs []string

	if r.Version != report.SupportedReportVersion {
		errs = append(errs, fmt.Sprintf("unsupported report version: %d", r.Version))
	}

	type shape struct {
		w, h   int
		filter string
	}
	available := map[shape]int{}
	for _, img := range imgs {
		available[shape{img.Width, img.Height, img.Filter}]++
	}

	counts := map[string]int{}
	for i, rec := range r.Images {
		counts[rec.Status]++
		if rec.Original.Width <= 0 || rec.Original.Height <= 0 {
			errs = append(errs, fmt.Sprintf("image[%d] (ID %d): invalid original dimensions %dx%d",
				i, rec.ID, rec.Original.Width, rec.Original.Height))
		}
		switch rec.Status {
		case report.StatusRecompressed:
			res := rec.Result
			if res == nil {
				errs = append(errs, fmt.Sprintf("image[%d] (ID %d): recompressed without result", i, rec.ID))
				continue
			}
			if res.Hash == "" {
				errs = append(errs, fmt.Sprintf("image[%d] (ID %d): missing hash", i, rec.ID))
			}
			if res.Width > rec.Original.Width || res.Height > rec.Original.Height {
				errs = append(errs, fmt.Sprintf("image[%d] (ID %d): grew from %dx%d to %dx%d",
					i, rec.ID, rec.Original.Width, rec.Original.Height, res.Width, res.Height))
			}
			filter := "DCTDecode"
			if res.Format == "png" {
				filter = "FlateDecode"
			}
			k := shape{res.Width, res.Height, filter}
			if available[k] == 0 {
				errs = append(errs, fmt.Sprintf("image[%d] (ID %d): no %dx%d %s image in output",
					i, rec.ID, res.Width, res.Height, filter))
				continue
			}
			if res.ReusedFrom == 0 {
				available[k]--
			}
		case report.StatusSkipped, report.StatusKept:
			if rec.Result != nil {
				errs = append(errs, fmt.Sprintf("image[%d] (ID %d): %s with result", i, rec.ID, rec.Status))
			}
		case report.StatusFailed:
			if rec.Error == "" {
				errs = append(errs, fmt.Sprintf("image[%d] (ID %d): failed without error", i, rec.ID))
			}
		default:
			errs = append(errs, fmt.Sprintf("image[%d] (ID %d): unknown status %q", i, rec.ID, rec.Status))
		}
	}

	s := r.Stats
	if s.TotalImages != len(r.Images) {
		errs = append(errs, fmt.Sprintf("stats.total_images mismatch: %d != %d", s.TotalImages, len(r.Images)))
	}
	if s.Recompressed != counts[report.StatusRecompressed] {
		errs = append(errs, fmt.Sprintf("stats.recompressed mismatch: %d != %d", s.Recompressed, counts[report.StatusRecompressed]))
	}
	if s.Failed != counts[report.StatusFailed] {
		errs = append(errs, fmt.Sprintf("stats.failed mismatch: %d != %d", s.Failed, counts[report.StatusFailed]))
	}
	return errs
}
