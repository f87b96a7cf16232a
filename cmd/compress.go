package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AnyUserName/pdfslim/internal/container"
	"github.com/AnyUserName/pdfslim/internal/hasher"
	"github.com/AnyUserName/pdfslim/internal/pipeline"
	"github.com/AnyUserName/pdfslim/internal/profile"
	"github.com/AnyUserName/pdfslim/internal/report"
	"github.com/spf13/cobra"
)

var (
	compressDebug     bool
	compressDebugDir  string
	compressProfile   string
	compressQuality   int
	compressMaxDim    int
	compressReport    string
	compressNoRegress bool
)

var compressCmd = &cobra.Command{
	Use:   "compress <input.pdf> <output.pdf>",
	Short: "Recompress every embedded image and write a smaller PDF",
	Long: `Walks all image objects of the input document once, downsamples and
re-encodes each one, then deflates remaining unfiltered streams, drops
unreachable objects and writes the output.

Images that cannot be decoded are left as they are; the run still succeeds.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompress,
}

func init() {
	f := compressCmd.Flags()
	f.BoolVarP(&compressDebug, "debug", "d", false, "dump before/after PNGs of every image")
	f.StringVar(&compressDebugDir, "debug-dir", "debug_images", "directory for --debug dumps")
	f.StringVarP(&compressProfile, "profile", "p", profile.DefaultName, "processing profile (default, ebook, minimal)")
	f.IntVarP(&compressQuality, "quality", "q", 0, "JPEG quality 1-100 (0 = profile default)")
	f.IntVar(&compressMaxDim, "max-dim", 0, "primary downsample cap in pixels (0 = profile default)")
	f.StringVar(&compressReport, "report", "", "write a JSON run report to this path")
	f.BoolVar(&compressNoRegress, "no-regress-size", false, "keep original streams when the re-encoded one is not smaller")
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
	input, output := args[0], args[1]
	start := time.Now()

	prof := profile.Get(compressProfile)
	if compressQuality > 0 {
		prof.Quality = compressQuality
	}
	if compressMaxDim > 0 {
		prof.MaxDim = compressMaxDim
	}
	if err := prof.Validate(); err != nil {
		return err
	}

	logVerbose("input:   %s", input)
	logVerbose("output:  %s", output)
	logVerbose("profile: %s (max=%d alpha=%d opaque=%d q=%d palette=%d)",
		prof.Name, prof.MaxDim, prof.AlphaMaxDim, prof.OpaqueMaxDim, prof.Quality, prof.PaletteSize)

	inputInfo, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	doc, err := container.Open(input)
	if err != nil {
		return err
	}

	cfg := pipeline.Config{
		Profile:       prof,
		Verbose:       verbose,
		NoRegressSize: compressNoRegress,
		Progress:      cmd.OutOrStdout(),
		Log:           os.Stderr,
	}
	if compressDebug {
		cfg.DebugDir = compressDebugDir
	}
	r, err := pipeline.New(cfg).Run(doc)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	if err := doc.Save(output); err != nil {
		return err
	}
	for _, w := range doc.Warnings {
		fmt.Fprintf(os.Stderr, "[pdfslim] warning: %s\n", w)
	}

	outputInfo, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}

	r.Input, r.Output = input, output
	r.Stats.InputFileBytes = inputInfo.Size()
	r.Stats.OutputFileBytes = outputInfo.Size()
	if h, err := hashFile(input); err == nil {
		r.InputHash = h
	} else {
		logVerbose("warn: hash input: %v", err)
	}
	r.ComputeStats()

	if compressReport != "" {
		if err := report.WriteJSON(r, compressReport); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logVerbose("report:  %s", compressReport)
	}

	printCompressSummary(r, time.Since(start))
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return hasher.ContentHashReader(f, 0)
}

func printCompressSummary(r *report.Report, elapsed time.Duration) {
	s := r.Stats
	fmt.Println()
	fmt.Printf("Original size: %d bytes (%s)\n", s.InputFileBytes, formatBytes(s.InputFileBytes))
	fmt.Printf("New size:      %d bytes (%s)\n", s.OutputFileBytes, formatBytes(s.OutputFileBytes))
	if s.InputFileBytes > 0 {
		ratio := float64(s.OutputFileBytes) / float64(s.InputFileBytes) * 100
		fmt.Printf("Ratio:         %.1f%% of original\n", ratio)
	}
	fmt.Printf("Images:        %d recompressed, %d skipped, %d failed",
		s.Recompressed, s.Skipped, s.Failed)
	if s.Kept > 0 {
		fmt.Printf(", %d kept", s.Kept)
	}
	fmt.Println()
	fmt.Printf("Time:          %s\n", elapsed.Round(time.Millisecond))

	if failures := r.Failures(); len(failures) > 0 {
		fmt.Println()
		fmt.Printf("Failed images (%d, left unchanged):\n", len(failures))
		for _, f := range failures {
			fmt.Printf("  ID %-6d %s\n", f.ID, truncate(f.Error, 60))
		}
	}
	if r.Output != "" {
		logVerbose("wrote %s", filepath.Clean(r.Output))
	}
}
