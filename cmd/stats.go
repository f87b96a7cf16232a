package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AnyUserName/pdfslim/internal/report"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <report.json>",
	Short: "Display statistics for a saved run report",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	r, err := report.ReadJSON(args[0])
	if err != nil {
		return err
	}
	printStats(r)
	return nil
}

func printStats(r *report.Report) {
	fmt.Println()
	fmt.Printf("  Report version:   %d\n", r.Version)
	fmt.Printf("  Generated:        %s\n", r.GeneratedAt)
	fmt.Printf("  Profile:          %s\n", r.Profile)
	fmt.Printf("  Input:            %s\n", r.Input)
	fmt.Printf("  Output:           %s\n", r.Output)
	fmt.Println()

	s := r.Stats
	fmt.Printf("  Total images:     %d\n", s.TotalImages)
	fmt.Printf("  Recompressed:     %d\n", s.Recompressed)
	fmt.Printf("  Skipped:          %d\n", s.Skipped)
	fmt.Printf("  Failed:           %d\n", s.Failed)
	if s.Kept > 0 {
		fmt.Printf("  Kept (larger):    %d\n", s.Kept)
	}
	fmt.Printf("  Image bytes:      %s -> %s\n", formatBytes(s.TotalInputBytes), formatBytes(s.TotalOutputBytes))
	if s.InputFileBytes > 0 {
		ratio := float64(s.OutputFileBytes) / float64(s.InputFileBytes) * 100
		fmt.Printf("  File size:        %s -> %s (%.1f%% of original)\n",
			formatBytes(s.InputFileBytes), formatBytes(s.OutputFileBytes), ratio)
	}
	fmt.Println()

	// Per-format breakdown.
	formatStats := map[string]struct {
		count int
		bytes int64
	}{}
	for _, img := range r.Images {
		if img.Result == nil {
			continue
		}
		fs := formatStats[img.Result.Format]
		fs.count++
		fs.bytes += img.Result.Size
		formatStats[img.Result.Format] = fs
	}
	fmt.Println("  Format breakdown:")
	for _, f := range []string{"jpeg", "png"} {
		if fs, ok := formatStats[f]; ok {
			fmt.Printf("    %-6s  %4d images  %s\n", f, fs.count, formatBytes(fs.bytes))
		}
	}
	fmt.Println()

	// Action frequency, e.g. how many images needed CMYK conversion.
	actions := map[string]int{}
	for _, img := range r.Images {
		for _, a := range img.Actions {
			actions[actionKind(a)]++
		}
	}
	if len(actions) > 0 {
		kinds := make([]string, 0, len(actions))
		for k := range actions {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Println("  Actions:")
		for _, k := range kinds {
			fmt.Printf("    %-28s %4d\n", k, actions[k])
		}
		fmt.Println()
	}

	// Top 10 savings.
	type saving struct {
		id       int
		from, to int64
	}
	var items []saving
	for _, img := range r.Images {
		if img.Result != nil {
			items = append(items, saving{img.ID, img.Original.Size, img.Result.Size})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].from-items[i].to > items[j].from-items[j].to
	})
	if n := min(len(items), 10); n > 0 {
		fmt.Printf("  Top %d savings (original -> recompressed):\n", n)
		for _, it := range items[:n] {
			saved := float64(0)
			if it.from > 0 {
				saved = (1 - float64(it.to)/float64(it.from)) * 100
			}
			fmt.Printf("    ID %-6d %10s -> %10s  (-%.0f%%)\n", it.id, formatBytes(it.from), formatBytes(it.to), saved)
		}
		fmt.Println()
	}

	if failures := r.Failures(); len(failures) > 0 {
		fmt.Printf("  Failures (%d):\n", len(failures))
		for _, f := range failures {
			fmt.Printf("    ID %-6d %s\n", f.ID, f.Error)
		}
		fmt.Println()
	}
}

// actionKind strips the numbers from an action entry so entries group.
func actionKind(a string) string {
	for _, prefix := range []string{"resize", "keep dims", "quantize failed", "quantize", "format", "decoded", "mask composition failed", "kept original"} {
		if strings.HasPrefix(a, prefix) {
			if prefix == "format" {
				return a
			}
			return prefix
		}
	}
	return a
}
