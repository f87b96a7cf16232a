package cmd

import (
	"fmt"

	"github.com/AnyUserName/pdfslim/internal/container"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <input.pdf>",
	Short: "List embedded images without modifying the document",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	doc, err := container.Open(args[0])
	if err != nil {
		return err
	}
	imgs := doc.Images()

	fmt.Println()
	fmt.Printf("  Pages:  %d\n", doc.PageCount())
	fmt.Printf("  Images: %d\n", len(imgs))
	fmt.Println()
	if len(imgs) == 0 {
		return nil
	}

	fmt.Printf("  %6s  %11s  %-12s  %3s  %-16s  %5s  %10s\n",
		"ID", "Size", "ColorSpace", "BPC", "Filter", "Mask", "Bytes")
	var total int64
	for _, img := range imgs {
		mask := "-"
		if img.MaskID != 0 {
			mask = fmt.Sprint(img.MaskID)
		}
		filter := img.Filter
		if filter == "" {
			filter = "none"
		}
		fmt.Printf("  %6d  %11s  %-12s  %3d  %-16s  %5s  %10s\n",
			img.ID,
			fmt.Sprintf("%dx%d", img.Width, img.Height),
			truncate(img.ColorSpace, 12),
			img.BitsPerComponent,
			truncate(filter, 16),
			mask,
			formatBytes(img.Size),
		)
		total += img.Size
	}
	fmt.Println()
	fmt.Printf("  Image data: %s\n", formatBytes(total))
	fmt.Println()
	return nil
}
