package main

import (
	"fmt"
	"os"

	"github.com/AnyUserName/pdfslim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[pdfslim] error: %v\n", err)
		os.Exit(1)
	}
}
