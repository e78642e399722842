//go:build ignore
// +build ignore

// This script parses a generated report back into its structural form
// and prints a summary, for manual round-trip verification.
// Run with: go run scripts/read_excel.go
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"choco-backend/internal/report"
)

func main() {
	path := "sample_report.xlsx"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	parser := report.NewStructureParser(logger)
	ws, err := parser.ParseFile(path)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	for _, sheet := range ws.Sheets {
		fmt.Printf("sheet %q: %d cells, freeze=%q\n", sheet.Name, len(sheet.Cells), sheet.FreezePanes)
		for _, c := range sheet.Cells {
			if c.Position.Row > 3 {
				continue
			}
			fmt.Printf("  %s%d [%s] = %v\n",
				report.ColumnName(c.Position.Column), c.Position.Row, c.Type, c.Value)
		}
		for col, w := range sheet.ColumnWidths {
			fmt.Printf("  width %s = %.1f\n", col, w)
		}
	}
}
