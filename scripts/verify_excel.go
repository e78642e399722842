//go:build ignore
// +build ignore

// This script generates a sample report for manual verification.
// Run with: go run scripts/verify_excel.go
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"choco-backend/internal/report"
)

func main() {
	cfg := &report.Config{
		Properties: &report.WorkbookProperties{
			Title:   "Sample Sales Report",
			Creator: "choco-backend",
		},
		Styles: []report.NamedStyle{
			{Name: "money", Style: report.StyleSpec{NumberFormat: "#,##0.00"}},
		},
		Sheets: []report.SheetConfig{
			{
				Name: "Sales",
				Headers: []report.HeaderConfig{
					{Title: "Region"},
					{Title: "Units"},
					{Title: "Revenue", DataStyle: &report.StyleSpec{Preset: "money"}},
				},
				Data: [][]any{
					{"North", 120.0, 12500.50},
					{"South", 95.0, 9800.00},
					{"East", 143.0, 15200.75},
					{"West", 101.0, 11000.25},
				},
				Formatting: &report.FormattingConfig{
					FreezePanes: "A2",
					AlternatingRows: &report.AlternatingRows{
						StartRow: 2,
						EndRow:   5,
					},
				},
				Charts: []report.ChartDescriptor{
					{
						Type:      "bar",
						DataRange: "C2:C5",
						Title:     "Revenue by region",
						Position:  "E2",
					},
				},
			},
		},
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	gen := report.NewGenerator(logger)
	path, err := gen.GenerateReport(cfg, "sample_report.xlsx")
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	for _, w := range gen.Warnings() {
		fmt.Println("warning:", w)
	}
	fmt.Println("sample report written to", path)
}
