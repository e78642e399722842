package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"choco-backend/internal/report"
)

// Command flags
var (
	parseOutput    string // Output JSON path, empty for stdout
	parseHasHeader string // Header override: "", "true" or "false"
)

// parseCmd represents the parse command.
var parseCmd = &cobra.Command{
	Use:   "parse <workbook.xlsx>",
	Short: "Parse an .xlsx workbook into its structural JSON form",
	Long: `Reverse an existing Excel workbook into the structural JSON
representation: sheets, cells, styles, merges, widths, heights and
freeze panes. Row 1 is classified as headers; --has-header overrides
the classification for every sheet.

Examples:
  choco parse report.xlsx
  choco parse report.xlsx -o structure.json --has-header=false`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runParse(args[0])
	},
}

func init() {
	parseCmd.Flags().StringVarP(&parseOutput, "output", "o", "", "output JSON path (default stdout)")
	parseCmd.Flags().StringVar(&parseHasHeader, "has-header", "", "force header classification of row 1 (true/false)")
	rootCmd.AddCommand(parseCmd)
}

func runParse(path string) {
	logger := setupLogger(GetLogLevel(), "console")

	var opts []report.ParseOption
	switch parseHasHeader {
	case "":
	case "true":
		opts = append(opts, report.WithSheetHeader("", true))
	case "false":
		opts = append(opts, report.WithSheetHeader("", false))
	default:
		fmt.Fprintf(os.Stderr, "--has-header must be true or false\n")
		os.Exit(1)
	}

	parser := report.NewStructureParser(logger)
	ws, err := parser.ParseFile(path, opts...)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to parse workbook")
		fmt.Fprintf(os.Stderr, "failed to parse workbook: %v\n", err)
		os.Exit(1)
	}

	data, err := report.ExportJSON(ws)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to serialize structure: %v\n", err)
		os.Exit(1)
	}

	if parseOutput == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(parseOutput, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", parseOutput, err)
		os.Exit(1)
	}
	fmt.Printf("structure written to %s\n", parseOutput)
}
