package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"choco-backend/internal/config"
	"choco-backend/internal/report"
)

// Command flags
var (
	generateOutput string // Output file path
	generateStyles string // Style presets file
)

// generateCmd represents the generate command.
var generateCmd = &cobra.Command{
	Use:   "generate <config.json>",
	Short: "Render a report configuration to an .xlsx file",
	Long: `Render a declarative JSON report configuration into an Excel
workbook without starting the server.

Examples:
  # Render with a generated filename
  choco generate report.json

  # Render to an explicit path, with reusable style presets
  choco generate report.json -o monthly.xlsx --styles styles.yaml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runGenerate(args[0])
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "output .xlsx path (default report_<timestamp>.xlsx)")
	generateCmd.Flags().StringVar(&generateStyles, "styles", "", "YAML file with named style presets")
	rootCmd.AddCommand(generateCmd)
}

// loadReportConfig reads a report configuration, merging in presets from
// --styles. Presets from the file come first so same-named styles in the
// configuration win.
func loadReportConfig(path string) (*report.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := report.DecodeConfig(data)
	if err != nil {
		return nil, err
	}

	if generateStyles != "" {
		presets, err := config.LoadStylePresets(generateStyles)
		if err != nil {
			return nil, err
		}
		cfg.Styles = append(presets, cfg.Styles...)
	}

	return cfg, nil
}

func runGenerate(configPath string) {
	logger := setupLogger(GetLogLevel(), "console")

	cfg, err := loadReportConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("failed to load report config")
		fmt.Fprintf(os.Stderr, "failed to load report config: %v\n", err)
		os.Exit(1)
	}

	output := generateOutput
	if output == "" {
		output = fmt.Sprintf("report_%s.xlsx", timestamp())
	}

	gen := report.NewGenerator(logger)
	path, err := gen.GenerateReport(cfg, output)
	if err != nil {
		logger.Error().Err(err).Msg("report generation failed")
		fmt.Fprintf(os.Stderr, "report generation failed: %v\n", err)
		os.Exit(1)
	}

	for _, w := range gen.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	fmt.Printf("report written to %s\n", path)
}
