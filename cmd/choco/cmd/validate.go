package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"choco-backend/internal/report"
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate <config.json>",
	Short: "Validate a report configuration",
	Long: `Check a report configuration without keeping any output. Static
checks cover ranges, chart types and style preset references; a passing
configuration is additionally rendered once into a throwaway directory.

The command exits non-zero when the configuration is invalid.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runValidate(args[0])
	},
}

func init() {
	validateCmd.Flags().StringVar(&generateStyles, "styles", "", "YAML file with named style presets")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(configPath string) {
	logger := setupLogger(GetLogLevel(), "console")

	cfg, err := loadReportConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load report config: %v\n", err)
		os.Exit(1)
	}

	gen := report.NewGenerator(logger)
	result := gen.ValidateConfig(cfg)

	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Printf("error: %s\n", e)
	}

	if !result.Valid {
		fmt.Printf("configuration is invalid (%d errors)\n", len(result.Errors))
		os.Exit(1)
	}
	fmt.Println("configuration is valid")
}
