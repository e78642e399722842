package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidationResult is the outcome of a configuration pre-flight check.
// Errors make the configuration unusable; warnings do not.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *ValidationResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateConfig checks a report configuration without producing a file
// the caller keeps. It is stricter than rendering: problems the
// renderer degrades to warnings, like a chart without a data range or
// an unknown chart type, are reported as errors here. When the static
// checks pass, a throwaway render to a temporary directory verifies the
// configuration end to end.
func (g *Generator) ValidateConfig(cfg *Config) *ValidationResult {
	result := &ValidationResult{}
	if cfg == nil {
		result.errorf("configuration is empty")
		return result
	}

	presets := indexStyles(cfg.Styles)
	for i, style := range cfg.Styles {
		if style.Name == "" {
			result.errorf("style %d has no name", i+1)
		}
	}

	seen := make(map[string]int)
	for i, sheet := range cfg.Sheets {
		label := sheet.Name
		if label == "" {
			label = fmt.Sprintf("sheet %d", i+1)
			result.warnf("sheet %d has no name", i+1)
		} else if first, dup := seen[sheet.Name]; dup {
			result.errorf("sheet %d duplicates the name %q of sheet %d", i+1, sheet.Name, first)
		} else {
			seen[sheet.Name] = i + 1
		}
		validateSheet(result, label, &sheet, presets)
	}
	if len(cfg.Sheets) == 0 {
		result.warnf("configuration has no sheets, an empty workbook will be generated")
	}

	if len(result.Errors) == 0 {
		if err := g.trialRender(cfg); err != nil {
			result.errorf("trial render failed: %v", err)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func validateSheet(result *ValidationResult, label string, sheet *SheetConfig, presets map[string]*StyleSpec) {
	if len(sheet.Headers) == 0 && len(sheet.Data) == 0 {
		result.warnf("%s has no headers and no data", label)
	}
	for i, h := range sheet.Headers {
		for _, spec := range []*StyleSpec{h.Style, h.DataStyle} {
			if spec == nil || spec.Preset == "" {
				continue
			}
			if _, ok := presets[spec.Preset]; !ok {
				result.errorf("%s: header %d references unknown style preset %q", label, i+1, spec.Preset)
			}
		}
	}
	if len(sheet.Headers) > 0 {
		for r, row := range sheet.Data {
			if len(row) > len(sheet.Headers) {
				result.warnf("%s: data row %d has %d values for %d headers",
					label, r+1, len(row), len(sheet.Headers))
			}
		}
	}

	if f := sheet.Formatting; f != nil {
		if f.FreezePanes != "" {
			if _, err := ParseAddress(f.FreezePanes); err != nil {
				result.errorf("%s: invalid freeze_panes cell %q", label, f.FreezePanes)
			}
		}
		if f.Borders != nil {
			if f.Borders.Range == "" {
				result.errorf("%s: borders directive has no range", label)
			} else if _, err := ParseRange(f.Borders.Range); err != nil {
				result.errorf("%s: invalid borders range %q", label, f.Borders.Range)
			}
		}
		if a := f.AlternatingRows; a != nil && a.EndRow != 0 && a.StartRow > a.EndRow {
			result.errorf("%s: alternating_rows start_row %d is past end_row %d",
				label, a.StartRow, a.EndRow)
		}
	}

	for j, chart := range sheet.Charts {
		if _, ok := chartTypeOf(chart.Type); !ok {
			result.errorf("%s: chart %d has unsupported type %q", label, j+1, chart.Type)
		}
		if chart.DataRange == "" {
			result.errorf("%s: chart %d has no data_range", label, j+1)
			continue
		}
		rangePart := chart.DataRange
		if idx := strings.Index(rangePart, "!"); idx >= 0 {
			rangePart = rangePart[idx+1:]
		}
		if _, err := ParseRange(rangePart); err != nil {
			result.errorf("%s: chart %d has invalid data_range %q", label, j+1, chart.DataRange)
		}
	}
}

// trialRender generates the workbook into a temporary directory that is
// removed afterwards.
func (g *Generator) trialRender(cfg *Config) error {
	dir, err := os.MkdirTemp("", "report-validate-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary directory: %w", err)
	}
	defer os.RemoveAll(dir)

	_, err = g.GenerateReport(cfg, filepath.Join(dir, "validate.xlsx"))
	return err
}
