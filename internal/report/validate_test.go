package report

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateConfigValid(t *testing.T) {
	cfg := &Config{Sheets: []SheetConfig{{
		Name:    "Report",
		Headers: []HeaderConfig{{Title: "A"}, {Title: "B"}},
		Data:    [][]any{{"x", 1.0}},
		Charts:  []ChartDescriptor{{Type: "line", DataRange: "B1:B2"}},
	}}}

	result := testGenerator().ValidateConfig(cfg)
	if !result.Valid {
		t.Fatalf("valid config rejected: %v", result.Errors)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func TestValidateConfigNil(t *testing.T) {
	result := testGenerator().ValidateConfig(nil)
	if result.Valid {
		t.Fatal("nil config should be invalid")
	}
}

func TestValidateConfigChartErrors(t *testing.T) {
	tests := []struct {
		name  string
		chart ChartDescriptor
		want  string
	}{
		{"missing data range", ChartDescriptor{Type: "bar"}, "no data_range"},
		{"unknown type", ChartDescriptor{Type: "sparkle", DataRange: "A1:B2"}, "unsupported type"},
		{"malformed range", ChartDescriptor{Type: "bar", DataRange: "nope"}, "invalid data_range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Sheets: []SheetConfig{{
				Name:   "S",
				Charts: []ChartDescriptor{tt.chart},
			}}}
			result := testGenerator().ValidateConfig(cfg)
			if result.Valid {
				t.Fatal("config should be invalid")
			}
			found := false
			for _, e := range result.Errors {
				if strings.Contains(e, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors = %v, want one containing %q", result.Errors, tt.want)
			}
		})
	}
}

func TestValidateConfigStricterThanRender(t *testing.T) {
	// The renderer degrades a missing chart range to a warning, but
	// validation reports it as an error.
	cfg := &Config{Sheets: []SheetConfig{{
		Name:   "S",
		Charts: []ChartDescriptor{{Type: "bar"}},
	}}}

	g := testGenerator()
	if _, err := g.GenerateReport(cfg, t.TempDir()+"/ok.xlsx"); err != nil {
		t.Fatalf("render should succeed: %v", err)
	}
	if result := g.ValidateConfig(cfg); result.Valid {
		t.Error("validation should reject what the renderer degrades")
	}
}

func TestValidateConfigFormattingErrors(t *testing.T) {
	cfg := &Config{Sheets: []SheetConfig{{
		Name: "S",
		Formatting: &FormattingConfig{
			FreezePanes: "not-a-cell",
			Borders:     &BorderRange{Range: "garbage"},
			AlternatingRows: &AlternatingRows{
				StartRow: 9, EndRow: 3,
			},
		},
	}}}

	result := testGenerator().ValidateConfig(cfg)
	if result.Valid {
		t.Fatal("config should be invalid")
	}
	if len(result.Errors) != 3 {
		t.Errorf("errors = %v, want 3", result.Errors)
	}
}

func TestValidateConfigWarnings(t *testing.T) {
	cfg := &Config{Sheets: []SheetConfig{
		{Name: "Empty"},
		{Headers: []HeaderConfig{{Title: "A"}}, Data: [][]any{{"x", "extra"}}},
	}}

	result := testGenerator().ValidateConfig(cfg)
	if !result.Valid {
		t.Fatalf("warnings must not make the config invalid: %v", result.Errors)
	}
	if len(result.Warnings) < 3 {
		// No content, no name, row wider than headers.
		t.Errorf("warnings = %v, want at least 3", result.Warnings)
	}
}

func TestValidateConfigEmpty(t *testing.T) {
	result := testGenerator().ValidateConfig(&Config{})
	if !result.Valid {
		t.Fatalf("empty config should validate with warnings: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("empty config should warn")
	}
}

func TestValidateConfigUnknownPreset(t *testing.T) {
	g := testGenerator()
	result := g.ValidateConfig(&Config{
		Styles: []NamedStyle{{Name: "known", Style: StyleSpec{}}},
		Sheets: []SheetConfig{
			{
				Name:    "S",
				Headers: []HeaderConfig{{Title: "A", Style: &StyleSpec{Preset: "unknown"}}},
			},
		},
	})
	if result.Valid {
		t.Fatal("unknown preset reference should invalidate the config")
	}
}

func TestValidateConfigUnnamedStyle(t *testing.T) {
	g := testGenerator()
	result := g.ValidateConfig(&Config{
		Styles: []NamedStyle{{Style: StyleSpec{}}},
	})
	if result.Valid {
		t.Fatal("a style without a name should invalidate the config")
	}
}

func TestValidateConfigDuplicateSheetNames(t *testing.T) {
	result := testGenerator().ValidateConfig(&Config{Sheets: []SheetConfig{
		{Name: "Summary"},
		{Name: "Detail"},
		{Name: "Summary"},
	}})
	if result.Valid {
		t.Fatal("duplicate sheet names should invalidate the config")
	}
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "Summary") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want one naming the duplicated sheet", result.Errors)
	}
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig([]byte(`{"sheets":[{"name":"S","data":[[1,2]]}]}`))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if len(cfg.Sheets) != 1 || cfg.Sheets[0].Name != "S" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestDecodeConfigMalformed(t *testing.T) {
	_, err := DecodeConfig([]byte(`{"sheets":`))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
