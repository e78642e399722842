package report

import (
	"encoding/json"
	"fmt"
)

// Config is the declarative report configuration consumed by the builder.
// It mirrors the JSON schema accepted by the generate endpoints.
type Config struct {
	Properties *WorkbookProperties `json:"properties,omitempty"`
	Styles     []NamedStyle        `json:"styles,omitempty"`
	Sheets     []SheetConfig       `json:"sheets,omitempty"`
}

// SheetConfig describes one sheet of the report configuration.
type SheetConfig struct {
	Name              string            `json:"name,omitempty"`
	Properties        *SheetProperties  `json:"properties,omitempty"`
	Headers           []HeaderConfig    `json:"headers,omitempty"`
	Data              [][]any           `json:"data,omitempty"`
	Formatting        *FormattingConfig `json:"formatting,omitempty"`
	Charts            []ChartDescriptor `json:"charts,omitempty"`
	AutoAdjustColumns *bool             `json:"auto_adjust_columns,omitempty"`
}

// SheetProperties carries per-sheet display properties.
type SheetProperties struct {
	TabColor string `json:"tab_color,omitempty"`
	Zoom     int    `json:"zoom,omitempty"`
}

// HeaderConfig describes one header column: its title, the style of the
// header cell itself, and an optional style applied to every data cell in
// the column.
type HeaderConfig struct {
	Title     string     `json:"title"`
	Style     *StyleSpec `json:"style,omitempty"`
	DataStyle *StyleSpec `json:"data_style,omitempty"`
}

// FormattingConfig groups sheet-level formatting directives.
type FormattingConfig struct {
	AlternatingRows *AlternatingRows `json:"alternating_rows,omitempty"`
	FreezePanes     string           `json:"freeze_panes,omitempty"`
	Borders         *BorderRange     `json:"borders,omitempty"`
}

// AlternatingRows colors a row band by parity: even rows get Color1, odd
// rows get Color2, across all used columns, overriding pre-existing fill.
type AlternatingRows struct {
	StartRow int    `json:"start_row,omitempty"`
	EndRow   int    `json:"end_row,omitempty"`
	Color1   string `json:"color1,omitempty"`
	Color2   string `json:"color2,omitempty"`
}

// BorderRange applies a uniform border style to every cell in a range.
type BorderRange struct {
	Range string `json:"range"`
	Style string `json:"style,omitempty"`
}

// DecodeConfig decodes a JSON report configuration. Decode failures wrap
// ErrConfiguration so callers can map them to an invalid-input outcome.
func DecodeConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return &cfg, nil
}

// autoAdjust reports whether auto column sizing is enabled for the sheet.
// It defaults to true when unset.
func (s *SheetConfig) autoAdjust() bool {
	return s.AutoAdjustColumns == nil || *s.AutoAdjustColumns
}
