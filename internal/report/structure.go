// Package report implements the spreadsheet report engine: a declarative
// JSON configuration is compiled into an .xlsx document, and an existing
// .xlsx document can be parsed back into the same structural representation.
package report

import (
	"fmt"
	"strconv"
	"strings"
)

// CellType classifies a cell within a sheet structure.
type CellType string

const (
	CellTypeHeader  CellType = "header"
	CellTypeData    CellType = "data"
	CellTypeFormula CellType = "formula"
	CellTypeMerge   CellType = "merge"
	CellTypeChart   CellType = "chart"
	CellTypeEmpty   CellType = "empty"
)

// CellPosition identifies a single cell by 1-based row and column.
type CellPosition struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Address returns the A1-style address of the position (e.g. "C5").
func (p CellPosition) Address() string {
	return fmt.Sprintf("%s%d", ColumnName(p.Column), p.Row)
}

// ParseAddress converts an A1-style address like "C5" into a CellPosition.
func ParseAddress(address string) (CellPosition, error) {
	var letters, digits strings.Builder
	for _, r := range strings.TrimSpace(address) {
		switch {
		case r >= 'A' && r <= 'Z':
			letters.WriteRune(r)
		case r >= 'a' && r <= 'z':
			letters.WriteRune(r - 'a' + 'A')
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		default:
			return CellPosition{}, fmt.Errorf("invalid cell address %q", address)
		}
	}
	if letters.Len() == 0 || digits.Len() == 0 {
		return CellPosition{}, fmt.Errorf("invalid cell address %q", address)
	}
	row, err := strconv.Atoi(digits.String())
	if err != nil || row < 1 {
		return CellPosition{}, fmt.Errorf("invalid row in cell address %q", address)
	}
	col, err := ColumnIndex(letters.String())
	if err != nil {
		return CellPosition{}, err
	}
	return CellPosition{Row: row, Column: col}, nil
}

// CellRange is an ordered pair of positions, start assumed top-left and
// end bottom-right. Used for merges and chart data references.
type CellRange struct {
	Start CellPosition `json:"start"`
	End   CellPosition `json:"end"`
}

// Address returns the A1-style range address (e.g. "A1:C5").
func (r CellRange) Address() string {
	return r.Start.Address() + ":" + r.End.Address()
}

// ParseRange converts an A1-style range like "A1:C5" into a CellRange.
// A single address is accepted and yields a one-cell range.
func ParseRange(rangeStr string) (CellRange, error) {
	parts := strings.Split(strings.TrimSpace(rangeStr), ":")
	switch len(parts) {
	case 1:
		pos, err := ParseAddress(parts[0])
		if err != nil {
			return CellRange{}, err
		}
		return CellRange{Start: pos, End: pos}, nil
	case 2:
		start, err := ParseAddress(parts[0])
		if err != nil {
			return CellRange{}, err
		}
		end, err := ParseAddress(parts[1])
		if err != nil {
			return CellRange{}, err
		}
		return CellRange{Start: start, End: end}, nil
	default:
		return CellRange{}, fmt.Errorf("invalid cell range %q", rangeStr)
	}
}

// CellDefinition is the complete description of one cell.
type CellDefinition struct {
	Position       CellPosition   `json:"position"`
	Type           CellType       `json:"type"`
	Value          any            `json:"value"`
	Style          *StyleSpec     `json:"style,omitempty"`
	Formula        string         `json:"formula,omitempty"`
	MergeRange     *CellRange     `json:"merge_range,omitempty"`
	Comment        string         `json:"comment,omitempty"`
	Hyperlink      string         `json:"hyperlink,omitempty"`
	DataValidation *DataValidation `json:"data_validation,omitempty"`
}

// DataValidation describes a drop-list constraint applied to a cell.
type DataValidation struct {
	Type          string   `json:"type"`
	AllowedValues []string `json:"allowed_values,omitempty"`
}

// ChartDescriptor describes an embedded chart. DataRange may carry a sheet
// qualifier ("Sheet1!A1:C6"); the builder adds one when absent.
type ChartDescriptor struct {
	Type       string `json:"type"`
	Title      string `json:"title,omitempty"`
	DataRange  string `json:"data_range"`
	Position   string `json:"position,omitempty"`
	XAxisTitle string `json:"x_axis_title,omitempty"`
	YAxisTitle string `json:"y_axis_title,omitempty"`
}

// SheetStructure is the in-memory representation of one worksheet.
type SheetStructure struct {
	Name         string             `json:"name"`
	Cells        []CellDefinition   `json:"cells"`
	ColumnWidths map[string]float64 `json:"column_widths,omitempty"`
	RowHeights   map[int]float64    `json:"row_heights,omitempty"`
	FreezePanes  string             `json:"freeze_panes,omitempty"`
	PrintArea    string             `json:"print_area,omitempty"`
	PageSetup    map[string]any     `json:"page_setup,omitempty"`
	Protection   map[string]any     `json:"protection,omitempty"`
	TabColor     string             `json:"tab_color,omitempty"`
	Zoom         int                `json:"zoom,omitempty"`
	Charts       []ChartDescriptor  `json:"charts,omitempty"`
}

// WorkbookProperties carries document-level metadata.
type WorkbookProperties struct {
	Title       string `json:"title,omitempty"`
	Creator     string `json:"creator,omitempty"`
	Description string `json:"description,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
}

// WorkbookStructure is the root of the structural model. Sheet order is
// display/tab order.
type WorkbookStructure struct {
	Sheets      []SheetStructure    `json:"sheets"`
	Properties  *WorkbookProperties `json:"properties,omitempty"`
	NamedStyles []NamedStyle        `json:"named_styles,omitempty"`
	Charts      []ChartDescriptor   `json:"charts,omitempty"`
}

// NamedStyle binds a reusable style specification to a name.
type NamedStyle struct {
	Name  string    `json:"name" yaml:"name"`
	Style StyleSpec `json:"style" yaml:"style"`
}

// ColumnName converts a 1-based column index to its letter form
// (A, B, ..., Z, AA, AB, ...).
func ColumnName(index int) string {
	result := ""
	for index > 0 {
		index--
		result = string(rune('A'+index%26)) + result
		index /= 26
	}
	return result
}

// ColumnIndex converts a column letter form back to its 1-based index.
// The conversion is the exact inverse of ColumnName.
func ColumnIndex(name string) (int, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	index := 0
	for _, r := range name {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column name %q", name)
		}
		index = index*26 + int(r-'A') + 1
	}
	return index, nil
}
