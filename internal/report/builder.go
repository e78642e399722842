package report

import (
	"fmt"
	"sort"
	"strings"
)

const (
	defaultSheetName = "Sheet1"

	// Auto column width: content length plus padding, capped.
	autoWidthPadding = 2
	autoWidthMax     = 50.0
)

// Build compiles a declarative report configuration into a
// WorkbookStructure. It never fails on an empty request: a missing or
// empty sheet list yields a single empty sheet named "Sheet1".
func Build(cfg *Config) *WorkbookStructure {
	if cfg == nil {
		cfg = &Config{}
	}

	sheets := cfg.Sheets
	if len(sheets) == 0 {
		sheets = []SheetConfig{{Name: defaultSheetName}}
	}

	presets := indexStyles(cfg.Styles)

	ws := &WorkbookStructure{Properties: cfg.Properties, NamedStyles: cfg.Styles}
	for i, sc := range sheets {
		ws.Sheets = append(ws.Sheets, buildSheet(&sc, i, presets))
	}
	return ws
}

// indexStyles maps preset names to their specs; a duplicate name keeps
// the last entry.
func indexStyles(styles []NamedStyle) map[string]*StyleSpec {
	if len(styles) == 0 {
		return nil
	}
	out := make(map[string]*StyleSpec, len(styles))
	for i := range styles {
		s := styles[i].Style
		out[styles[i].Name] = &s
	}
	return out
}

// resolveSpec expands a preset reference, overlaying the spec's own axes
// on the named preset, then resolves defaults. An unknown preset name is
// ignored here; validation reports it.
func resolveSpec(spec *StyleSpec, presets map[string]*StyleSpec) *StyleSpec {
	if spec == nil {
		return nil
	}
	base, ok := presets[spec.Preset]
	if spec.Preset == "" || !ok {
		return spec.Resolve()
	}
	merged := cloneStyle(base)
	if merged == nil {
		merged = &StyleSpec{}
	}
	if spec.Font != nil {
		merged.Font = spec.Font
	}
	if spec.Fill != nil {
		merged.Fill = spec.Fill
	}
	if spec.Border != nil {
		merged.Border = spec.Border
	}
	if spec.Alignment != nil {
		merged.Alignment = spec.Alignment
	}
	if spec.NumberFormat != "" {
		merged.NumberFormat = spec.NumberFormat
	}
	return merged.Resolve()
}

// sheetBuilder accumulates cells for one sheet, keyed by position so
// formatting passes can amend cells already placed.
type sheetBuilder struct {
	cells  map[CellPosition]*CellDefinition
	maxRow int
	maxCol int
}

func newSheetBuilder() *sheetBuilder {
	return &sheetBuilder{cells: make(map[CellPosition]*CellDefinition)}
}

func (b *sheetBuilder) cell(pos CellPosition) *CellDefinition {
	if c, ok := b.cells[pos]; ok {
		return c
	}
	c := &CellDefinition{Position: pos, Type: CellTypeEmpty}
	b.cells[pos] = c
	if pos.Row > b.maxRow {
		b.maxRow = pos.Row
	}
	if pos.Column > b.maxCol {
		b.maxCol = pos.Column
	}
	return c
}

// ordered returns the accumulated cells sorted by row then column.
func (b *sheetBuilder) ordered() []CellDefinition {
	out := make([]CellDefinition, 0, len(b.cells))
	for _, c := range b.cells {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position.Row != out[j].Position.Row {
			return out[i].Position.Row < out[j].Position.Row
		}
		return out[i].Position.Column < out[j].Position.Column
	})
	return out
}

// buildSheet materializes one sheet in the fixed order: properties,
// headers, data, formatting, charts, auto column widths. The order
// matters: alternating-row fill needs the data rows to exist, and auto
// width accounts for everything written before it.
func buildSheet(sc *SheetConfig, index int, presets map[string]*StyleSpec) SheetStructure {
	name := sc.Name
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}

	out := SheetStructure{Name: name}
	if sc.Properties != nil {
		if sc.Properties.TabColor != "" {
			out.TabColor = NormalizeColor(sc.Properties.TabColor)
		}
		out.Zoom = sc.Properties.Zoom
	}

	b := newSheetBuilder()

	// Headers occupy row 1.
	for i, h := range sc.Headers {
		pos := CellPosition{Row: 1, Column: i + 1}
		c := b.cell(pos)
		c.Type = CellTypeHeader
		if h.Title != "" {
			c.Value = h.Title
		} else {
			c.Value = fmt.Sprintf("Column %d", i+1)
		}
		if h.Style != nil {
			c.Style = resolveSpec(h.Style, presets)
		} else {
			c.Style = defaultHeaderStyle().Resolve()
		}
	}

	// Data rows start below the header row, or at row 1 without headers.
	startRow := 1
	if len(sc.Headers) > 0 {
		startRow = 2
	}
	for r, row := range sc.Data {
		for col, value := range row {
			pos := CellPosition{Row: startRow + r, Column: col + 1}
			c := b.cell(pos)
			c.Type = CellTypeData
			c.Value = value
			// Column-specific data styling from the header entry applies
			// to every data cell in that column.
			if col < len(sc.Headers) && sc.Headers[col].DataStyle != nil {
				c.Style = resolveSpec(sc.Headers[col].DataStyle, presets)
			}
		}
	}

	if sc.Formatting != nil {
		applyBorders(b, sc.Formatting.Borders)
		applyAlternatingRows(b, sc.Formatting.AlternatingRows)
		out.FreezePanes = sc.Formatting.FreezePanes
	}

	// Charts: a data range lacking a sheet qualifier is bound to this
	// sheet before the renderer sees it.
	for _, chart := range sc.Charts {
		if chart.DataRange != "" && !strings.Contains(chart.DataRange, "!") {
			chart.DataRange = name + "!" + chart.DataRange
		}
		out.Charts = append(out.Charts, chart)
	}

	if sc.autoAdjust() {
		out.ColumnWidths = autoColumnWidths(b)
	}

	out.Cells = b.ordered()
	return out
}

// applyBorders sets a uniform border on every cell of the configured
// range, creating empty cells where needed.
func applyBorders(b *sheetBuilder, cfg *BorderRange) {
	if cfg == nil || cfg.Range == "" {
		return
	}
	rng, err := ParseRange(cfg.Range)
	if err != nil {
		return
	}
	style := cfg.Style
	if style == "" {
		style = "thin"
	}
	side := &BorderSide{Style: style, Color: colorBlack}
	for row := rng.Start.Row; row <= rng.End.Row; row++ {
		for col := rng.Start.Column; col <= rng.End.Column; col++ {
			c := b.cell(CellPosition{Row: row, Column: col})
			c.Style = cloneStyle(c.Style)
			if c.Style == nil {
				c.Style = &StyleSpec{}
			}
			c.Style.Border = &BorderSpec{Left: side, Right: side, Top: side, Bottom: side}
		}
	}
}

// applyAlternatingRows colors the configured row band by parity: even
// rows get Color1, odd rows Color2, across all used columns, overriding
// any pre-existing fill.
func applyAlternatingRows(b *sheetBuilder, cfg *AlternatingRows) {
	if cfg == nil || b.maxCol == 0 {
		return
	}
	startRow := cfg.StartRow
	if startRow == 0 {
		startRow = 2
	}
	endRow := cfg.EndRow
	if endRow == 0 {
		endRow = b.maxRow
	}
	color1 := cfg.Color1
	if color1 == "" {
		color1 = "FFFFFF"
	}
	color2 := cfg.Color2
	if color2 == "" {
		color2 = "F2F2F2"
	}

	maxCol := b.maxCol
	for row := startRow; row <= endRow; row++ {
		color := color2
		if row%2 == 0 {
			color = color1
		}
		for col := 1; col <= maxCol; col++ {
			c := b.cell(CellPosition{Row: row, Column: col})
			c.Style = cloneStyle(c.Style)
			if c.Style == nil {
				c.Style = &StyleSpec{}
			}
			c.Style.Fill = &FillSpec{Color: NormalizeColor(color), Pattern: "solid"}
		}
	}
}

// autoColumnWidths computes a width per populated column from the string
// form of every populated cell, including the header:
// min(maxLength+2, 50).
func autoColumnWidths(b *sheetBuilder) map[string]float64 {
	lengths := make(map[int]int)
	for pos, c := range b.cells {
		if c.Value == nil {
			continue
		}
		if l := len(displayString(c.Value)); l > lengths[pos.Column] {
			lengths[pos.Column] = l
		}
	}
	if len(lengths) == 0 {
		return nil
	}
	widths := make(map[string]float64, len(lengths))
	for col, l := range lengths {
		width := float64(l + autoWidthPadding)
		if width > autoWidthMax {
			width = autoWidthMax
		}
		widths[ColumnName(col)] = width
	}
	return widths
}

// displayString renders a scalar cell value the way it is displayed.
func displayString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers arrive as float64; render integral values without
		// a decimal point.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// cloneStyle deep-copies a style spec so per-cell amendments never leak
// into styles shared across cells.
func cloneStyle(s *StyleSpec) *StyleSpec {
	if s == nil {
		return nil
	}
	out := &StyleSpec{NumberFormat: s.NumberFormat}
	if s.Font != nil {
		f := *s.Font
		out.Font = &f
	}
	if s.Fill != nil {
		fl := *s.Fill
		out.Fill = &fl
	}
	if s.Border != nil {
		b := BorderSpec{}
		if s.Border.Left != nil {
			v := *s.Border.Left
			b.Left = &v
		}
		if s.Border.Right != nil {
			v := *s.Border.Right
			b.Right = &v
		}
		if s.Border.Top != nil {
			v := *s.Border.Top
			b.Top = &v
		}
		if s.Border.Bottom != nil {
			v := *s.Border.Bottom
			b.Bottom = &v
		}
		out.Border = &b
	}
	if s.Alignment != nil {
		a := *s.Alignment
		out.Alignment = &a
	}
	return out
}
