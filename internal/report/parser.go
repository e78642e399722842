package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// widthEpsilon separates explicitly-set column widths from the sheet
// default reported by excelize for untouched columns.
const widthEpsilon = 0.01

// StructureParser extracts the structural model back out of an existing
// .xlsx file: values, formulas, styles, merges, dimensions, freeze
// panes, comments, hyperlinks and document properties.
type StructureParser struct {
	logger zerolog.Logger
}

// NewStructureParser creates a workbook structure parser.
func NewStructureParser(logger zerolog.Logger) *StructureParser {
	return &StructureParser{
		logger: logger.With().Str("component", "parser").Logger(),
	}
}

type parseOptions struct {
	// headerOverride maps sheet name to an explicit header decision,
	// replacing the default row-1 classification for that sheet.
	headerOverride map[string]bool
}

// ParseOption adjusts how a workbook is parsed.
type ParseOption func(*parseOptions)

// WithSheetHeader overrides the row-1 header rule for one sheet: when
// hasHeader is true row 1 is classified as headers, otherwise as data.
// An empty sheet name applies the override to every sheet without its
// own entry.
func WithSheetHeader(sheet string, hasHeader bool) ParseOption {
	return func(o *parseOptions) {
		if o.headerOverride == nil {
			o.headerOverride = make(map[string]bool)
		}
		o.headerOverride[sheet] = hasHeader
	}
}

// ParseFile reads an .xlsx file into a WorkbookStructure.
func (p *StructureParser) ParseFile(path string, opts ...ParseOption) (*WorkbookStructure, error) {
	var options parseOptions
	for _, opt := range opts {
		opt(&options)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %v", ErrParse, err)
	}
	defer f.Close()

	ws := &WorkbookStructure{}
	styleCache := make(map[int]*StyleSpec)
	for _, name := range f.GetSheetList() {
		sheet, err := p.parseSheet(f, name, &options, styleCache)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrParse, name, err)
		}
		ws.Sheets = append(ws.Sheets, *sheet)
	}

	if props, err := f.GetDocProps(); err == nil && props != nil {
		if props.Title != "" || props.Creator != "" || props.Description != "" ||
			props.Subject != "" || props.Keywords != "" {
			ws.Properties = &WorkbookProperties{
				Title:       props.Title,
				Creator:     props.Creator,
				Description: props.Description,
				Subject:     props.Subject,
				Keywords:    props.Keywords,
			}
		}
	}
	return ws, nil
}

func (p *StructureParser) parseSheet(f *excelize.File, name string, options *parseOptions, styleCache map[int]*StyleSpec) (*SheetStructure, error) {
	out := &SheetStructure{Name: name}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, err
	}

	// Row 1 is the header row unless an override says otherwise.
	hasHeader, overridden := options.headerOverride[name]
	if !overridden {
		hasHeader, overridden = options.headerOverride[""]
	}
	if !overridden {
		hasHeader = true
	}

	cells := make(map[CellPosition]*CellDefinition)
	cellAt := func(pos CellPosition) *CellDefinition {
		if c, ok := cells[pos]; ok {
			return c
		}
		c := &CellDefinition{Position: pos, Type: CellTypeEmpty}
		cells[pos] = c
		return c
	}

	maxRow := len(rows)
	maxCol := 0
	for r, row := range rows {
		if len(row) > maxCol {
			maxCol = len(row)
		}
		for c, raw := range row {
			pos := CellPosition{Row: r + 1, Column: c + 1}
			addr := pos.Address()

			// A formula cell may carry no cached value, so the formula is
			// probed before empty cells are skipped.
			formula, _ := f.GetCellFormula(name, addr)
			if raw == "" && formula == "" {
				continue
			}

			cell := cellAt(pos)
			if raw != "" {
				cell.Value = parseCellValue(raw)
			}
			if hasHeader && pos.Row == 1 {
				cell.Type = CellTypeHeader
			} else {
				cell.Type = CellTypeData
			}
			if formula != "" {
				cell.Type = CellTypeFormula
				cell.Formula = formula
			}

			if styleID, err := f.GetCellStyle(name, addr); err == nil && styleID > 0 {
				spec, ok := styleCache[styleID]
				if !ok {
					spec = p.parseStyle(f, styleID)
					styleCache[styleID] = spec
				}
				cell.Style = spec
			}

			if linked, target, err := f.GetCellHyperLink(name, addr); err == nil && linked {
				cell.Hyperlink = target
			}
		}
	}

	merges, err := f.GetMergeCells(name)
	if err != nil {
		return nil, err
	}
	for _, m := range merges {
		rng, err := ParseRange(m.GetStartAxis() + ":" + m.GetEndAxis())
		if err != nil {
			continue
		}
		anchor := cellAt(rng.Start)
		r := rng
		anchor.MergeRange = &r
		if anchor.Type == CellTypeEmpty {
			anchor.Type = CellTypeMerge
		}
	}

	comments, err := f.GetComments(name)
	if err == nil {
		for _, comment := range comments {
			pos, err := ParseAddress(comment.Cell)
			if err != nil {
				continue
			}
			var text strings.Builder
			for _, run := range comment.Paragraph {
				text.WriteString(run.Text)
			}
			cellAt(pos).Comment = text.String()
		}
	}

	out.ColumnWidths = p.parseColumnWidths(f, name, maxCol)
	out.RowHeights = p.parseRowHeights(f, name, maxRow)

	if panes, err := f.GetPanes(name); err == nil && panes.Freeze {
		out.FreezePanes = panes.TopLeftCell
	}
	if props, err := f.GetSheetProps(name); err == nil && props.TabColorRGB != nil {
		out.TabColor = normalizeReadColor(*props.TabColorRGB)
	}
	if view, err := f.GetSheetView(name, 0); err == nil && view.ZoomScale != nil {
		out.Zoom = int(*view.ZoomScale)
	}

	out.Cells = orderedCells(cells)
	return out, nil
}

// parseColumnWidths records only widths that differ from the sheet
// default. The default is probed on a column far beyond the used range.
func (p *StructureParser) parseColumnWidths(f *excelize.File, name string, maxCol int) map[string]float64 {
	baseline, err := f.GetColWidth(name, "XFD")
	if err != nil {
		return nil
	}
	var widths map[string]float64
	for col := 1; col <= maxCol; col++ {
		letter := ColumnName(col)
		width, err := f.GetColWidth(name, letter)
		if err != nil {
			continue
		}
		if diff := width - baseline; diff > widthEpsilon || diff < -widthEpsilon {
			if widths == nil {
				widths = make(map[string]float64)
			}
			widths[letter] = width
		}
	}
	return widths
}

func (p *StructureParser) parseRowHeights(f *excelize.File, name string, maxRow int) map[int]float64 {
	baseline, err := f.GetRowHeight(name, maxRow+1000)
	if err != nil {
		return nil
	}
	var heights map[int]float64
	for row := 1; row <= maxRow; row++ {
		height, err := f.GetRowHeight(name, row)
		if err != nil {
			continue
		}
		if diff := height - baseline; diff > widthEpsilon || diff < -widthEpsilon {
			if heights == nil {
				heights = make(map[int]float64)
			}
			heights[row] = height
		}
	}
	return heights
}

// parseStyle converts an excelize style back into a StyleSpec, keeping
// only the axes the style actually sets.
func (p *StructureParser) parseStyle(f *excelize.File, styleID int) *StyleSpec {
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return nil
	}

	spec := &StyleSpec{}
	if style.Font != nil {
		spec.Font = &FontSpec{
			Name:      style.Font.Family,
			Size:      style.Font.Size,
			Bold:      style.Font.Bold,
			Italic:    style.Font.Italic,
			Underline: style.Font.Underline,
		}
		if style.Font.Color != "" {
			spec.Font.Color = normalizeReadColor(style.Font.Color)
		}
	}
	if style.Fill.Type == "pattern" && style.Fill.Pattern == 1 && len(style.Fill.Color) > 0 {
		spec.Fill = &FillSpec{
			Color:   normalizeReadColor(style.Fill.Color[0]),
			Pattern: "solid",
		}
	}
	if len(style.Border) > 0 {
		border := &BorderSpec{}
		for _, b := range style.Border {
			side := &BorderSide{
				Style: borderStyleName(b.Style),
				Color: normalizeReadColor(b.Color),
			}
			switch b.Type {
			case "left":
				border.Left = side
			case "right":
				border.Right = side
			case "top":
				border.Top = side
			case "bottom":
				border.Bottom = side
			}
		}
		if border.Left != nil || border.Right != nil || border.Top != nil || border.Bottom != nil {
			spec.Border = border
		}
	}
	if style.Alignment != nil {
		spec.Alignment = &AlignmentSpec{
			Horizontal:   style.Alignment.Horizontal,
			Vertical:     style.Alignment.Vertical,
			WrapText:     style.Alignment.WrapText,
			TextRotation: style.Alignment.TextRotation,
			Indent:       style.Alignment.Indent,
			ShrinkToFit:  style.Alignment.ShrinkToFit,
		}
	}
	if style.CustomNumFmt != nil {
		spec.NumberFormat = *style.CustomNumFmt
	}

	if spec.Font == nil && spec.Fill == nil && spec.Border == nil &&
		spec.Alignment == nil && spec.NumberFormat == "" {
		return nil
	}
	return spec
}

// ParseJSON decodes a workbook structure from its JSON form.
func ParseJSON(data []byte) (*WorkbookStructure, error) {
	var ws WorkbookStructure
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(ws.Sheets) == 0 {
		return nil, fmt.Errorf("%w: structure has no sheets", ErrParse)
	}
	return &ws, nil
}

// ExportJSON encodes a workbook structure to indented JSON.
func ExportJSON(ws *WorkbookStructure) ([]byte, error) {
	data, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode structure: %w", err)
	}
	return data, nil
}

// parseCellValue recovers a typed value from the string form excelize
// returns: numbers become float64, booleans bool, everything else stays
// a string.
func parseCellValue(raw string) any {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	switch raw {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	return raw
}

// normalizeReadColor handles the 8-character ARGB form excelize may
// return by dropping the alpha channel before normalizing.
func normalizeReadColor(color string) string {
	color = strings.TrimPrefix(color, "#")
	if len(color) == 8 {
		color = color[2:]
	}
	return NormalizeColor(color)
}

func orderedCells(cells map[CellPosition]*CellDefinition) []CellDefinition {
	b := &sheetBuilder{cells: cells}
	return b.ordered()
}
