package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const defaultChartPosition = "E2"

// Generator renders report configurations and workbook structures to
// .xlsx files. Chart-level problems never fail a render: they are
// recorded as warnings and the chart is skipped.
type Generator struct {
	logger   zerolog.Logger
	warnings []string
}

// NewGenerator creates a report generator.
func NewGenerator(logger zerolog.Logger) *Generator {
	return &Generator{
		logger: logger.With().Str("component", "report").Logger(),
	}
}

// Warnings returns the warnings accumulated by the most recent render.
func (g *Generator) Warnings() []string {
	return g.warnings
}

func (g *Generator) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	g.warnings = append(g.warnings, msg)
	g.logger.Warn().Msg(msg)
}

// GenerateReport compiles a report configuration and renders it to
// outputPath. It returns the final path, which always carries a .xlsx
// extension.
func (g *Generator) GenerateReport(cfg *Config, outputPath string) (string, error) {
	return g.RenderStructure(Build(cfg), outputPath)
}

// RenderStructure writes a workbook structure to outputPath. Sheets are
// rendered in declaration order; per-sheet content is applied in a fixed
// order: properties, cells, merges, dimensions, freeze panes, charts.
func (g *Generator) RenderStructure(ws *WorkbookStructure, outputPath string) (string, error) {
	if ws == nil || len(ws.Sheets) == 0 {
		return "", fmt.Errorf("%w: workbook has no sheets", ErrRender)
	}
	g.warnings = nil

	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}
	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	styles := make(map[string]int)
	seen := make(map[string]bool)
	for i, sheet := range ws.Sheets {
		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		// excelize reuses an existing sheet on NewSheet, which would
		// silently merge two sheets' content.
		if seen[name] {
			return "", fmt.Errorf("%w: duplicate sheet name %q", ErrRender, name)
		}
		seen[name] = true
		if i == 0 {
			if name != defaultSheetName {
				if err := f.SetSheetName(defaultSheetName, name); err != nil {
					return "", fmt.Errorf("failed to rename sheet %q: %w", name, err)
				}
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return "", fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := g.renderSheet(f, name, &sheet, styles); err != nil {
			return "", fmt.Errorf("failed to render sheet %q: %w", name, err)
		}
	}

	if ws.Properties != nil {
		if err := f.SetDocProps(&excelize.DocProperties{
			Title:       ws.Properties.Title,
			Creator:     ws.Properties.Creator,
			Description: ws.Properties.Description,
			Subject:     ws.Properties.Subject,
			Keywords:    ws.Properties.Keywords,
		}); err != nil {
			return "", fmt.Errorf("failed to set document properties: %w", err)
		}
	}

	f.SetActiveSheet(0)

	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}
	return outputPath, nil
}

func (g *Generator) renderSheet(f *excelize.File, name string, sheet *SheetStructure, styles map[string]int) error {
	if sheet.TabColor != "" {
		color := NormalizeColor(sheet.TabColor)
		if err := f.SetSheetProps(name, &excelize.SheetPropsOptions{TabColorRGB: &color}); err != nil {
			return fmt.Errorf("failed to set tab color: %w", err)
		}
	}
	if sheet.Zoom > 0 {
		zoom := float64(sheet.Zoom)
		if err := f.SetSheetView(name, 0, &excelize.ViewOptions{ZoomScale: &zoom}); err != nil {
			return fmt.Errorf("failed to set zoom: %w", err)
		}
	}

	for _, cell := range sheet.Cells {
		if err := g.renderCell(f, name, &cell, styles); err != nil {
			return err
		}
	}

	// Merges after values so the anchor cell content is already in place.
	for _, cell := range sheet.Cells {
		if cell.MergeRange == nil {
			continue
		}
		start := cell.MergeRange.Start.Address()
		end := cell.MergeRange.End.Address()
		if err := f.MergeCell(name, start, end); err != nil {
			return fmt.Errorf("failed to merge %s:%s: %w", start, end, err)
		}
	}

	for col, width := range sheet.ColumnWidths {
		if err := f.SetColWidth(name, col, col, width); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", col, err)
		}
	}
	for row, height := range sheet.RowHeights {
		if err := f.SetRowHeight(name, row, height); err != nil {
			return fmt.Errorf("failed to set height of row %d: %w", row, err)
		}
	}

	if sheet.FreezePanes != "" {
		if err := g.applyFreezePanes(f, name, sheet.FreezePanes); err != nil {
			return err
		}
	}

	for _, chart := range sheet.Charts {
		g.addChart(f, name, chart)
	}
	return nil
}

func (g *Generator) renderCell(f *excelize.File, sheet string, cell *CellDefinition, styles map[string]int) error {
	addr := cell.Position.Address()

	if cell.Value != nil {
		if err := f.SetCellValue(sheet, addr, cell.Value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", addr, err)
		}
	}
	if cell.Formula != "" {
		if err := f.SetCellFormula(sheet, addr, cell.Formula); err != nil {
			return fmt.Errorf("failed to set formula at %s: %w", addr, err)
		}
	}

	if cell.Style != nil {
		id, err := g.styleID(f, cell.Style, styles)
		if err != nil {
			return fmt.Errorf("failed to create style for %s: %w", addr, err)
		}
		if err := f.SetCellStyle(sheet, addr, addr, id); err != nil {
			return fmt.Errorf("failed to style cell %s: %w", addr, err)
		}
	}

	if cell.Comment != "" {
		err := f.AddComment(sheet, excelize.Comment{
			Cell:      addr,
			Author:    "System",
			Paragraph: []excelize.RichTextRun{{Text: cell.Comment}},
		})
		if err != nil {
			return fmt.Errorf("failed to add comment at %s: %w", addr, err)
		}
	}
	if cell.Hyperlink != "" {
		if err := f.SetCellHyperLink(sheet, addr, cell.Hyperlink, "External"); err != nil {
			return fmt.Errorf("failed to set hyperlink at %s: %w", addr, err)
		}
	}
	if cell.DataValidation != nil && cell.DataValidation.Type == "list" {
		dv := excelize.NewDataValidation(true)
		dv.Sqref = addr
		if err := dv.SetDropList(cell.DataValidation.AllowedValues); err != nil {
			return fmt.Errorf("failed to build validation at %s: %w", addr, err)
		}
		if err := f.AddDataValidation(sheet, dv); err != nil {
			return fmt.Errorf("failed to add validation at %s: %w", addr, err)
		}
	}
	return nil
}

// styleID resolves a style spec to an excelize style id, reusing ids for
// identical specs so large banded sheets stay within Excel's style limit.
func (g *Generator) styleID(f *excelize.File, spec *StyleSpec, styles map[string]int) (int, error) {
	resolved := spec.Resolve()
	key, err := json.Marshal(resolved)
	if err != nil {
		return 0, err
	}
	if id, ok := styles[string(key)]; ok {
		return id, nil
	}
	id, err := f.NewStyle(resolved.toExcelize())
	if err != nil {
		return 0, err
	}
	styles[string(key)] = id
	return id, nil
}

// applyFreezePanes freezes rows above and columns left of the given
// anchor cell. "B2" freezes row 1 and column A.
func (g *Generator) applyFreezePanes(f *excelize.File, sheet, anchor string) error {
	pos, err := ParseAddress(anchor)
	if err != nil {
		return fmt.Errorf("invalid freeze panes cell %q: %w", anchor, err)
	}
	xSplit := pos.Column - 1
	ySplit := pos.Row - 1
	if xSplit == 0 && ySplit == 0 {
		return nil
	}
	activePane := "bottomLeft"
	switch {
	case xSplit > 0 && ySplit > 0:
		activePane = "bottomRight"
	case xSplit > 0:
		activePane = "topRight"
	}
	err = f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      xSplit,
		YSplit:      ySplit,
		TopLeftCell: anchor,
		ActivePane:  activePane,
	})
	if err != nil {
		return fmt.Errorf("failed to freeze panes at %s: %w", anchor, err)
	}
	return nil
}

// addChart embeds one chart. A missing or malformed data range and an
// unsupported chart type degrade to a warning; the rest of the workbook
// is unaffected.
func (g *Generator) addChart(f *excelize.File, sheet string, chart ChartDescriptor) {
	chartType, ok := chartTypeOf(chart.Type)
	if !ok {
		g.warn("unsupported chart type %q on sheet %q, chart skipped", chart.Type, sheet)
		return
	}

	values, err := chartValuesRef(sheet, chart.DataRange)
	if err != nil {
		g.warn("could not add chart %q on sheet %q: %v", chart.Title, sheet, err)
		return
	}

	spec := &excelize.Chart{
		Type: chartType,
		Series: []excelize.ChartSeries{
			{Name: chart.Title, Values: values},
		},
	}
	if chart.Title != "" {
		spec.Title = []excelize.RichTextRun{{Text: chart.Title}}
	}
	if chartType != excelize.Pie {
		if chart.XAxisTitle != "" {
			spec.XAxis = excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: chart.XAxisTitle}}}
		}
		if chart.YAxisTitle != "" {
			spec.YAxis = excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: chart.YAxisTitle}}}
		}
	}

	position := chart.Position
	if position == "" {
		position = defaultChartPosition
	}
	if err := f.AddChart(sheet, position, spec); err != nil {
		g.warn("could not add chart %q on sheet %q: %v", chart.Title, sheet, err)
	}
}

// chartTypeOf maps configuration chart type names to excelize chart
// types. An empty type means bar.
func chartTypeOf(name string) (excelize.ChartType, bool) {
	switch strings.ToLower(name) {
	case "", "bar":
		return excelize.Bar, true
	case "line":
		return excelize.Line, true
	case "pie":
		return excelize.Pie, true
	default:
		return 0, false
	}
}

// chartValuesRef turns a data range like "Sheet1!A1:C6" into an absolute
// series reference. A range without a sheet qualifier is bound to the
// sheet the chart lives on.
func chartValuesRef(sheet, dataRange string) (string, error) {
	if dataRange == "" {
		return "", fmt.Errorf("chart has no data range")
	}
	refSheet := sheet
	rangePart := dataRange
	if idx := strings.Index(dataRange, "!"); idx >= 0 {
		refSheet = dataRange[:idx]
		rangePart = dataRange[idx+1:]
	}
	rng, err := ParseRange(rangePart)
	if err != nil {
		return "", fmt.Errorf("invalid data range %q: %w", dataRange, err)
	}
	return fmt.Sprintf("%s!$%s$%d:$%s$%d",
		refSheet,
		ColumnName(rng.Start.Column), rng.Start.Row,
		ColumnName(rng.End.Column), rng.End.Row,
	), nil
}
