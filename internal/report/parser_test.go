package report

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

func generateFixture(t *testing.T, cfg *Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.xlsx")
	if _, err := testGenerator().GenerateReport(cfg, path); err != nil {
		t.Fatalf("fixture render failed: %v", err)
	}
	return path
}

func parseFixture(t *testing.T, path string, opts ...ParseOption) *WorkbookStructure {
	t.Helper()
	ws, err := NewStructureParser(zerolog.Nop()).ParseFile(path, opts...)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	return ws
}

func TestParseFileRoundTrip(t *testing.T) {
	path := generateFixture(t, &Config{Sheets: []SheetConfig{{
		Name:    "People",
		Headers: []HeaderConfig{{Title: "Name"}, {Title: "Age"}},
		Data:    [][]any{{"alice", 31.0}, {"bob", 27.0}},
	}}})

	ws := parseFixture(t, path)
	if len(ws.Sheets) != 1 || ws.Sheets[0].Name != "People" {
		t.Fatalf("sheets = %+v", ws.Sheets)
	}
	sheet := ws.Sheets[0]

	header := cellIn(t, &sheet, 1, 1)
	if header == nil || header.Type != CellTypeHeader || header.Value != "Name" {
		t.Errorf("A1 = %+v, want header Name", header)
	}
	age := cellIn(t, &sheet, 2, 2)
	if age == nil || age.Type != CellTypeData {
		t.Fatalf("B2 = %+v, want data cell", age)
	}
	if v, ok := age.Value.(float64); !ok || v != 31 {
		t.Errorf("B2 value = %v (%T), want float64 31", age.Value, age.Value)
	}
}

func TestParseFileNumericFirstRowIsHeader(t *testing.T) {
	// Row 1 is headers by default even when every cell is numeric.
	path := generateFixture(t, &Config{Sheets: []SheetConfig{{
		Name: "Numbers",
		Data: [][]any{{1.0, 2.0}, {3.0, 4.0}},
	}}})

	sheet := parseFixture(t, path).Sheets[0]
	if c := cellIn(t, &sheet, 1, 1); c.Type != CellTypeHeader {
		t.Errorf("numeric row 1 classified as %s, want header", c.Type)
	}
	if c := cellIn(t, &sheet, 2, 1); c.Type != CellTypeData {
		t.Errorf("row 2 classified as %s, want data", c.Type)
	}
}

func TestParseFileSingleRowIsHeader(t *testing.T) {
	path := generateFixture(t, &Config{Sheets: []SheetConfig{{
		Name: "One",
		Data: [][]any{{"only", "row"}},
	}}})

	sheet := parseFixture(t, path).Sheets[0]
	if c := cellIn(t, &sheet, 1, 1); c.Type != CellTypeHeader {
		t.Errorf("single-row sheet row 1 classified as %s, want header", c.Type)
	}
}

func TestParseFileHeaderOverride(t *testing.T) {
	path := generateFixture(t, &Config{Sheets: []SheetConfig{{
		Name: "Raw",
		Data: [][]any{{"label", "count"}, {"a", 1.0}},
	}}})

	// The default calls row 1 headers; the override forces data.
	sheet := parseFixture(t, path, WithSheetHeader("Raw", false)).Sheets[0]
	if c := cellIn(t, &sheet, 1, 1); c.Type != CellTypeData {
		t.Errorf("override ignored, row 1 type = %s", c.Type)
	}

	// An all-sheets override behaves the same.
	sheet = parseFixture(t, path, WithSheetHeader("", false)).Sheets[0]
	if c := cellIn(t, &sheet, 1, 1); c.Type != CellTypeData {
		t.Errorf("all-sheets override ignored, row 1 type = %s", c.Type)
	}
}

func TestParseFileStyles(t *testing.T) {
	path := generateFixture(t, &Config{Sheets: []SheetConfig{{
		Name:    "Styled",
		Headers: []HeaderConfig{{Title: "H"}},
	}}})

	sheet := parseFixture(t, path).Sheets[0]
	header := cellIn(t, &sheet, 1, 1)
	if header.Style == nil {
		t.Fatal("header style was not recovered")
	}
	if header.Style.Font == nil || !header.Style.Font.Bold {
		t.Error("recovered header font should be bold")
	}
	if header.Style.Fill == nil || header.Style.Fill.Color != "366092" {
		t.Errorf("recovered fill = %+v, want 366092", header.Style.Fill)
	}
}

func TestParseFileFreezePanesAndWidths(t *testing.T) {
	path := generateFixture(t, &Config{Sheets: []SheetConfig{{
		Name:       "Frozen",
		Headers:    []HeaderConfig{{Title: "Identifier"}},
		Data:       [][]any{{"v"}},
		Formatting: &FormattingConfig{FreezePanes: "A2"},
	}}})

	sheet := parseFixture(t, path).Sheets[0]
	if sheet.FreezePanes != "A2" {
		t.Errorf("freeze panes = %q, want A2", sheet.FreezePanes)
	}
	if w := sheet.ColumnWidths["A"]; w != 12 {
		t.Errorf("width A = %v, want 12", w)
	}
}

func TestParseFileMergesAndFormulas(t *testing.T) {
	ws := &WorkbookStructure{Sheets: []SheetStructure{{
		Name: "Calc",
		Cells: []CellDefinition{
			{Position: CellPosition{Row: 1, Column: 1}, Type: CellTypeData, Value: 1.0},
			{Position: CellPosition{Row: 1, Column: 2}, Type: CellTypeData, Value: 2.0},
			{Position: CellPosition{Row: 2, Column: 1}, Type: CellTypeFormula, Value: 3.0, Formula: "SUM(A1:B1)"},
			{
				Position:   CellPosition{Row: 4, Column: 1},
				Type:       CellTypeMerge,
				Value:      "title",
				MergeRange: &CellRange{Start: CellPosition{Row: 4, Column: 1}, End: CellPosition{Row: 4, Column: 2}},
			},
		},
	}}}
	path := filepath.Join(t.TempDir(), "calc.xlsx")
	if _, err := testGenerator().RenderStructure(ws, path); err != nil {
		t.Fatalf("fixture render failed: %v", err)
	}

	sheet := parseFixture(t, path).Sheets[0]

	formula := cellIn(t, &sheet, 2, 1)
	if formula == nil || formula.Type != CellTypeFormula || formula.Formula == "" {
		t.Errorf("A2 = %+v, want formula cell", formula)
	}

	anchor := cellIn(t, &sheet, 4, 1)
	if anchor == nil || anchor.MergeRange == nil {
		t.Fatal("merge range was not recovered")
	}
	if got := anchor.MergeRange.Address(); got != "A4:B4" {
		t.Errorf("merge range = %q, want A4:B4", got)
	}
}

func TestParseFileSheetProperties(t *testing.T) {
	path := generateFixture(t, &Config{Sheets: []SheetConfig{{
		Name:       "Tabbed",
		Properties: &SheetProperties{TabColor: "FF0000", Zoom: 80},
		Data:       [][]any{{"x"}},
	}}})

	sheet := parseFixture(t, path).Sheets[0]
	if sheet.TabColor != "FF0000" {
		t.Errorf("tab color = %q, want FF0000", sheet.TabColor)
	}
	if sheet.Zoom != 80 {
		t.Errorf("zoom = %d, want 80", sheet.Zoom)
	}
}

func TestParseFileDocProps(t *testing.T) {
	path := generateFixture(t, &Config{
		Properties: &WorkbookProperties{Title: "Annual", Creator: "system"},
		Sheets:     []SheetConfig{{Name: "S", Data: [][]any{{"x"}}}},
	})

	ws := parseFixture(t, path)
	if ws.Properties == nil || ws.Properties.Title != "Annual" || ws.Properties.Creator != "system" {
		t.Errorf("properties = %+v", ws.Properties)
	}
}

func TestParseFileComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments.xlsx")
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "v"); err != nil {
		t.Fatal(err)
	}
	err := f.AddComment("Sheet1", excelize.Comment{
		Cell:      "A1",
		Author:    "System",
		Paragraph: []excelize.RichTextRun{{Text: "check this"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	sheet := parseFixture(t, path).Sheets[0]
	if c := cellIn(t, &sheet, 1, 1); c.Comment != "check this" {
		t.Errorf("comment = %q, want %q", c.Comment, "check this")
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := NewStructureParser(zerolog.Nop()).ParseFile(filepath.Join(t.TempDir(), "absent.xlsx"))
	if err == nil {
		t.Fatal("parsing a missing file should fail")
	}
}

func TestParseJSONAndExportJSON(t *testing.T) {
	ws := &WorkbookStructure{Sheets: []SheetStructure{{
		Name: "S",
		Cells: []CellDefinition{
			{Position: CellPosition{Row: 1, Column: 1}, Type: CellTypeData, Value: "x"},
		},
		FreezePanes: "A2",
	}}}

	data, err := ExportJSON(ws)
	if err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}
	back, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	if len(back.Sheets) != 1 || back.Sheets[0].Name != "S" {
		t.Fatalf("round-tripped sheets = %+v", back.Sheets)
	}
	if back.Sheets[0].FreezePanes != "A2" {
		t.Errorf("freeze panes lost in round trip")
	}
	if back.Sheets[0].Cells[0].Value != "x" {
		t.Errorf("cell value lost in round trip")
	}
}

func TestParseJSONInvalid(t *testing.T) {
	if _, err := ParseJSON([]byte("{not json")); err == nil {
		t.Error("malformed JSON should fail")
	}
	if _, err := ParseJSON([]byte(`{"sheets": []}`)); err == nil {
		t.Error("structure without sheets should fail")
	}
}
