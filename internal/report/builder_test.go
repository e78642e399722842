package report

import "testing"

func cellIn(t *testing.T, sheet *SheetStructure, row, col int) *CellDefinition {
	t.Helper()
	for i := range sheet.Cells {
		if sheet.Cells[i].Position == (CellPosition{Row: row, Column: col}) {
			return &sheet.Cells[i]
		}
	}
	return nil
}

func TestBuildEmptyConfig(t *testing.T) {
	for _, cfg := range []*Config{nil, {}, {Sheets: []SheetConfig{}}} {
		ws := Build(cfg)
		if len(ws.Sheets) != 1 {
			t.Fatalf("sheet count = %d, want 1", len(ws.Sheets))
		}
		if ws.Sheets[0].Name != "Sheet1" {
			t.Errorf("sheet name = %q, want Sheet1", ws.Sheets[0].Name)
		}
		if len(ws.Sheets[0].Cells) != 0 {
			t.Errorf("empty config produced %d cells", len(ws.Sheets[0].Cells))
		}
	}
}

func TestBuildHeaders(t *testing.T) {
	cfg := &Config{Sheets: []SheetConfig{{
		Name: "Report",
		Headers: []HeaderConfig{
			{Title: "Name"},
			{Title: "Value", Style: &StyleSpec{Font: &FontSpec{Italic: true}}},
			{},
		},
	}}}
	sheet := Build(cfg).Sheets[0]

	first := cellIn(t, &sheet, 1, 1)
	if first == nil || first.Type != CellTypeHeader || first.Value != "Name" {
		t.Fatalf("header cell A1 = %+v", first)
	}
	if first.Style == nil || first.Style.Font == nil || !first.Style.Font.Bold {
		t.Error("default header style should be bold")
	}
	if first.Style.Fill == nil || first.Style.Fill.Color != "366092" {
		t.Errorf("default header fill = %+v, want 366092", first.Style.Fill)
	}
	if first.Style.Font.Color != "FFFFFF" {
		t.Errorf("default header font color = %q, want FFFFFF", first.Style.Font.Color)
	}

	second := cellIn(t, &sheet, 1, 2)
	if second.Style.Font == nil || !second.Style.Font.Italic {
		t.Error("explicit header style was not kept")
	}
	if second.Style.Fill != nil {
		t.Error("explicit header style should not inherit the default fill")
	}

	third := cellIn(t, &sheet, 1, 3)
	if third.Value != "Column 3" {
		t.Errorf("untitled header = %v, want Column 3", third.Value)
	}
}

func TestBuildDataPlacement(t *testing.T) {
	cfg := &Config{Sheets: []SheetConfig{{
		Headers: []HeaderConfig{{Title: "A"}, {Title: "B"}},
		Data:    [][]any{{"x", 1.0}, {"y", 2.0}},
	}}}
	sheet := Build(cfg).Sheets[0]

	if c := cellIn(t, &sheet, 2, 1); c == nil || c.Value != "x" || c.Type != CellTypeData {
		t.Errorf("A2 = %+v, want data cell x", c)
	}
	if c := cellIn(t, &sheet, 3, 2); c == nil || c.Value != 2.0 {
		t.Errorf("B3 = %+v, want 2", c)
	}
}

func TestBuildDataWithoutHeadersStartsAtRowOne(t *testing.T) {
	cfg := &Config{Sheets: []SheetConfig{{
		Data: [][]any{{"top"}},
	}}}
	sheet := Build(cfg).Sheets[0]
	if c := cellIn(t, &sheet, 1, 1); c == nil || c.Value != "top" {
		t.Errorf("A1 = %+v, want top", c)
	}
}

func TestBuildColumnDataStyle(t *testing.T) {
	cfg := &Config{Sheets: []SheetConfig{{
		Headers: []HeaderConfig{
			{Title: "Amount", DataStyle: &StyleSpec{NumberFormat: "#,##0.00"}},
			{Title: "Note"},
		},
		Data: [][]any{{1200.5, "ok"}},
	}}}
	sheet := Build(cfg).Sheets[0]

	amount := cellIn(t, &sheet, 2, 1)
	if amount.Style == nil || amount.Style.NumberFormat != "#,##0.00" {
		t.Errorf("data style not applied to column: %+v", amount.Style)
	}
	note := cellIn(t, &sheet, 2, 2)
	if note.Style != nil {
		t.Error("column without data_style should leave cells unstyled")
	}
}

func TestBuildAlternatingRows(t *testing.T) {
	cfg := &Config{Sheets: []SheetConfig{{
		Headers: []HeaderConfig{{Title: "A"}, {Title: "B"}},
		Data:    [][]any{{"r2a"}, {"r3a", "r3b"}, {"r4a", "r4b"}},
		Formatting: &FormattingConfig{AlternatingRows: &AlternatingRows{
			StartRow: 2, EndRow: 4, Color1: "DDDDDD", Color2: "EEEEEE",
		}},
	}}}
	sheet := Build(cfg).Sheets[0]

	// Even rows take Color1, odd rows Color2.
	even := cellIn(t, &sheet, 2, 1)
	if even.Style == nil || even.Style.Fill == nil || even.Style.Fill.Color != "DDDDDD" {
		t.Errorf("row 2 fill = %+v, want DDDDDD", even.Style)
	}
	odd := cellIn(t, &sheet, 3, 2)
	if odd.Style.Fill.Color != "EEEEEE" {
		t.Errorf("row 3 fill = %q, want EEEEEE", odd.Style.Fill.Color)
	}

	// Row 2 has no value in column B, but the band still covers it.
	band := cellIn(t, &sheet, 2, 2)
	if band == nil {
		t.Fatal("band did not create a cell for the unpopulated position")
	}
	if band.Type != CellTypeEmpty || band.Value != nil {
		t.Errorf("band cell = %+v, want empty cell", band)
	}
	if band.Style == nil || band.Style.Fill == nil || band.Style.Fill.Color != "DDDDDD" {
		t.Errorf("band cell fill = %+v, want DDDDDD", band.Style)
	}

	// The header row sits above the band.
	if h := cellIn(t, &sheet, 1, 1); h.Style.Fill.Color != "366092" {
		t.Error("band leaked into the header row")
	}
}

func TestBuildAlternatingRowsOverridesFillOnly(t *testing.T) {
	cfg := &Config{Sheets: []SheetConfig{{
		Headers: []HeaderConfig{{
			Title:     "A",
			DataStyle: &StyleSpec{Font: &FontSpec{Bold: true}, Fill: &FillSpec{Color: "FF0000"}},
		}},
		Data: [][]any{{"v"}},
		Formatting: &FormattingConfig{AlternatingRows: &AlternatingRows{
			StartRow: 2, EndRow: 2, Color1: "00FF00",
		}},
	}}}
	sheet := Build(cfg).Sheets[0]

	c := cellIn(t, &sheet, 2, 1)
	if c.Style.Fill.Color != "00FF00" {
		t.Errorf("fill = %q, want band color 00FF00", c.Style.Fill.Color)
	}
	if c.Style.Font == nil || !c.Style.Font.Bold {
		t.Error("band overwrote the font axis")
	}
}

func TestBuildAlternatingRowsSharedStyleNotMutated(t *testing.T) {
	style := &StyleSpec{Fill: &FillSpec{Color: "FF0000"}}
	cfg := &Config{Sheets: []SheetConfig{{
		Headers: []HeaderConfig{{Title: "A", DataStyle: style}},
		Data:    [][]any{{"r2"}, {"r3"}},
		Formatting: &FormattingConfig{AlternatingRows: &AlternatingRows{
			StartRow: 2, EndRow: 2, Color1: "00FF00",
		}},
	}}}
	sheet := Build(cfg).Sheets[0]

	if style.Fill.Color != "FF0000" {
		t.Error("shared data style was mutated in place")
	}
	// Row 3 is outside the band and keeps the column style.
	if c := cellIn(t, &sheet, 3, 1); c.Style.Fill.Color != "FF0000" {
		t.Errorf("row 3 fill = %q, want FF0000", c.Style.Fill.Color)
	}
}

func TestBuildBorders(t *testing.T) {
	cfg := &Config{Sheets: []SheetConfig{{
		Data: [][]any{{"a"}},
		Formatting: &FormattingConfig{Borders: &BorderRange{
			Range: "A1:B2", Style: "medium",
		}},
	}}}
	sheet := Build(cfg).Sheets[0]

	for _, pos := range []CellPosition{{1, 1}, {1, 2}, {2, 1}, {2, 2}} {
		c := cellIn(t, &sheet, pos.Row, pos.Column)
		if c == nil || c.Style == nil || c.Style.Border == nil {
			t.Fatalf("cell %s has no border", pos.Address())
		}
		if c.Style.Border.Left.Style != "medium" {
			t.Errorf("cell %s border = %q, want medium", pos.Address(), c.Style.Border.Left.Style)
		}
	}
}

func TestBuildAutoColumnWidths(t *testing.T) {
	long := make([]byte, 120)
	for i := range long {
		long[i] = 'x'
	}
	cfg := &Config{Sheets: []SheetConfig{{
		Headers: []HeaderConfig{{Title: "Name"}, {Title: "Description"}},
		Data:    [][]any{{"ab", string(long)}},
	}}}
	sheet := Build(cfg).Sheets[0]

	// Column A: max("Name"=4, "ab"=2) + 2 = 6.
	if w := sheet.ColumnWidths["A"]; w != 6 {
		t.Errorf("width A = %v, want 6", w)
	}
	// Column B caps at 50.
	if w := sheet.ColumnWidths["B"]; w != 50 {
		t.Errorf("width B = %v, want 50", w)
	}
}

func TestBuildAutoColumnWidthsDisabled(t *testing.T) {
	off := false
	cfg := &Config{Sheets: []SheetConfig{{
		Headers:           []HeaderConfig{{Title: "Name"}},
		AutoAdjustColumns: &off,
	}}}
	sheet := Build(cfg).Sheets[0]
	if sheet.ColumnWidths != nil {
		t.Errorf("widths computed with auto adjust off: %v", sheet.ColumnWidths)
	}
}

func TestBuildChartRangeQualified(t *testing.T) {
	cfg := &Config{Sheets: []SheetConfig{{
		Name: "Stats",
		Charts: []ChartDescriptor{
			{Type: "bar", DataRange: "A1:B5"},
			{Type: "line", DataRange: "Other!C1:C9"},
		},
	}}}
	sheet := Build(cfg).Sheets[0]

	if got := sheet.Charts[0].DataRange; got != "Stats!A1:B5" {
		t.Errorf("unqualified range = %q, want Stats!A1:B5", got)
	}
	if got := sheet.Charts[1].DataRange; got != "Other!C1:C9" {
		t.Errorf("qualified range was rewritten: %q", got)
	}
}

func TestBuildFreezePanesAndProperties(t *testing.T) {
	cfg := &Config{
		Properties: &WorkbookProperties{Title: "Monthly"},
		Sheets: []SheetConfig{{
			Name:       "Data",
			Properties: &SheetProperties{TabColor: "#ff0000", Zoom: 85},
			Formatting: &FormattingConfig{FreezePanes: "B2"},
		}},
	}
	ws := Build(cfg)

	if ws.Properties == nil || ws.Properties.Title != "Monthly" {
		t.Error("workbook properties were dropped")
	}
	sheet := ws.Sheets[0]
	if sheet.FreezePanes != "B2" {
		t.Errorf("freeze panes = %q, want B2", sheet.FreezePanes)
	}
	if sheet.TabColor != "FF0000" {
		t.Errorf("tab color = %q, want FF0000", sheet.TabColor)
	}
	if sheet.Zoom != 85 {
		t.Errorf("zoom = %d, want 85", sheet.Zoom)
	}
}

func TestBuildUnnamedSheetsNumbered(t *testing.T) {
	cfg := &Config{Sheets: []SheetConfig{{}, {}}}
	ws := Build(cfg)
	if ws.Sheets[0].Name != "Sheet1" || ws.Sheets[1].Name != "Sheet2" {
		t.Errorf("sheet names = %q, %q", ws.Sheets[0].Name, ws.Sheets[1].Name)
	}
}

func TestDisplayString(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{"text", "text"},
		{5000.0, "5000"},
		{3.14, "3.14"},
		{true, "true"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := displayString(tt.value); got != tt.want {
			t.Errorf("displayString(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestBuildStylePreset(t *testing.T) {
	cfg := &Config{
		Styles: []NamedStyle{
			{Name: "money", Style: StyleSpec{
				Fill:         &FillSpec{Color: "FFC000"},
				NumberFormat: "#,##0.00",
			}},
		},
		Sheets: []SheetConfig{
			{
				Headers: []HeaderConfig{
					{Title: "Amount", DataStyle: &StyleSpec{Preset: "money"}},
				},
				Data: [][]any{{12.5}},
			},
		},
	}

	ws := Build(cfg)
	c := cellIn(t, &ws.Sheets[0], 2, 1)
	if c == nil || c.Style == nil {
		t.Fatal("data cell should carry the preset style")
	}
	if c.Style.NumberFormat != "#,##0.00" {
		t.Errorf("number format = %q, want #,##0.00", c.Style.NumberFormat)
	}
	if c.Style.Fill == nil || c.Style.Fill.Color != "FFC000" {
		t.Errorf("fill = %+v, want color FFC000", c.Style.Fill)
	}
	if len(ws.NamedStyles) != 1 {
		t.Errorf("workbook should carry %d named styles, got %d", 1, len(ws.NamedStyles))
	}
}

func TestBuildStylePresetOverride(t *testing.T) {
	cfg := &Config{
		Styles: []NamedStyle{
			{Name: "base", Style: StyleSpec{
				Font: &FontSpec{Bold: true},
				Fill: &FillSpec{Color: "EEEEEE"},
			}},
		},
		Sheets: []SheetConfig{
			{
				Headers: []HeaderConfig{
					{Title: "A", Style: &StyleSpec{Preset: "base", Fill: &FillSpec{Color: "112233"}}},
				},
			},
		},
	}

	ws := Build(cfg)
	c := cellIn(t, &ws.Sheets[0], 1, 1)
	if c == nil || c.Style == nil {
		t.Fatal("header cell should carry a style")
	}
	if c.Style.Fill == nil || c.Style.Fill.Color != "112233" {
		t.Errorf("explicit fill should override the preset, got %+v", c.Style.Fill)
	}
	if c.Style.Font == nil || !c.Style.Font.Bold {
		t.Error("bold font should be inherited from the preset")
	}
}

func TestBuildUnknownPresetIgnored(t *testing.T) {
	cfg := &Config{
		Sheets: []SheetConfig{
			{Headers: []HeaderConfig{{Title: "A", Style: &StyleSpec{Preset: "missing", Font: &FontSpec{Italic: true}}}}},
		},
	}

	ws := Build(cfg)
	c := cellIn(t, &ws.Sheets[0], 1, 1)
	if c == nil || c.Style == nil || c.Style.Font == nil {
		t.Fatal("header cell should keep its explicit style")
	}
	if !c.Style.Font.Italic {
		t.Error("explicit italic font should survive an unknown preset reference")
	}
}
