package report

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// Style defaults applied when a specification omits a field.
const (
	defaultFontName = "Calibri"
	defaultFontSize = 11.0

	// Colors (RGB without #)
	colorBlack    = "000000"
	colorWhite    = "FFFFFF"
	colorHeaderBg = "366092" // Blue background for default headers
	colorHeaderFg = "FFFFFF" // White text for default headers
)

// FontSpec describes font styling for a cell.
type FontSpec struct {
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
	Size      float64 `json:"size,omitempty" yaml:"size,omitempty"`
	Bold      bool    `json:"bold,omitempty" yaml:"bold,omitempty"`
	Italic    bool    `json:"italic,omitempty" yaml:"italic,omitempty"`
	Underline string  `json:"underline,omitempty" yaml:"underline,omitempty"`
	Color     string  `json:"color,omitempty" yaml:"color,omitempty"`
}

// FillSpec describes the background fill of a cell.
type FillSpec struct {
	Color   string `json:"color,omitempty" yaml:"color,omitempty"`
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// BorderSide describes one edge of a cell border.
type BorderSide struct {
	Style string `json:"style,omitempty" yaml:"style,omitempty"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// BorderSpec describes the four edges of a cell border. A nil side is
// left unset.
type BorderSpec struct {
	Left   *BorderSide `json:"left,omitempty" yaml:"left,omitempty"`
	Right  *BorderSide `json:"right,omitempty" yaml:"right,omitempty"`
	Top    *BorderSide `json:"top,omitempty" yaml:"top,omitempty"`
	Bottom *BorderSide `json:"bottom,omitempty" yaml:"bottom,omitempty"`
}

// AlignmentSpec describes text alignment within a cell.
type AlignmentSpec struct {
	Horizontal   string `json:"horizontal,omitempty" yaml:"horizontal,omitempty"`
	Vertical     string `json:"vertical,omitempty" yaml:"vertical,omitempty"`
	WrapText     bool   `json:"wrap_text,omitempty" yaml:"wrap_text,omitempty"`
	TextRotation int    `json:"text_rotation,omitempty" yaml:"text_rotation,omitempty"`
	Indent       int    `json:"indent,omitempty" yaml:"indent,omitempty"`
	ShrinkToFit  bool   `json:"shrink_to_fit,omitempty" yaml:"shrink_to_fit,omitempty"`
}

// StyleSpec is a partial style specification. Each axis is either unset
// (nil) or present; present axes are resolved to full values once, at
// configuration-parse time, so the renderer never re-derives defaults.
// A StyleSpec is a pure value with no identity.
type StyleSpec struct {
	Font         *FontSpec      `json:"font,omitempty" yaml:"font,omitempty"`
	Fill         *FillSpec      `json:"fill,omitempty" yaml:"fill,omitempty"`
	Border       *BorderSpec    `json:"border,omitempty" yaml:"border,omitempty"`
	Alignment    *AlignmentSpec `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	NumberFormat string         `json:"number_format,omitempty" yaml:"number_format,omitempty"`

	// Preset names a NamedStyle the spec inherits from. Axes set here
	// override the preset's; the reference is consumed at build time.
	Preset string `json:"preset,omitempty" yaml:"preset,omitempty"`
}

// NormalizeColor strips a leading '#', validates exactly 6 hexadecimal
// characters case-insensitively and uppercases the result. Anything else
// maps to black. The function is total and idempotent, so the renderer
// never receives an invalid color.
func NormalizeColor(color string) string {
	c := strings.TrimSpace(color)
	c = strings.TrimPrefix(c, "#")
	if len(c) != 6 {
		return colorBlack
	}
	for _, r := range c {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return colorBlack
		}
	}
	return strings.ToUpper(c)
}

// Resolve returns a copy of the spec with every field of every present
// axis filled with its documented default. Absent axes stay absent.
func (s *StyleSpec) Resolve() *StyleSpec {
	if s == nil {
		return nil
	}
	out := &StyleSpec{NumberFormat: s.NumberFormat}
	if s.Font != nil {
		f := *s.Font
		if f.Name == "" {
			f.Name = defaultFontName
		}
		if f.Size == 0 {
			f.Size = defaultFontSize
		}
		f.Color = NormalizeColor(f.Color)
		out.Font = &f
	}
	if s.Fill != nil {
		fl := *s.Fill
		if fl.Color == "" {
			fl.Color = colorWhite
		} else {
			fl.Color = NormalizeColor(fl.Color)
		}
		if fl.Pattern == "" {
			fl.Pattern = "solid"
		}
		out.Fill = &fl
	}
	if s.Border != nil {
		b := BorderSpec{}
		b.Left = resolveSide(s.Border.Left)
		b.Right = resolveSide(s.Border.Right)
		b.Top = resolveSide(s.Border.Top)
		b.Bottom = resolveSide(s.Border.Bottom)
		out.Border = &b
	}
	if s.Alignment != nil {
		a := *s.Alignment
		if a.Horizontal == "" {
			a.Horizontal = "general"
		}
		if a.Vertical == "" {
			a.Vertical = "bottom"
		}
		out.Alignment = &a
	}
	return out
}

func resolveSide(side *BorderSide) *BorderSide {
	if side == nil {
		return nil
	}
	s := *side
	if s.Style == "" {
		s.Style = "thin"
	}
	s.Color = NormalizeColor(s.Color)
	return &s
}

// borderStyleCode maps a border style name to the excelize border index.
func borderStyleCode(name string) int {
	switch strings.ToLower(name) {
	case "medium":
		return 2
	case "dashed":
		return 3
	case "dotted":
		return 4
	case "thick":
		return 5
	case "double":
		return 6
	case "hair":
		return 7
	default: // thin
		return 1
	}
}

// borderStyleName is the inverse of borderStyleCode for the styles the
// engine emits.
func borderStyleName(code int) string {
	switch code {
	case 2:
		return "medium"
	case 3:
		return "dashed"
	case 4:
		return "dotted"
	case 5:
		return "thick"
	case 6:
		return "double"
	case 7:
		return "hair"
	default:
		return "thin"
	}
}

// toExcelize converts a resolved spec into the excelize style shape. The
// receiver is resolved first so a partial spec is accepted too.
func (s *StyleSpec) toExcelize() *excelize.Style {
	r := s.Resolve()
	if r == nil {
		return nil
	}
	style := &excelize.Style{}
	if r.Font != nil {
		style.Font = &excelize.Font{
			Family:    r.Font.Name,
			Size:      r.Font.Size,
			Bold:      r.Font.Bold,
			Italic:    r.Font.Italic,
			Underline: r.Font.Underline,
			Color:     r.Font.Color,
		}
	}
	if r.Fill != nil {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{r.Fill.Color},
		}
	}
	if r.Border != nil {
		style.Border = appendBorderSide(style.Border, "left", r.Border.Left)
		style.Border = appendBorderSide(style.Border, "right", r.Border.Right)
		style.Border = appendBorderSide(style.Border, "top", r.Border.Top)
		style.Border = appendBorderSide(style.Border, "bottom", r.Border.Bottom)
	}
	if r.Alignment != nil {
		style.Alignment = &excelize.Alignment{
			Horizontal:   r.Alignment.Horizontal,
			Vertical:     r.Alignment.Vertical,
			WrapText:     r.Alignment.WrapText,
			TextRotation: r.Alignment.TextRotation,
			Indent:       r.Alignment.Indent,
			ShrinkToFit:  r.Alignment.ShrinkToFit,
		}
	}
	if r.NumberFormat != "" {
		numFmt := r.NumberFormat
		style.CustomNumFmt = &numFmt
	}
	return style
}

func appendBorderSide(borders []excelize.Border, edge string, side *BorderSide) []excelize.Border {
	if side == nil {
		return borders
	}
	return append(borders, excelize.Border{
		Type:  edge,
		Style: borderStyleCode(side.Style),
		Color: side.Color,
	})
}

// defaultHeaderStyle is the style applied to header cells that carry no
// explicit style in the configuration.
func defaultHeaderStyle() *StyleSpec {
	return &StyleSpec{
		Font: &FontSpec{Bold: true, Color: colorHeaderFg},
		Fill: &FillSpec{Color: colorHeaderBg},
		Alignment: &AlignmentSpec{
			Horizontal: "center",
			Vertical:   "center",
		},
	}
}
