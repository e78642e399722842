// Package fileproc inspects uploaded files and summarizes their
// content: tabular files report their columns and row counts, JSON its
// top-level shape, text its line count. Unrecognized content degrades
// to a generic binary summary instead of failing.
package fileproc

import (
	"bytes"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// DefaultMaxSize bounds how large a file the processor inspects.
const DefaultMaxSize = 10 << 20 // 10 MiB

// ErrTooLarge indicates the file exceeds the inspection size limit.
var ErrTooLarge = errors.New("file too large")

// Kind classifies inspected content.
type Kind string

const (
	KindCSV    Kind = "csv"
	KindExcel  Kind = "excel"
	KindJSON   Kind = "json"
	KindText   Kind = "text"
	KindBinary Kind = "binary"
)

// Info is the inspection summary of one file.
type Info struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Size int64  `json:"size"`

	// Tabular content (csv, excel).
	Columns    []string   `json:"columns,omitempty"`
	RowCount   int        `json:"row_count,omitempty"`
	Sheets     []string   `json:"sheets,omitempty"`
	SampleRows [][]string `json:"sample_rows,omitempty"`

	// JSON content.
	JSONType string   `json:"json_type,omitempty"`
	JSONKeys []string `json:"json_keys,omitempty"`

	// Text content.
	LineCount int `json:"line_count,omitempty"`
	WordCount int `json:"word_count,omitempty"`
	CharCount int `json:"char_count,omitempty"`

	// Preview is a short excerpt: leading text for text and JSON,
	// leading bytes in hex for binary.
	Preview string `json:"preview,omitempty"`
}

// Preview limits.
const (
	sampleRowLimit   = 5
	previewRuneLimit = 200
	previewByteLimit = 32
)

// Processor inspects file content.
type Processor struct {
	maxSize int64
	logger  zerolog.Logger
}

// NewProcessor creates a file processor. maxSize <= 0 selects the
// default limit.
func NewProcessor(maxSize int64, logger zerolog.Logger) *Processor {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Processor{
		maxSize: maxSize,
		logger:  logger.With().Str("component", "fileproc").Logger(),
	}
}

// Inspect summarizes a file. The name's extension guides detection;
// content decides when the extension is absent or misleading.
func (p *Processor) Inspect(name string, data []byte) (*Info, error) {
	if int64(len(data)) > p.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, len(data), p.maxSize)
	}

	info := &Info{Name: name, Size: int64(len(data))}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		if p.inspectCSV(info, data) {
			return info, nil
		}
	case ".xlsx", ".xlsm":
		if p.inspectExcel(info, data) {
			return info, nil
		}
	case ".json":
		if inspectJSON(info, data) {
			return info, nil
		}
	}

	// Content-based fallbacks, strictest first.
	if inspectJSON(info, data) {
		return info, nil
	}
	if p.inspectExcel(info, data) {
		return info, nil
	}
	if utf8.Valid(data) {
		if strings.EqualFold(filepath.Ext(name), ".csv") || looksDelimited(data) {
			if p.inspectCSV(info, data) {
				return info, nil
			}
		}
		text := string(data)
		info.Kind = KindText
		info.LineCount = countLines(data)
		info.WordCount = len(strings.Fields(text))
		info.CharCount = utf8.RuneCountInString(text)
		info.Preview = truncateRunes(text, previewRuneLimit)
		return info, nil
	}

	info.Kind = KindBinary
	head := data
	if len(head) > previewByteLimit {
		head = head[:previewByteLimit]
	}
	info.Preview = hex.EncodeToString(head)
	return info, nil
}

// inspectCSV parses the file as CSV, recording the header row as
// columns, counting the data rows beneath it and keeping the first few
// as a sample.
func (p *Processor) inspectCSV(info *Info, data []byte) bool {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return false
	}
	rows := 0
	var sample [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false
		}
		if rows < sampleRowLimit {
			sample = append(sample, record)
		}
		rows++
	}

	info.Kind = KindCSV
	info.Columns = header
	info.RowCount = rows
	info.SampleRows = sample
	return true
}

// inspectExcel opens the data as a workbook, reporting its sheets and
// the first sheet's header row.
func (p *Processor) inspectExcel(info *Info, data []byte) bool {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return false
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return false
	}
	info.Kind = KindExcel
	info.Sheets = sheets

	rows, err := f.GetRows(sheets[0])
	if err != nil || len(rows) == 0 {
		return true
	}
	info.Columns = rows[0]
	info.RowCount = len(rows) - 1
	sample := rows[1:]
	if len(sample) > sampleRowLimit {
		sample = sample[:sampleRowLimit]
	}
	info.SampleRows = sample
	return true
}

// inspectJSON accepts the data when it is a single valid JSON document
// and records its top-level type, object keys and a short excerpt.
func inspectJSON(info *Info, data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return false
	}
	info.Kind = KindJSON
	info.Preview = truncateRunes(string(trimmed), previewRuneLimit)
	switch trimmed[0] {
	case '{':
		info.JSONType = "object"
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			info.JSONKeys = keys
		}
	case '[':
		info.JSONType = "array"
	case '"':
		info.JSONType = "string"
	case 't', 'f':
		info.JSONType = "boolean"
	case 'n':
		info.JSONType = "null"
	default:
		info.JSONType = "number"
	}
	return true
}

// truncateRunes shortens s to at most limit runes.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// looksDelimited guesses that extensionless text with consistent commas
// on its first lines is CSV.
func looksDelimited(data []byte) bool {
	lines := strings.SplitN(string(data), "\n", 3)
	if len(lines) < 2 {
		return false
	}
	first := strings.Count(lines[0], ",")
	return first > 0 && strings.Count(lines[1], ",") == first
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
