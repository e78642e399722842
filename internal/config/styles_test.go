// Package config provides configuration management for the backend.
package config

import (
	"os"
	"testing"
)

func writeStylesFile(t *testing.T, content string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "styles-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmpFile.Close()

	return tmpFile.Name()
}

func TestLoadStylePresets_Success(t *testing.T) {
	path := writeStylesFile(t, `
styles:
  - name: "title"
    style:
      font:
        bold: true
        size: 14
        color: "FFFFFF"
      fill:
        color: "366092"
  - name: "warning"
    style:
      fill:
        color: "FFC000"
`)

	styles, err := LoadStylePresets(path)
	if err != nil {
		t.Fatalf("LoadStylePresets() error = %v", err)
	}

	if len(styles) != 2 {
		t.Fatalf("got %d styles, want 2", len(styles))
	}
	if styles[0].Name != "title" {
		t.Errorf("first style name = %v, want title", styles[0].Name)
	}
	if styles[0].Style.Font == nil || !styles[0].Style.Font.Bold {
		t.Error("title style should have a bold font")
	}
	if styles[1].Style.Fill == nil || styles[1].Style.Fill.Color != "FFC000" {
		t.Error("warning style should have fill color FFC000")
	}
}

func TestLoadStylePresets_EmptyPath(t *testing.T) {
	_, err := LoadStylePresets("")
	if err == nil {
		t.Error("LoadStylePresets() should return error for empty path")
	}
}

func TestLoadStylePresets_FileNotFound(t *testing.T) {
	_, err := LoadStylePresets("/nonexistent/styles.yaml")
	if err == nil {
		t.Error("LoadStylePresets() should return error for nonexistent file")
	}
}

func TestLoadStylePresets_NoStyles(t *testing.T) {
	path := writeStylesFile(t, "styles: []\n")

	_, err := LoadStylePresets(path)
	if err == nil {
		t.Error("LoadStylePresets() should return error when no styles are defined")
	}
}

func TestLoadStylePresets_MissingName(t *testing.T) {
	path := writeStylesFile(t, `
styles:
  - style:
      font:
        bold: true
`)

	_, err := LoadStylePresets(path)
	if err == nil {
		t.Error("LoadStylePresets() should return error for a style without a name")
	}
}

func TestLoadStylePresets_DuplicateName(t *testing.T) {
	path := writeStylesFile(t, `
styles:
  - name: "title"
    style:
      font:
        bold: true
  - name: "title"
    style:
      font:
        italic: true
`)

	_, err := LoadStylePresets(path)
	if err == nil {
		t.Error("LoadStylePresets() should return error for duplicate style names")
	}
}
