package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"choco-backend/internal/report"
)

// StylePresetsFile is the on-disk shape of a style presets YAML file.
type StylePresetsFile struct {
	Styles []report.NamedStyle `yaml:"styles"`
}

// LoadStylePresets reads reusable style definitions from the specified YAML file.
// The returned styles can be attached to a workbook as named styles.
func LoadStylePresets(stylesPath string) ([]report.NamedStyle, error) {
	if stylesPath == "" {
		return nil, fmt.Errorf("styles file path is required")
	}

	// Check if file exists
	if _, err := os.Stat(stylesPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("styles file not found: %s", stylesPath)
	}

	// Read file content
	data, err := os.ReadFile(stylesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read styles file: %w", err)
	}

	// Parse YAML
	var file StylePresetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse styles file: %w", err)
	}

	// Validate styles
	if len(file.Styles) == 0 {
		return nil, fmt.Errorf("no styles defined in file: %s", stylesPath)
	}

	seen := make(map[string]bool, len(file.Styles))
	for i, s := range file.Styles {
		if s.Name == "" {
			return nil, fmt.Errorf("style at index %d has no name", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate style name: %s", s.Name)
		}
		seen[s.Name] = true
	}

	return file.Styles, nil
}
