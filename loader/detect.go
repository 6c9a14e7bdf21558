// Package loader reads pipeline definition files in JSON or YAML and
// carries the built-in example scenarios.
package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a definition file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat picks the encoding of data. A .yaml or .yml extension means
// YAML and a .json extension means JSON. Without either, content starting
// with '{' is JSON and anything else is YAML.
func DetectFormat(data []byte, path string) Format {
	if isYAML(path) {
		return FormatYAML
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// isYAML returns true if the file path has a YAML extension.
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// yamlToJSON converts raw bytes from YAML format to JSON bytes.
// YAML -> any -> JSON bytes -> typed struct.
func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	// yaml.v3 decodes string-keyed mappings as map[string]any, which is
	// JSON-compatible.
	return json.Marshal(raw)
}

// toJSON converts data to JSON bytes, handling YAML conversion when the
// detected format is YAML.
func toJSON(data []byte, path string) ([]byte, error) {
	if DetectFormat(data, path) == FormatYAML {
		return yamlToJSON(data)
	}
	return data, nil
}
