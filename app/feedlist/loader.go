// Package feedlist reads the list of feeds to archive.
package feedlist

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxLineSize = 1024 * 1024

// Load reads a feeds file. Files ending in .yaml or .yml use the
// `feeds: [{name, url}]` layout; everything else is treated as JSON Lines
// with one {"url": ..., "name": ...} object per line.
func Load(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSONL(data)
	}
}

func parseJSONL(data []byte) ([]Source, error) {
	var sources []Source

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var source Source
		if err := json.Unmarshal([]byte(line), &source); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNo, err)
		}
		if err := validate(source); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		sources = append(sources, source)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan feeds file: %w", err)
	}

	return sources, nil
}

func parseYAML(data []byte) ([]Source, error) {
	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, source := range file.Feeds {
		if err := validate(source); err != nil {
			return nil, fmt.Errorf("feed at index %d: %w", i, err)
		}
	}

	return file.Feeds, nil
}

func validate(source Source) error {
	if strings.TrimSpace(source.URL) == "" {
		return fmt.Errorf("feed url is required")
	}
	if strings.TrimSpace(source.Name) == "" {
		return fmt.Errorf("feed name is required")
	}
	return nil
}
