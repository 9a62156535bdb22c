// Package source reads raw catalog records from JSON and XLSX files.
package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fnly/tana/internal/models"
)

// ReadFile reads catalog records from path, dispatching on the file
// extension. Supported: .json, .xlsx.
func ReadFile(path string) ([]models.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ReadJSON(path)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q (supported: .json, .xlsx)", filepath.Ext(path))
	}
}

// ReadJSON reads a JSON array of records.
func ReadJSON(path string) ([]models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse catalog JSON: %w", err)
	}
	return records, nil
}
