// Package e2e provides end-to-end tests over a generated catalog: ingest a
// catalog file, then retrieve entries through the full stack.
package e2e

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CatalogEntry is a minimal laptop record used by the E2E catalog.
type CatalogEntry struct {
	Name        string
	Description string
	Price       string
}

// QueryTestCase defines a query and the entry name that must rank first.
type QueryTestCase struct {
	Query        string
	ExpectedName string
}

// Catalog holds generated records and query test cases for E2E tests.
type Catalog struct {
	Entries   []CatalogEntry
	TestCases []QueryTestCase
}

// BuildCatalog returns a catalog of laptops with distinct signature phrases
// so queries can assert the correct entry is returned.
func BuildCatalog() *Catalog {
	entries := []CatalogEntry{
		{"Nitro Edge 15", "Gaming laptop with a dedicated ray tracing GPU. The high refresh rate panel suits esports.", "1599.99"},
		{"Featherbook Air", "Ultralight travel laptop with all-day battery. The fanless chassis stays silent.", "1249.00"},
		{"WorkForge Pro", "Mobile workstation certified for CAD software. ECC memory keeps long renders stable.", "3299.50"},
		{"Chromatic 11", "Budget chromebook for schoolwork and browsing. The rugged shell survives drops.", "329.90"},
		{"Cinemabook OLED", "Creator laptop with a color-accurate OLED display. Hardware calibration ships from the factory.", "2199.00"},
	}
	cases := []QueryTestCase{
		{"best laptop for esports gaming", "Nitro Edge 15"},
		{"silent lightweight laptop for travel", "Featherbook Air"},
		{"workstation for CAD rendering", "WorkForge Pro"},
		{"cheap rugged laptop for school", "Chromatic 11"},
		{"color accurate display for video editing", "Cinemabook OLED"},
	}
	return &Catalog{Entries: entries, TestCases: cases}
}

// WriteFile writes the catalog as a JSON records file under dir and returns
// its path.
func (c *Catalog) WriteFile(dir string) (string, error) {
	recs := make([]map[string]any, 0, len(c.Entries))
	for _, e := range c.Entries {
		recs = append(recs, map[string]any{
			"name":        e.Name,
			"description": e.Description,
			"price":       e.Price,
		})
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "laptops.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write catalog fixture: %w", err)
	}
	return path, nil
}
