// Package cli provides CLI output utilities for Tana.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fnly/tana/internal/models"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "text", "":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteQueryResults writes retrieval results to w in the given format.
func WriteQueryResults(w io.Writer, response *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", len(response.Results), response.QueryTime)
	for rank, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", rank+1, result.Score)
		fmt.Fprintf(w, "ID: %s\n", result.Entry.ID)
		if name, ok := result.Entry.Metadata["name"].(string); ok && name != "" {
			fmt.Fprintf(w, "Name: %s\n", name)
		}
		fmt.Fprintf(w, "Price: %.2f\n", result.Entry.Price)
		fmt.Fprintf(w, "\n%s\n", Truncate(result.Entry.Content, 200))
		fmt.Fprintln(w)
	}
	return nil
}

// WritePriceList writes entries sorted by price to w in the given format.
func WritePriceList(w io.Writer, entries []*models.IndexEntry, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	for i, e := range entries {
		name := e.ID
		if n, ok := e.Metadata["name"].(string); ok && n != "" {
			name = n
		}
		fmt.Fprintf(w, "%2d. %10.2f  %s\n", i+1, e.Price, name)
	}
	return nil
}

// WriteReport writes an ingestion report to w in the given format.
func WriteReport(w io.Writer, report *models.Report, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintf(w, "records_read:  %d\n", report.RecordsRead)
	fmt.Fprintf(w, "normalized:    %d\n", report.Normalized)
	fmt.Fprintf(w, "chunked:       %d\n", report.Chunked)
	fmt.Fprintf(w, "embedded:      %d\n", report.Embedded)
	fmt.Fprintf(w, "persisted:     %d\n", report.Persisted)
	if report.Failed() > 0 {
		fmt.Fprintf(w, "\n%d failures:\n", report.Failed())
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  [%s] %s: %s\n", f.Stage, f.ID, f.Reason)
		}
	}
	return nil
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
