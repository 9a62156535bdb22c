// Package models defines core data structures for records, nodes, and retrieval results.
package models

import (
	"strings"
)

// Record is a raw catalog entry as read from the source, before normalization.
// Values are untyped: strings, numbers, booleans, or nil.
type Record map[string]any

// NormalizedRecord is a record coerced to the declared schema: every declared
// field in display-string form plus the parsed numeric price.
type NormalizedRecord struct {
	Fields []string          // declared field order
	Values map[string]string // display form of every declared field
	Price  float64           // parsed value of the price field
}

// Metadata returns the retrieval metadata for the record: the price field as
// its numeric value, every other declared field as its display string. Keys
// listed in exclude are omitted.
func (r *NormalizedRecord) Metadata(priceField string, exclude []string) map[string]any {
	excluded := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		excluded[k] = true
	}
	meta := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		if excluded[f] {
			continue
		}
		if f == priceField {
			meta[f] = r.Price
			continue
		}
		meta[f] = r.Values[f]
	}
	return meta
}

// MetadataText renders the metadata in declared field order as "key=>value"
// lines, one per field, skipping excluded keys. This is the textual form the
// embedding model sees alongside the content.
func (r *NormalizedRecord) MetadataText(exclude []string) string {
	excluded := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		excluded[k] = true
	}
	var b strings.Builder
	for _, f := range r.Fields {
		if excluded[f] {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f)
		b.WriteString("=>")
		b.WriteString(r.Values[f])
	}
	return b.String()
}
