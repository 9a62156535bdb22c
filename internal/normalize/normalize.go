// Package normalize coerces raw catalog records to the declared schema.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fnly/tana/internal/models"
)

// Schema is the declared field list with its single designated numeric field.
type Schema struct {
	Fields     []string
	PriceField string
}

// NewSchema builds a schema from the declared field order and price field name.
func NewSchema(fields []string, priceField string) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema requires at least one field")
	}
	found := false
	for _, f := range fields {
		if f == priceField {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("price field %q not in declared fields", priceField)
	}
	return &Schema{Fields: fields, PriceField: priceField}, nil
}

// Normalize coerces a raw record to the schema. Every declared field must be
// present: the price field is parsed as a float, everything else becomes its
// display string. Fails fast on the first missing or malformed field; no
// partial record is returned.
func (s *Schema) Normalize(rec models.Record) (*models.NormalizedRecord, error) {
	out := &models.NormalizedRecord{
		Fields: s.Fields,
		Values: make(map[string]string, len(s.Fields)),
	}
	for _, field := range s.Fields {
		raw, ok := rec[field]
		if !ok {
			return nil, &MissingFieldError{Field: field, RecordID: recordID(rec)}
		}
		if field == s.PriceField {
			price, err := ParsePrice(raw)
			if err != nil {
				return nil, err
			}
			out.Price = price
			out.Values[field] = displayString(raw)
			continue
		}
		out.Values[field] = displayString(raw)
	}
	return out, nil
}

// Result tags one record with either its normalized form or the error that
// disqualified it.
type Result struct {
	Index  int
	Record *models.NormalizedRecord
	Err    error
}

// NormalizeAll normalizes every record, collecting per-record outcomes. A
// failed record never blocks the rest of the batch.
func (s *Schema) NormalizeAll(recs []models.Record) []Result {
	results := make([]Result, len(recs))
	for i, rec := range recs {
		nr, err := s.Normalize(rec)
		results[i] = Result{Index: i, Record: nr, Err: err}
	}
	return results
}

// ParsePrice parses a price value as a float. String input may use a comma as
// the decimal separator; a single comma is replaced with a period before
// parsing. Thousands separators are not handled ("1.459,00" parses as 1.459).
func ParsePrice(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
		if err != nil {
			return 0, &FormatError{Field: "price", Value: v}
		}
		return f, nil
	default:
		return 0, &FormatError{Field: "price", Value: displayString(raw)}
	}
}

// displayString renders any raw value as text. Numbers, booleans, and nil all
// become strings; embeddings and display use text, not typed values.
func displayString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
