package normalize

import (
	"fmt"

	"github.com/fnly/tana/internal/models"
)

// MissingFieldError reports a declared field absent from a raw record.
type MissingFieldError struct {
	Field    string
	RecordID string
}

func (e *MissingFieldError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("record %s: missing required field %q", e.RecordID, e.Field)
	}
	return fmt.Sprintf("missing required field %q", e.Field)
}

// FormatError reports a field value that could not be parsed to its declared
// type, naming the offending raw value.
type FormatError struct {
	Field string
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid format for %s field: %q", e.Field, e.Value)
}

// recordID extracts an identifier for error messages, preferring _id then name.
func recordID(rec models.Record) string {
	for _, key := range []string{"_id", "name"} {
		if v, ok := rec[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
