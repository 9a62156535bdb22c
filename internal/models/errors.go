package models

import "fmt"

// DimensionMismatchError reports a vector whose length does not match the
// configured embedding dimensionality. At startup it is a fatal configuration
// error; on a write it rejects the offending entry.
type DimensionMismatchError struct {
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: got %d, expected %d", e.Got, e.Want)
}
