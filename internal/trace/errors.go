package trace

import "fmt"

// Error types
type TimestampOrderError struct {
	Index int
	Prev  float64
	Cur   float64
}

func (e TimestampOrderError) Error() string {
	return fmt.Sprintf("entry %d out of order: timestamp_relative_ms %.3f after %.3f", e.Index, e.Cur, e.Prev)
}
