package layout

import "fmt"

// Error types
type DuplicateTensorError struct{ Name string }

func (e DuplicateTensorError) Error() string {
	return fmt.Sprintf("duplicate tensor name: %s", e.Name)
}

type SpanError struct {
	Name      string
	Start     uint64
	End       uint64
	SizeBytes uint64
}

func (e SpanError) Error() string {
	return fmt.Sprintf("tensor %s: span [%d,%d) disagrees with size_bytes %d", e.Name, e.Start, e.End, e.SizeBytes)
}

type OverlapError struct{ A, B string }

func (e OverlapError) Error() string {
	return fmt.Sprintf("tensor regions overlap: %s and %s", e.A, e.B)
}

type BoundsError struct {
	Name  string
	End   uint64
	Total uint64
}

func (e BoundsError) Error() string {
	return fmt.Sprintf("tensor %s ends at %d, past declared file size %d", e.Name, e.End, e.Total)
}
