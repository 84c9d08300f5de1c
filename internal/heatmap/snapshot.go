package heatmap

import "github.com/23skdu/longbow-spyglass/internal/layout"

// Row pairs one layout region with its count and normalized intensity.
type Row struct {
	layout.Tensor
	Count     uint64  `json:"count"`
	Intensity float64 `json:"intensity"`
}

// Snapshot is a renderable view of a count table: every layout region in
// offset order with counts and intensities under one fixed scale. Expanded
// keys without a layout region do not produce rows; they still participate
// in the scale.
type Snapshot struct {
	Model    string  `json:"model"`
	Windowed bool    `json:"windowed"`
	CursorMS float64 `json:"cursor_ms"`
	Max      uint64  `json:"max_count"`
	Rows     []Row   `json:"rows"`
}

// BuildSnapshot assembles rows for every region of m from counts, normalized
// by scale.
func BuildSnapshot(m *layout.Map, counts CountTable, scale Scale) *Snapshot {
	rows := make([]Row, 0, m.Len())
	for _, t := range m.Tensors() {
		c := counts[t.Name]
		rows = append(rows, Row{Tensor: t, Count: c, Intensity: scale.Intensity(c)})
	}
	return &Snapshot{
		Model:    m.ModelName(),
		CursorMS: -1,
		Max:      scale.Max(),
		Rows:     rows,
	}
}

// Accessed counts the rows with a non-zero count.
func (s *Snapshot) Accessed() int {
	n := 0
	for i := range s.Rows {
		if s.Rows[i].Count > 0 {
			n++
		}
	}
	return n
}
