package heatmap

import (
	"github.com/23skdu/longbow-spyglass/internal/layout"
	"github.com/23skdu/longbow-spyglass/internal/trace"
)

// View binds one recording to a layout and fixes the normalization scale at
// construction. Windowed tables are recomputed per cursor; the scale never is.
type View struct {
	m     *layout.Map
	rec   *trace.Recording
	opts  Options
	full  CountTable
	scale Scale
}

// NewView computes the full-timeline table once and derives the scale from it.
func NewView(m *layout.Map, rec *trace.Recording, opts Options) *View {
	full := Counts(m, rec, opts)
	return &View{
		m:     m,
		rec:   rec,
		opts:  opts,
		full:  full,
		scale: NewScale(full),
	}
}

// Scale returns the fixed full-timeline scale.
func (v *View) Scale() Scale { return v.scale }

// Full returns the cached full-timeline table.
// The table is shared; callers must treat it as read-only.
func (v *View) Full() CountTable { return v.full }

// At recomputes the windowed table for one cursor position.
func (v *View) At(cursorMS float64) CountTable {
	return CountsAt(v.m, v.rec, cursorMS, v.opts)
}

// Snapshot renders the full-timeline state as ordered rows.
func (v *View) Snapshot() *Snapshot {
	return BuildSnapshot(v.m, v.full, v.scale)
}

// SnapshotAt renders the windowed state at cursorMS, normalized by the fixed
// full-timeline scale.
func (v *View) SnapshotAt(cursorMS float64) *Snapshot {
	s := BuildSnapshot(v.m, v.At(cursorMS), v.scale)
	s.Windowed = true
	s.CursorMS = cursorMS
	return s
}
