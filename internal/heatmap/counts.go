package heatmap

import (
	"github.com/23skdu/longbow-spyglass/internal/layout"
	"github.com/23skdu/longbow-spyglass/internal/trace"
)

// seed returns a table with every layout region present at zero, so regions
// never touched by a recording still appear in results.
func seed(m *layout.Map) CountTable {
	t := make(CountTable, m.Len())
	for _, tn := range m.Tensors() {
		t[tn.Name] = 0
	}
	return t
}

// Counts charges the entire recording against the layout and returns the
// full-timeline table. This is the table normalization scales derive from.
func Counts(m *layout.Map, r *trace.Recording, opts Options) CountTable {
	t := seed(m)
	src := opts.source()
	entries := r.Entries()
	for i := range entries {
		chargeEntry(t, &entries[i], src)
	}
	return t
}

// CountsAt charges only the entries with timestamp_relative_ms <= cursorMS.
// Entries are stored in ascending timestamp order, so the scan stops at the
// first entry past the cursor instead of visiting the rest.
func CountsAt(m *layout.Map, r *trace.Recording, cursorMS float64, opts Options) CountTable {
	t := seed(m)
	src := opts.source()
	entries := r.Entries()
	for i := range entries {
		if entries[i].TimestampRelativeMS > cursorMS {
			break
		}
		chargeEntry(t, &entries[i], src)
	}
	return t
}
