// Package heatmap turns trace recordings into per-tensor access counts.
//
// Counting is pure: a layout seeds every region name at zero, entries fan out
// through one expansion rule (routed MoE tensors count per expert, everything
// else per name), and a query either covers the whole recording or the prefix
// up to a time cursor. Normalization is a separate step: a Scale captures the
// full-timeline maximum once and converts counts to intensities, so moving a
// cursor never changes the denominator.
package heatmap

// CountTable maps an access key (tensor name or expanded expert key) to the
// number of qualifying reads. Keys synthesized during expansion may be absent
// from the seeding layout; they still count.
type CountTable map[string]uint64

// Max returns the largest count in the table, 0 when empty.
func (t CountTable) Max() uint64 {
	var max uint64
	for _, c := range t {
		if c > max {
			max = c
		}
	}
	return max
}

// Merge adds every count of other into t.
func (t CountTable) Merge(other CountTable) {
	for k, c := range other {
		t[k] += c
	}
}

// Clone returns an independent copy of t.
func (t CountTable) Clone() CountTable {
	out := make(CountTable, len(t))
	for k, c := range t {
		out[k] = c
	}
	return out
}
