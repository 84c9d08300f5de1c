package heatmap

// Scale fixes the normalization denominator for a set of counts. Derive it
// once from a full-timeline table and reuse it for every windowed query of
// the same recording; that keeps intensities comparable as a cursor moves.
type Scale struct {
	max uint64
}

// NewScale captures the maximum count of t as the denominator.
func NewScale(t CountTable) Scale {
	return Scale{max: t.Max()}
}

// Max returns the fixed denominator.
func (s Scale) Max() uint64 { return s.max }

// Intensity maps a count to [0, 1]. A zero denominator maps every count to 0
// rather than dividing by zero.
func (s Scale) Intensity(count uint64) float64 {
	if s.max == 0 {
		return 0
	}
	return float64(count) / float64(s.max)
}
