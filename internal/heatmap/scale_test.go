package heatmap

import "testing"

func TestScaleIntensity(t *testing.T) {
	s := NewScale(CountTable{"a": 4, "b": 2})
	if s.Max() != 4 {
		t.Fatalf("max: got %d, want 4", s.Max())
	}

	tests := []struct {
		count uint64
		want  float64
	}{
		{0, 0},
		{1, 0.25},
		{2, 0.5},
		{4, 1},
	}
	for _, tt := range tests {
		if got := s.Intensity(tt.count); got != tt.want {
			t.Errorf("Intensity(%d) = %f, want %f", tt.count, got, tt.want)
		}
	}
}

func TestScaleZeroMax(t *testing.T) {
	tables := []CountTable{
		{},
		{"a": 0, "b": 0},
	}
	for _, table := range tables {
		s := NewScale(table)
		if s.Max() != 0 {
			t.Errorf("max: got %d, want 0", s.Max())
		}
		if got := s.Intensity(0); got != 0 {
			t.Errorf("Intensity(0) with zero max = %f, want 0", got)
		}
		if got := s.Intensity(5); got != 0 {
			t.Errorf("Intensity(5) with zero max = %f, want 0", got)
		}
	}
}
