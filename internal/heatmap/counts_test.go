package heatmap

import (
	"testing"

	"github.com/23skdu/longbow-spyglass/internal/trace"
)

func TestCountsNonExpert(t *testing.T) {
	m := mustMap(t, region("a", 0, 100), region("b", 100, 100))
	r := mustRecording(t,
		diskRead(0, "a"),
		diskRead(1, "a", "b"),
		diskRead(2, "a"),
	)

	counts := Counts(m, r, Options{})
	if counts["a"] != 3 {
		t.Errorf("a: got %d, want 3", counts["a"])
	}
	if counts["b"] != 1 {
		t.Errorf("b: got %d, want 1", counts["b"])
	}
}

func TestCountsSkipsOtherMemorySource(t *testing.T) {
	m := mustMap(t, region("a", 0, 100))
	r := mustRecording(t,
		diskRead(0, "a"),
		bufferRead(1, "a"),
		bufferRead(2, "a"),
	)

	disk := Counts(m, r, Options{})
	if disk["a"] != 1 {
		t.Errorf("disk count: got %d, want 1", disk["a"])
	}

	buf := Counts(m, r, Options{Source: trace.SourceBuffer})
	if buf["a"] != 2 {
		t.Errorf("buffer count: got %d, want 2", buf["a"])
	}
}

func TestExpertFanOutTopFour(t *testing.T) {
	m := mustMap(t, region("blk.0.ffn_down_exps.weight", 0, 100))
	r := mustRecording(t,
		expertRead(0, "blk.0.ffn_down_exps.weight", 3, 1, 7, 2, 9, 4),
	)

	counts := Counts(m, r, Options{})
	for _, id := range []int32{3, 1, 7, 2} {
		key := ExpertKey("blk.0.ffn_down_exps.weight", id)
		if counts[key] != 1 {
			t.Errorf("%s: got %d, want 1", key, counts[key])
		}
	}
	for _, id := range []int32{9, 4} {
		key := ExpertKey("blk.0.ffn_down_exps.weight", id)
		if _, ok := counts[key]; ok {
			t.Errorf("%s: expert past the top four must not be charged", key)
		}
	}
	// the plain name stays at its seeded zero
	if counts["blk.0.ffn_down_exps.weight"] != 0 {
		t.Errorf("plain name: got %d, want 0", counts["blk.0.ffn_down_exps.weight"])
	}
}

func TestExpertFanOutShortList(t *testing.T) {
	m := mustMap(t, region("blk.0.ffn_up_exps.weight", 0, 100))
	r := mustRecording(t,
		expertRead(0, "blk.0.ffn_up_exps.weight", 6, 2),
	)

	counts := Counts(m, r, Options{})
	if counts[ExpertKey("blk.0.ffn_up_exps.weight", 6)] != 1 {
		t.Error("first routed expert not charged")
	}
	if counts[ExpertKey("blk.0.ffn_up_exps.weight", 2)] != 1 {
		t.Error("second routed expert not charged")
	}
}

func TestExpertTensorWithoutRoutingCountsPlain(t *testing.T) {
	m := mustMap(t, region("blk.0.ffn_down_exps.weight", 0, 100))
	r := mustRecording(t,
		expertRead(0, "blk.0.ffn_down_exps.weight"), // no expert_ids recorded
	)

	counts := Counts(m, r, Options{})
	if counts["blk.0.ffn_down_exps.weight"] != 1 {
		t.Errorf("plain name: got %d, want 1", counts["blk.0.ffn_down_exps.weight"])
	}
}

func TestSeedCompleteness(t *testing.T) {
	m := mustMap(t,
		region("touched", 0, 100),
		region("cold", 100, 100),
		region("colder", 200, 100),
	)
	r := mustRecording(t, diskRead(0, "touched"))

	counts := Counts(m, r, Options{})
	for _, name := range []string{"touched", "cold", "colder"} {
		if _, ok := counts[name]; !ok {
			t.Errorf("%s: missing from table", name)
		}
	}
	if counts["cold"] != 0 || counts["colder"] != 0 {
		t.Error("untouched regions must be zero")
	}
}

func TestCountsAtWindow(t *testing.T) {
	m := mustMap(t, region("a", 0, 100))
	r := mustRecording(t,
		diskRead(0, "a"),
		diskRead(1.5, "a"),
		diskRead(3, "a"),
	)

	tests := []struct {
		cursor float64
		want   uint64
	}{
		{-0.5, 0},
		{0, 1}, // boundary is inclusive
		{1.4, 1},
		{1.5, 2},
		{2.9, 2},
		{3, 3},
		{1000, 3},
	}
	for _, tt := range tests {
		counts := CountsAt(m, r, tt.cursor, Options{})
		if counts["a"] != tt.want {
			t.Errorf("cursor %.1f: got %d, want %d", tt.cursor, counts["a"], tt.want)
		}
	}
}

func TestWindowedMonotonic(t *testing.T) {
	m := mustMap(t, region("a", 0, 100), region("blk.0.ffn_up_exps.weight", 100, 100))
	r := mustRecording(t,
		diskRead(0, "a"),
		expertRead(1, "blk.0.ffn_up_exps.weight", 2, 5),
		diskRead(2, "a"),
		expertRead(3, "blk.0.ffn_up_exps.weight", 2),
		diskRead(4, "a"),
	)

	prev := CountTable{}
	for _, cursor := range []float64{0, 1, 2, 3, 4, 5} {
		cur := CountsAt(m, r, cursor, Options{})
		for k, c := range prev {
			if cur[k] < c {
				t.Errorf("cursor %.0f: key %s regressed from %d to %d", cursor, k, c, cur[k])
			}
		}
		prev = cur
	}

	full := Counts(m, r, Options{})
	for k, c := range prev {
		if full[k] != c {
			t.Errorf("key %s: window at end %d != full %d", k, c, full[k])
		}
	}
}

// Five-entry scenario covering seeding, fan-out, source filtering, windowing
// and the fixed full-timeline maximum in one pass.
func TestWindowedAndFullScenario(t *testing.T) {
	m := mustMap(t,
		region("A", 0, 100),
		region("B_exps.weight", 100, 100),
	)
	r := mustRecording(t,
		diskRead(0, "A"),
		expertRead(1, "B_exps.weight", 3, 1, 7, 2, 9),
		bufferRead(2, "A"),
		expertRead(3, "B_exps.weight"),
		diskRead(4, "A"),
	)

	window := CountsAt(m, r, 1, Options{})
	if window["A"] != 1 {
		t.Errorf("window A: got %d, want 1", window["A"])
	}
	for _, id := range []int32{3, 1, 7, 2} {
		key := ExpertKey("B_exps.weight", id)
		if window[key] != 1 {
			t.Errorf("window %s: got %d, want 1", key, window[key])
		}
	}
	if _, ok := window[ExpertKey("B_exps.weight", 9)]; ok {
		t.Error("window: fifth routed expert must be absent")
	}
	if window["B_exps.weight"] != 0 {
		t.Errorf("window plain B: got %d, want 0", window["B_exps.weight"])
	}

	full := Counts(m, r, Options{})
	if full["A"] != 2 {
		t.Errorf("full A: got %d, want 2", full["A"])
	}
	if full["B_exps.weight"] != 1 {
		t.Errorf("full plain B: got %d, want 1", full["B_exps.weight"])
	}
	if got := NewScale(full).Max(); got != 2 {
		t.Errorf("full max: got %d, want 2", got)
	}
}
