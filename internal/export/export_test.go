package export

import (
	"testing"

	"github.com/23skdu/longbow-spyglass/internal/heatmap"
	"github.com/23skdu/longbow-spyglass/internal/layout"
	"github.com/23skdu/longbow-spyglass/internal/trace"
)

// Shared fixtures: a tiny MoE layout with two expert slices, traced over two
// tokens. Accumulated counts: token_embd 2, expert slice 0 once, slice 1
// twice, so the accumulated scale maxes at 2.

func intp(v int) *int { return &v }

func testLayout(t *testing.T) *layout.Map {
	t.Helper()
	m, err := layout.NewMap("test:moe", 800, layout.Metadata{NLayers: 1, NTensors: 3}, []layout.Tensor{
		{
			Name: "token_embd.weight", OffsetStart: 0, OffsetEnd: 400, SizeBytes: 400,
			Shape: []uint64{8, 16}, Category: layout.CategoryEmbedding,
			Component: "token_embd", ComponentType: "Token embedding",
		},
		{
			Name: "blk.0.ffn_down_exps.weight[0]", OffsetStart: 400, OffsetEnd: 600, SizeBytes: 200,
			Shape: []uint64{4, 8}, Category: layout.CategoryFFN, LayerID: intp(0),
			Component: "ffn_down_exps", ComponentType: "FFN down (experts)", ExpertID: intp(0),
		},
		{
			Name: "blk.0.ffn_down_exps.weight[1]", OffsetStart: 600, OffsetEnd: 800, SizeBytes: 200,
			Shape: []uint64{4, 8}, Category: layout.CategoryFFN, LayerID: intp(0),
			Component: "ffn_down_exps", ComponentType: "FFN down (experts)", ExpertID: intp(1),
		},
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	return m
}

func embdRead(ts float64) trace.Entry {
	return trace.Entry{
		TimestampRelativeMS: ts,
		OperationType:       "GET_ROWS",
		Sources: []trace.Source{
			{Name: "token_embd.weight", SizeBytes: 64, MemorySource: trace.SourceDisk},
		},
	}
}

func expertRead(ts float64, experts ...int32) trace.Entry {
	return trace.Entry{
		TimestampRelativeMS: ts,
		OperationType:       "MUL_MAT_ID",
		ExpertIDs:           experts,
		Sources: []trace.Source{
			{Name: "blk.0.ffn_down_exps.weight", SizeBytes: 128, MemorySource: trace.SourceDisk},
		},
	}
}

func testRecordings(t *testing.T) []*trace.Recording {
	t.Helper()
	rec0, err := trace.NewRecording(trace.Metadata{}, []trace.Entry{
		embdRead(0),
		expertRead(1.0, 1, 0),
	})
	if err != nil {
		t.Fatalf("NewRecording: %v", err)
	}
	rec1, err := trace.NewRecording(trace.Metadata{}, []trace.Entry{
		embdRead(0),
		expertRead(0.5, 1),
	})
	if err != nil {
		t.Fatalf("NewRecording: %v", err)
	}
	return []*trace.Recording{rec0, rec1}
}

func accumulatedSnapshot(t *testing.T) *heatmap.Snapshot {
	t.Helper()
	m := testLayout(t)
	counts := heatmap.Accumulate(m, testRecordings(t), heatmap.Options{})
	return heatmap.BuildSnapshot(m, counts, heatmap.NewScale(counts))
}
