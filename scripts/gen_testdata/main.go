// Generates a small synthetic session directory (memory-map.json plus a few
// token traces) for demos and manual testing. The fake model has one MoE
// layer so expert fan-out shows up in the output.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/23skdu/longbow-spyglass/internal/layout"
	"github.com/23skdu/longbow-spyglass/internal/trace"
)

var (
	outDir  = flag.String("out", "testdata/session", "Output session directory")
	nTokens = flag.Int("tokens", 3, "Number of token traces to generate")
)

const (
	embdSize = 4096
	attnSize = 2048
	expSize  = 8192
	nExperts = 8
)

func intPtr(v int) *int { return &v }

func buildLayout() interface{} {
	tensors := []layout.Tensor{
		{
			Name: "token_embd.weight", OffsetStart: 0, OffsetEnd: embdSize,
			SizeBytes: embdSize, Shape: []uint64{64, 64},
			Category: layout.CategoryEmbedding,
			Component: "token_embd", ComponentType: "Token embedding",
		},
		{
			Name: "blk.0.attn_q.weight", OffsetStart: embdSize, OffsetEnd: embdSize + attnSize,
			SizeBytes: attnSize, Shape: []uint64{64, 32},
			Category: layout.CategoryAttention, LayerID: intPtr(0),
			Component: "attn_q", ComponentType: "Query projection",
		},
	}
	offset := uint64(embdSize + attnSize)
	for e := 0; e < nExperts; e++ {
		tensors = append(tensors, layout.Tensor{
			Name:        fmt.Sprintf("blk.0.ffn_down_exps.weight[%d]", e),
			OffsetStart: offset, OffsetEnd: offset + expSize,
			SizeBytes: expSize, Shape: []uint64{64, 128},
			Category: layout.CategoryFFN, LayerID: intPtr(0),
			Component: "ffn_down_exps", ComponentType: "FFN down (experts)",
			ExpertID: intPtr(e),
		})
		offset += expSize
	}
	return map[string]interface{}{
		"model_name":       "synthetic:moe-demo",
		"total_size_bytes": offset,
		"metadata": map[string]int{
			"n_layers": 1, "n_vocab": 64, "n_embd": 64, "n_tensors": len(tensors),
		},
		"tensors": tensors,
	}
}

func buildTrace(token int) interface{} {
	startNS := uint64(1771200000000000000)
	entries := []trace.Entry{
		{
			EntryID: 0, TimestampNS: startNS, TimestampRelativeMS: 0,
			TokenID: uint32(token), ThreadID: 1, Phase: trace.PhaseGenerate,
			OperationType: "GET_ROWS", DstName: "inp_embd",
			Sources: []trace.Source{{
				Name: "token_embd.weight", TensorPtr: "0x1000",
				SizeBytes: 64, MemorySource: trace.SourceDisk,
			}},
		},
		{
			EntryID: 1, TimestampNS: startNS + 1_000_000, TimestampRelativeMS: 1,
			TokenID: uint32(token), LayerID: intPtr(0), ThreadID: 1,
			Phase: trace.PhaseGenerate, OperationType: "MUL_MAT",
			DstName: "attn_q_out",
			Sources: []trace.Source{{
				Name: "blk.0.attn_q.weight", TensorPtr: "0x2000",
				SizeBytes: attnSize, LayerID: intPtr(0),
				MemorySource: trace.SourceDisk, DiskOffset: embdSize,
			}},
		},
		{
			EntryID: 2, TimestampNS: startNS + 3_000_000, TimestampRelativeMS: 3,
			TokenID: uint32(token), LayerID: intPtr(0), ThreadID: 1,
			Phase: trace.PhaseGenerate, OperationType: "MUL_MAT_ID",
			DstName: "ffn_moe_down",
			Sources: []trace.Source{{
				Name: "blk.0.ffn_down_exps.weight", TensorPtr: "0x3000",
				SizeBytes: expSize, LayerID: intPtr(0),
				MemorySource: trace.SourceDisk, DiskOffset: embdSize + attnSize,
			}},
			// Rotate the routing per token so different experts heat up.
			ExpertIDs: []int32{
				int32(token % nExperts), int32((token + 2) % nExperts),
				int32((token + 4) % nExperts), int32((token + 6) % nExperts),
			},
			NumExperts: nExperts,
		},
	}
	return map[string]interface{}{
		"metadata": map[string]interface{}{
			"total_entries":      len(entries),
			"duration_ms":        3.0,
			"timestamp_start_ns": startNS,
			"format_version":     "2.0",
		},
		"entries": entries,
	}
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func main() {
	flag.Parse()

	if err := os.MkdirAll(filepath.Join(*outDir, "traces"), 0o755); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := writeJSON(filepath.Join(*outDir, "memory-map.json"), buildLayout()); err != nil {
		fmt.Printf("Error writing layout: %v\n", err)
		os.Exit(1)
	}
	for token := 0; token < *nTokens; token++ {
		path := filepath.Join(*outDir, "traces", fmt.Sprintf("token-%05d.json", token))
		if err := writeJSON(path, buildTrace(token)); err != nil {
			fmt.Printf("Error writing trace %d: %v\n", token, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Wrote session with %d traces to %s\n", *nTokens, *outDir)
}
