package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMemoryMap = `{
  "model_name": "test:moe",
  "total_size_bytes": 1200,
  "metadata": {"n_layers": 1, "n_vocab": 16, "n_embd": 8, "n_tensors": 3},
  "tensors": [
    {"name": "token_embd.weight", "offset_start": 0, "offset_end": 400,
     "size_bytes": 400, "shape": [8, 16], "category": "embedding",
     "layer_id": null, "component": "token_embd",
     "component_type": "Token embedding", "expert_id": null},
    {"name": "blk.0.attn_q.weight", "offset_start": 400, "offset_end": 800,
     "size_bytes": 400, "shape": [8, 8], "category": "attention",
     "layer_id": 0, "component": "attn_q",
     "component_type": "Query projection", "expert_id": null},
    {"name": "blk.0.ffn_down_exps.weight", "offset_start": 800, "offset_end": 1200,
     "size_bytes": 400, "shape": [8, 8, 4], "category": "ffn",
     "layer_id": 0, "component": "ffn_down_exps",
     "component_type": "FFN down (experts)", "expert_id": null}
  ]
}`

func testTraceJSON(token int) string {
	return fmt.Sprintf(`{
  "metadata": {"total_entries": 2, "duration_ms": 4.0,
    "timestamp_start_ns": 1771200000000000000, "format_version": "2.0"},
  "entries": [
    {"entry_id": 0, "timestamp_ns": 1771200000000000100,
     "timestamp_relative_ms": 0.0, "token_id": %d, "layer_id": null,
     "thread_id": 1, "phase": "GENERATE", "operation_type": "GET_ROWS",
     "dst_name": "inp_embd",
     "sources": [{"name": "token_embd.weight", "tensor_ptr": "0x1",
       "size_bytes": 64, "layer_id": null, "memory_source": "DISK",
       "disk_offset": 0}],
     "expert_ids": [], "num_experts": 0},
    {"entry_id": 1, "timestamp_ns": 1771200000000003000,
     "timestamp_relative_ms": 3.0, "token_id": %d, "layer_id": 0,
     "thread_id": 1, "phase": "GENERATE", "operation_type": "MUL_MAT_ID",
     "dst_name": "ffn_out",
     "sources": [{"name": "blk.0.ffn_down_exps.weight", "tensor_ptr": "0x2",
       "size_bytes": 128, "layer_id": 0, "memory_source": "DISK",
       "disk_offset": 800}],
     "expert_ids": [3, 1], "num_experts": 4}
  ]
}`, token, token)
}

func writeTestSession(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "memory-map.json"), []byte(testMemoryMap), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "traces"), 0o755))
	for _, token := range []int{0, 1} {
		path := filepath.Join(root, "traces", fmt.Sprintf("token-%05d.json", token))
		require.NoError(t, os.WriteFile(path, []byte(testTraceJSON(token)), 0o644))
	}
	return root
}

// runCommand executes the CLI with args and returns its combined output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestHeatmapCommand(t *testing.T) {
	root := writeTestSession(t)

	out, err := runCommand(t, "heatmap", "--session", root, "--token", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "test:moe")
	assert.Contains(t, out, "token_embd.weight")
}

func TestHeatmapCommandWindowed(t *testing.T) {
	root := writeTestSession(t)

	// Cursor before the MoE entry at t=3: only the embedding read counts,
	// but normalization still comes from the full timeline.
	out, err := runCommand(t, "heatmap", "--session", root, "--token", "0", "--cursor", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "window <= 1.00 ms")
}

func TestHeatmapCommandMissingTrace(t *testing.T) {
	root := writeTestSession(t)

	_, err := runCommand(t, "heatmap", "--session", root, "--token", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token 7")
}

func TestHeatmapCommandNoSession(t *testing.T) {
	_, err := runCommand(t, "heatmap")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session directory")
}

func TestHeatmapCommandInvalidSource(t *testing.T) {
	root := writeTestSession(t)

	_, err := runCommand(t, "heatmap", "--session", root, "--source", "TAPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid source")
}

func TestHeatmapCommandJSONExport(t *testing.T) {
	root := writeTestSession(t)
	outPath := filepath.Join(t.TempDir(), "snap.json")

	_, err := runCommand(t, "heatmap", "--session", root, "--token", "0", "--json", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "token_embd.weight")
}

func TestAccumulateCommand(t *testing.T) {
	root := writeTestSession(t)

	out, err := runCommand(t, "accumulate", "--session", root)
	require.NoError(t, err)
	// Two tokens, one embedding read each.
	assert.Contains(t, out, "token_embd.weight")
	assert.Contains(t, out, "test:moe")
}

func TestTraceCommandStats(t *testing.T) {
	root := writeTestSession(t)

	out, err := runCommand(t, "trace", "--session", root, "--token", "0", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries")
	assert.Contains(t, out, "MUL_MAT_ID")
}

func TestTraceCommandLayerFilter(t *testing.T) {
	root := writeTestSession(t)

	out, err := runCommand(t, "trace", "--session", root, "--token", "0", "--layer", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 2 entries")
	assert.Contains(t, out, "experts [3 1]")

	out, err = runCommand(t, "trace", "--session", root, "--token", "0", "--layer", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 2 entries")
	assert.Contains(t, out, "GET_ROWS")
}

func TestTraceCommandInvalidLayer(t *testing.T) {
	root := writeTestSession(t)

	_, err := runCommand(t, "trace", "--session", root, "--token", "0", "--layer", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid layer")
}

func TestLayoutCommand(t *testing.T) {
	root := writeTestSession(t)

	out, err := runCommand(t, "layout", "--session", root)
	require.NoError(t, err)
	assert.Contains(t, out, "3 regions")
	assert.Contains(t, out, "blk.0.ffn_down_exps.weight")
}

func TestLayoutCommandCategoryFilter(t *testing.T) {
	root := writeTestSession(t)

	out, err := runCommand(t, "layout", "--session", root, "--category", "attention")
	require.NoError(t, err)
	assert.Contains(t, out, "blk.0.attn_q.weight")
	assert.NotContains(t, out, "token_embd.weight")

	_, err = runCommand(t, "layout", "--session", root, "--category", "bogus")
	require.Error(t, err)
}

func TestScanAndSessionsCommands(t *testing.T) {
	root := writeTestSession(t)
	db := filepath.Join(t.TempDir(), "index.db")

	out, err := runCommand(t, "scan", "--session", root, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed")
	assert.Contains(t, out, "2 traces")

	out, err = runCommand(t, "sessions", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "test:moe")
	assert.Contains(t, out, root)
}

func TestSessionsCommandEmptyIndex(t *testing.T) {
	db := filepath.Join(t.TempDir(), "index.db")

	out, err := runCommand(t, "sessions", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "no sessions indexed")
}
