// Package export serializes heatmap snapshots and layouts as Arrow tables
// and serves them over Arrow Flight. The same columnar shape backs the IPC
// file export and the Flight streams, so downstream notebooks read both
// identically.
package export

import "github.com/apache/arrow-go/v18/arrow"

// SnapshotSchema is the columnar shape of one heatmap snapshot: one row per
// layout region, in file-offset order. layer_id and expert_id are null for
// regions outside transformer blocks and non-expert tensors respectively.
var SnapshotSchema = arrow.NewSchema([]arrow.Field{
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "offset_start", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "offset_end", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "size_bytes", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "category", Type: arrow.BinaryTypes.String},
	{Name: "layer_id", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: "expert_id", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: "count", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "intensity", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// LayoutSchema describes the model layout without counts, for consumers that
// only need the region catalog.
var LayoutSchema = arrow.NewSchema([]arrow.Field{
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "offset_start", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "offset_end", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "size_bytes", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "category", Type: arrow.BinaryTypes.String},
	{Name: "component", Type: arrow.BinaryTypes.String},
	{Name: "component_type", Type: arrow.BinaryTypes.String},
	{Name: "layer_id", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: "expert_id", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
}, nil)
