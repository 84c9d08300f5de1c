package export

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longbow-spyglass/internal/heatmap"
	"github.com/23skdu/longbow-spyglass/internal/layout"
)

// NewSnapshotRecord builds one Arrow record from a snapshot. The caller owns
// the returned record and must Release it.
func NewSnapshotRecord(mem memory.Allocator, snap *heatmap.Snapshot) arrow.Record {
	b := array.NewRecordBuilder(mem, SnapshotSchema)
	defer b.Release()

	for i := range snap.Rows {
		r := &snap.Rows[i]
		b.Field(0).(*array.StringBuilder).Append(r.Name)
		b.Field(1).(*array.Uint64Builder).Append(r.OffsetStart)
		b.Field(2).(*array.Uint64Builder).Append(r.OffsetEnd)
		b.Field(3).(*array.Uint64Builder).Append(r.SizeBytes)
		b.Field(4).(*array.StringBuilder).Append(string(r.Category))
		appendNullableInt(b.Field(5).(*array.Int32Builder), r.LayerID)
		appendNullableInt(b.Field(6).(*array.Int32Builder), r.ExpertID)
		b.Field(7).(*array.Uint64Builder).Append(r.Count)
		b.Field(8).(*array.Float64Builder).Append(r.Intensity)
	}
	return b.NewRecord()
}

// NewLayoutRecord builds one Arrow record describing the region catalog.
func NewLayoutRecord(mem memory.Allocator, m *layout.Map) arrow.Record {
	b := array.NewRecordBuilder(mem, LayoutSchema)
	defer b.Release()

	for _, t := range m.Tensors() {
		b.Field(0).(*array.StringBuilder).Append(t.Name)
		b.Field(1).(*array.Uint64Builder).Append(t.OffsetStart)
		b.Field(2).(*array.Uint64Builder).Append(t.OffsetEnd)
		b.Field(3).(*array.Uint64Builder).Append(t.SizeBytes)
		b.Field(4).(*array.StringBuilder).Append(string(t.Category))
		b.Field(5).(*array.StringBuilder).Append(t.Component)
		b.Field(6).(*array.StringBuilder).Append(t.ComponentType)
		appendNullableInt(b.Field(7).(*array.Int32Builder), t.LayerID)
		appendNullableInt(b.Field(8).(*array.Int32Builder), t.ExpertID)
	}
	return b.NewRecord()
}

func appendNullableInt(b *array.Int32Builder, v *int) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(int32(*v))
}

// SnapshotRows decodes a record produced with SnapshotSchema back into rows.
// Only the columns the schema carries are populated; shape and component
// metadata live in the layout, not the snapshot stream.
func SnapshotRows(rec arrow.Record) ([]heatmap.Row, error) {
	if !rec.Schema().Equal(SnapshotSchema) {
		return nil, fmt.Errorf("record schema mismatch: got %v", rec.Schema())
	}

	names := rec.Column(0).(*array.String)
	starts := rec.Column(1).(*array.Uint64)
	ends := rec.Column(2).(*array.Uint64)
	sizes := rec.Column(3).(*array.Uint64)
	categories := rec.Column(4).(*array.String)
	layers := rec.Column(5).(*array.Int32)
	experts := rec.Column(6).(*array.Int32)
	counts := rec.Column(7).(*array.Uint64)
	intensities := rec.Column(8).(*array.Float64)

	rows := make([]heatmap.Row, int(rec.NumRows()))
	for i := range rows {
		rows[i] = heatmap.Row{
			Tensor: layout.Tensor{
				Name:        names.Value(i),
				OffsetStart: starts.Value(i),
				OffsetEnd:   ends.Value(i),
				SizeBytes:   sizes.Value(i),
				Category:    layout.Category(categories.Value(i)),
				LayerID:     nullableInt(layers, i),
				ExpertID:    nullableInt(experts, i),
			},
			Count:     counts.Value(i),
			Intensity: intensities.Value(i),
		}
	}
	return rows, nil
}

func nullableInt(arr *array.Int32, i int) *int {
	if arr.IsNull(i) {
		return nil
	}
	v := int(arr.Value(i))
	return &v
}
