package layout

import (
	"errors"
	"testing"
)

func intp(v int) *int { return &v }

func region(name string, start, size uint64, cat Category, layer *int) Tensor {
	return Tensor{
		Name:        name,
		OffsetStart: start,
		OffsetEnd:   start + size,
		SizeBytes:   size,
		Category:    cat,
		LayerID:     layer,
	}
}

func TestNewMapValidation(t *testing.T) {
	tests := []struct {
		name    string
		total   uint64
		tensors []Tensor
		wantErr error
	}{
		{
			name:  "valid",
			total: 300,
			tensors: []Tensor{
				region("a", 0, 100, CategoryEmbedding, nil),
				region("b", 100, 100, CategoryAttention, intp(0)),
				region("c", 200, 100, CategoryFFN, intp(0)),
			},
		},
		{
			name:    "empty list is a valid empty catalog",
			total:   0,
			tensors: nil,
		},
		{
			name:  "duplicate name",
			total: 300,
			tensors: []Tensor{
				region("a", 0, 100, CategoryEmbedding, nil),
				region("a", 100, 100, CategoryEmbedding, nil),
			},
			wantErr: DuplicateTensorError{Name: "a"},
		},
		{
			name:  "size disagrees with span",
			total: 300,
			tensors: []Tensor{
				{Name: "a", OffsetStart: 0, OffsetEnd: 100, SizeBytes: 64},
			},
			wantErr: SpanError{Name: "a", Start: 0, End: 100, SizeBytes: 64},
		},
		{
			name:  "overlapping regions",
			total: 300,
			tensors: []Tensor{
				region("a", 0, 150, CategoryEmbedding, nil),
				region("b", 100, 100, CategoryAttention, intp(0)),
			},
			wantErr: OverlapError{A: "a", B: "b"},
		},
		{
			name:  "region past declared size",
			total: 150,
			tensors: []Tensor{
				region("a", 0, 100, CategoryEmbedding, nil),
				region("b", 100, 100, CategoryAttention, intp(0)),
			},
			wantErr: BoundsError{Name: "b", End: 200, Total: 150},
		},
		{
			name:  "zero total skips bounds check",
			total: 0,
			tensors: []Tensor{
				region("a", 0, 100, CategoryEmbedding, nil),
				region("b", 1 << 40, 100, CategoryAttention, intp(0)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMap("test-model", tt.total, Metadata{}, tt.tensors)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if m.Len() != len(tt.tensors) {
					t.Errorf("expected %d tensors, got %d", len(tt.tensors), m.Len())
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if err.Error() != tt.wantErr.Error() {
				t.Errorf("expected error %q, got %q", tt.wantErr, err)
			}
		})
	}
}

func TestNewMapOrdersByOffset(t *testing.T) {
	tensors := []Tensor{
		region("c", 200, 100, CategoryFFN, intp(1)),
		region("a", 0, 100, CategoryEmbedding, nil),
		region("b", 100, 100, CategoryAttention, intp(0)),
	}
	m, err := NewMap("test-model", 300, Metadata{}, tensors)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}

	want := []string{"a", "b", "c"}
	for i, tn := range m.Tensors() {
		if tn.Name != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], tn.Name)
		}
	}
}

func TestLookup(t *testing.T) {
	m, err := NewMap("test-model", 200, Metadata{}, []Tensor{
		region("blk.0.attn_q.weight", 0, 100, CategoryAttention, intp(0)),
		region("output.weight", 100, 100, CategoryOther, nil),
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}

	got, ok := m.Lookup("blk.0.attn_q.weight")
	if !ok {
		t.Fatal("expected lookup hit")
	}
	if got.SizeBytes != 100 || got.Category != CategoryAttention {
		t.Errorf("unexpected tensor: %+v", got)
	}

	if _, ok := m.Lookup("missing"); ok {
		t.Error("expected lookup miss for unknown name")
	}
}

func TestGroupLookups(t *testing.T) {
	m, err := NewMap("test-model", 500, Metadata{NLayers: 2}, []Tensor{
		region("token_embd.weight", 0, 100, CategoryEmbedding, nil),
		region("blk.0.attn_q.weight", 100, 100, CategoryAttention, intp(0)),
		region("blk.0.ffn_down.weight", 200, 100, CategoryFFN, intp(0)),
		region("blk.1.attn_q.weight", 300, 100, CategoryAttention, intp(1)),
		region("output_norm.weight", 400, 100, CategoryNorm, nil),
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}

	if got := m.ByLayer(0); len(got) != 2 {
		t.Errorf("layer 0: expected 2 tensors, got %d", len(got))
	}
	if got := m.ByLayer(7); got != nil {
		t.Errorf("layer 7: expected nil, got %v", got)
	}
	if got := m.ByCategory(CategoryAttention); len(got) != 2 {
		t.Errorf("attention: expected 2 tensors, got %d", len(got))
	}
	nonLayer := m.NonLayer()
	if len(nonLayer) != 2 {
		t.Fatalf("non-layer: expected 2 tensors, got %d", len(nonLayer))
	}
	if nonLayer[0].Name != "token_embd.weight" {
		t.Errorf("non-layer order: got %s first", nonLayer[0].Name)
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"embedding", CategoryEmbedding},
		{"attention", CategoryAttention},
		{"ffn", CategoryFFN},
		{"norm", CategoryNorm},
		{"FFN", CategoryFFN},
		{"output", CategoryOther},
		{"", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseCategory(tt.in); got != tt.want {
				t.Errorf("ParseCategory(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	_, err := NewMap("m", 0, Metadata{}, []Tensor{
		region("x", 0, 10, CategoryOther, nil),
		region("x", 10, 10, CategoryOther, nil),
	})
	var dup DuplicateTensorError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateTensorError, got %T", err)
	}
	if dup.Name != "x" {
		t.Errorf("expected duplicate name x, got %s", dup.Name)
	}
}

func TestTotalSizeGB(t *testing.T) {
	m, err := NewMap("m", 2*1024*1024*1024, Metadata{}, nil)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	if got := m.TotalSizeGB(); got != 2.0 {
		t.Errorf("expected 2.0 GB, got %f", got)
	}
}
