// Package layout models the byte layout of a GGUF model file as an immutable
// catalog of named tensor regions. A Map is built once per model and shared by
// every trace query against that model.
package layout

import (
	"sort"
	"strings"
)

// Category classifies a tensor region by its role in the network.
type Category string

const (
	CategoryEmbedding Category = "embedding"
	CategoryAttention Category = "attention"
	CategoryFFN       Category = "ffn"
	CategoryNorm      Category = "norm"
	CategoryOther     Category = "other"
)

// ParseCategory maps a raw category string to a known Category.
// Unrecognized values fold to CategoryOther.
func ParseCategory(s string) Category {
	switch Category(strings.ToLower(s)) {
	case CategoryEmbedding:
		return CategoryEmbedding
	case CategoryAttention:
		return CategoryAttention
	case CategoryFFN:
		return CategoryFFN
	case CategoryNorm:
		return CategoryNorm
	default:
		return CategoryOther
	}
}

// Tensor is one contiguous byte region of the model file. For MoE models the
// per-expert slices of a routed tensor appear as separate regions whose names
// carry an "[expert]" suffix, with ExpertID set.
type Tensor struct {
	Name          string   `json:"name"`
	OffsetStart   uint64   `json:"offset_start"`
	OffsetEnd     uint64   `json:"offset_end"`
	SizeBytes     uint64   `json:"size_bytes"`
	Shape         []uint64 `json:"shape"`
	Category      Category `json:"category"`
	LayerID       *int     `json:"layer_id"`
	Component     string   `json:"component"`
	ComponentType string   `json:"component_type"`
	ExpertID      *int     `json:"expert_id"`
}

// Metadata carries the model-level counters recorded alongside the layout.
type Metadata struct {
	NLayers  int `json:"n_layers"`
	NVocab   int `json:"n_vocab"`
	NEmbd    int `json:"n_embd"`
	NTensors int `json:"n_tensors"`
}

// Map is a validated, immutable tensor catalog ordered by file offset.
type Map struct {
	modelName      string
	totalSizeBytes uint64
	meta           Metadata

	tensors    []Tensor
	byName     map[string]int
	byLayer    map[int][]int
	byCategory map[Category][]int
}

// NewMap validates the tensor list and builds the catalog. It rejects
// duplicate names, regions whose size disagrees with their span, overlapping
// regions, and regions extending past totalSizeBytes (when non-zero).
func NewMap(modelName string, totalSizeBytes uint64, meta Metadata, tensors []Tensor) (*Map, error) {
	m := &Map{
		modelName:      modelName,
		totalSizeBytes: totalSizeBytes,
		meta:           meta,
		tensors:        append([]Tensor(nil), tensors...),
		byName:         make(map[string]int, len(tensors)),
		byLayer:        make(map[int][]int),
		byCategory:     make(map[Category][]int),
	}

	sort.SliceStable(m.tensors, func(i, j int) bool {
		if m.tensors[i].OffsetStart != m.tensors[j].OffsetStart {
			return m.tensors[i].OffsetStart < m.tensors[j].OffsetStart
		}
		return m.tensors[i].Name < m.tensors[j].Name
	})

	for i := range m.tensors {
		t := &m.tensors[i]
		if _, dup := m.byName[t.Name]; dup {
			return nil, DuplicateTensorError{Name: t.Name}
		}
		if t.OffsetEnd < t.OffsetStart || t.OffsetEnd-t.OffsetStart != t.SizeBytes {
			return nil, SpanError{Name: t.Name, Start: t.OffsetStart, End: t.OffsetEnd, SizeBytes: t.SizeBytes}
		}
		if totalSizeBytes > 0 && t.OffsetEnd > totalSizeBytes {
			return nil, BoundsError{Name: t.Name, End: t.OffsetEnd, Total: totalSizeBytes}
		}
		if i > 0 {
			prev := &m.tensors[i-1]
			if prev.OffsetEnd > t.OffsetStart {
				return nil, OverlapError{A: prev.Name, B: t.Name}
			}
		}
		m.byName[t.Name] = i
		if t.LayerID != nil {
			m.byLayer[*t.LayerID] = append(m.byLayer[*t.LayerID], i)
		}
		m.byCategory[t.Category] = append(m.byCategory[t.Category], i)
	}

	return m, nil
}

func (m *Map) ModelName() string      { return m.modelName }
func (m *Map) TotalSizeBytes() uint64 { return m.totalSizeBytes }
func (m *Map) Metadata() Metadata     { return m.meta }
func (m *Map) Len() int               { return len(m.tensors) }

// TotalSizeGB reports the declared file size in gigabytes.
func (m *Map) TotalSizeGB() float64 {
	return float64(m.totalSizeBytes) / (1024 * 1024 * 1024)
}

// Tensors returns all regions in ascending offset order.
// The slice is shared; callers must treat it as read-only.
func (m *Map) Tensors() []Tensor { return m.tensors }

// Lookup finds a region by exact name.
func (m *Map) Lookup(name string) (Tensor, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Tensor{}, false
	}
	return m.tensors[i], true
}

// ByCategory returns the regions of one category in offset order.
func (m *Map) ByCategory(c Category) []Tensor {
	return m.collect(m.byCategory[c])
}

// ByLayer returns the regions attributed to one transformer layer.
func (m *Map) ByLayer(layer int) []Tensor {
	return m.collect(m.byLayer[layer])
}

// NonLayer returns the regions with no layer attribution, such as the token
// embedding and the output head.
func (m *Map) NonLayer() []Tensor {
	var out []Tensor
	for i := range m.tensors {
		if m.tensors[i].LayerID == nil {
			out = append(out, m.tensors[i])
		}
	}
	return out
}

func (m *Map) collect(idx []int) []Tensor {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Tensor, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.tensors[i])
	}
	return out
}
