package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// fileModel matches the on-disk memory-map.json schema.
type fileModel struct {
	ModelName      string   `json:"model_name"`
	TotalSizeBytes uint64   `json:"total_size_bytes"`
	Metadata       Metadata `json:"metadata"`
	Tensors        []Tensor `json:"tensors"`
}

// Parse decodes a memory-map.json document and builds a validated Map.
func Parse(data []byte) (*Map, error) {
	var f fileModel
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode memory map: %w", err)
	}
	for i := range f.Tensors {
		f.Tensors[i].Category = ParseCategory(string(f.Tensors[i].Category))
	}
	m, err := NewMap(f.ModelName, f.TotalSizeBytes, f.Metadata, f.Tensors)
	if err != nil {
		return nil, fmt.Errorf("validate memory map: %w", err)
	}
	return m, nil
}

// LoadFile reads and parses a memory-map.json file.
func LoadFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read memory map: %w", err)
	}
	return Parse(data)
}
