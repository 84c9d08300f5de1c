package trace

import (
	"encoding/json"
	"fmt"
	"os"
)

// fileModel matches the on-disk token trace schema.
type fileModel struct {
	Metadata Metadata `json:"metadata"`
	Entries  []Entry  `json:"entries"`
}

// Parse decodes a token trace document and builds a validated Recording.
func Parse(data []byte) (*Recording, error) {
	var f fileModel
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode trace: %w", err)
	}
	r, err := NewRecording(f.Metadata, f.Entries)
	if err != nil {
		return nil, fmt.Errorf("validate trace: %w", err)
	}
	return r, nil
}

// LoadFile reads and parses one token trace file.
func LoadFile(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return Parse(data)
}
