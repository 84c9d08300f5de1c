package gguf

import "fmt"

// ModelInfo summarizes the model-level metadata of a parsed header.
type ModelInfo struct {
	Architecture    string
	Name            string
	BlockCount      int
	ContextLength   int
	EmbeddingLength int
	ExpertCount     int
	ExpertUsedCount int
	TensorCount     int
	TotalParameters int64
	WeightBytes     uint64
}

// Info derives a ModelInfo from the KV metadata and tensor descriptors.
func (f *File) Info() ModelInfo {
	arch, _ := f.KV["general.architecture"].(string)
	name, _ := f.KV["general.name"].(string)

	info := ModelInfo{
		Architecture:    arch,
		Name:            name,
		BlockCount:      int(kvInt(f.KV, arch+".block_count")),
		ContextLength:   int(kvInt(f.KV, arch+".context_length", "general.context_length")),
		EmbeddingLength: int(kvInt(f.KV, arch+".embedding_length", arch+".hidden_size")),
		ExpertCount:     int(kvInt(f.KV, arch+".expert_count")),
		ExpertUsedCount: int(kvInt(f.KV, arch+".expert_used_count", arch+".expert_used_top_k")),
		TensorCount:     len(f.Tensors),
	}

	for _, t := range f.Tensors {
		info.TotalParameters += int64(t.Elements())
		info.WeightBytes += t.SizeBytes()
	}
	return info
}

func (i ModelInfo) String() string {
	return fmt.Sprintf(`Architecture:     %s
Model Name:       %s
Layers:           %d
Context Length:   %d
Embedding Length: %d
Expert Count:     %d
Experts Used:     %d
Tensors:          %d
Parameters:       %.2fB
Weight Bytes:     %d
`,
		i.Architecture,
		i.Name,
		i.BlockCount,
		i.ContextLength,
		i.EmbeddingLength,
		i.ExpertCount,
		i.ExpertUsedCount,
		i.TensorCount,
		float64(i.TotalParameters)/1e9,
		i.WeightBytes,
	)
}

// kvInt reads the first present integer-typed key, tolerating the width
// variations GGUF writers produce.
func kvInt(kv map[string]interface{}, keys ...string) uint64 {
	for _, key := range keys {
		if val, ok := kv[key]; ok {
			switch v := val.(type) {
			case uint64:
				return v
			case int64:
				return uint64(v)
			case uint32:
				return uint64(v)
			case int32:
				return uint64(v)
			case uint16:
				return uint64(v)
			case uint8:
				return uint64(v)
			case int:
				return uint64(v)
			}
		}
	}
	return 0
}
