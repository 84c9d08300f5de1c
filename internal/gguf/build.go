package gguf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/23skdu/longbow-spyglass/internal/layout"
)

// BuildLayout converts a parsed header into a validated layout catalog with
// absolute byte offsets. Expert-routed tensors (3-D, "_exps." names) are
// split into per-expert sub-regions named "name[e]", the same key shape
// expert-aware access counting produces, so per-expert heat resolves to real
// byte ranges of the file.
func BuildLayout(f *File) (*layout.Map, error) {
	tensors := make([]layout.Tensor, 0, len(f.Tensors))
	for _, ti := range f.Tensors {
		size := ti.SizeBytes()
		if size == 0 {
			return nil, fmt.Errorf("tensor %s: unknown size for type %s", ti.Name, ti.Type)
		}
		start := f.DataOffset + ti.Offset
		cat, layerID, component, label := Categorize(ti.Name)

		if experts := expertCount(ti); experts > 1 && size%uint64(experts) == 0 {
			sub := size / uint64(experts)
			for e := 0; e < experts; e++ {
				expertID := e
				tensors = append(tensors, layout.Tensor{
					Name:          fmt.Sprintf("%s[%d]", ti.Name, e),
					OffsetStart:   start + uint64(e)*sub,
					OffsetEnd:     start + uint64(e+1)*sub,
					SizeBytes:     sub,
					Shape:         ti.Dimensions[:2],
					Category:      cat,
					LayerID:       layerID,
					Component:     component,
					ComponentType: label,
					ExpertID:      &expertID,
				})
			}
			continue
		}

		tensors = append(tensors, layout.Tensor{
			Name:          ti.Name,
			OffsetStart:   start,
			OffsetEnd:     start + size,
			SizeBytes:     size,
			Shape:         ti.Dimensions,
			Category:      cat,
			LayerID:       layerID,
			Component:     component,
			ComponentType: label,
		})
	}

	meta := layout.Metadata{
		NLayers:  int(kvInt(f.KV, archKey(f, "block_count"))),
		NVocab:   int(vocabSize(f)),
		NEmbd:    int(kvInt(f.KV, archKey(f, "embedding_length"))),
		NTensors: len(tensors),
	}

	m, err := layout.NewMap(modelName(f), f.FileSize, meta, tensors)
	if err != nil {
		return nil, fmt.Errorf("layout from %s: %w", f.Path, err)
	}
	return m, nil
}

// expertCount reports the expert dimension of a routed MoE tensor, 0 for
// everything else. llama.cpp stores expert weights as [cols, rows, experts].
func expertCount(ti *TensorInfo) int {
	if !strings.Contains(ti.Name, "_exps.") {
		return 0
	}
	if len(ti.Dimensions) != 3 {
		return 0
	}
	return int(ti.Dimensions[2])
}

func modelName(f *File) string {
	if n, ok := f.KV["general.name"].(string); ok && n != "" {
		return n
	}
	return filepath.Base(f.Path)
}

func archKey(f *File, suffix string) string {
	arch, _ := f.KV["general.architecture"].(string)
	return arch + "." + suffix
}

func vocabSize(f *File) uint64 {
	if n := kvInt(f.KV, archKey(f, "vocab_size")); n > 0 {
		return n
	}
	// fall back to the embedding table rows
	for _, ti := range f.Tensors {
		if ti.Name == "token_embd.weight" && len(ti.Dimensions) == 2 {
			return ti.Dimensions[1]
		}
	}
	return 0
}
