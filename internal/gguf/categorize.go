package gguf

import (
	"strconv"
	"strings"

	"github.com/23skdu/longbow-spyglass/internal/layout"
)

// componentLabels maps llama.cpp component names to the human labels used in
// layout metadata.
var componentLabels = map[string]string{
	"token_embd":      "Token embedding",
	"output":          "Output projection",
	"output_norm":     "Output norm",
	"rope_freqs":      "RoPE frequencies",
	"attn_q":          "Query projection",
	"attn_k":          "Key projection",
	"attn_v":          "Value projection",
	"attn_qkv":        "Fused QKV projection",
	"attn_output":     "Attention output",
	"attn_norm":       "Attention norm",
	"attn_norm_2":     "Attention norm 2",
	"attn_q_norm":     "Query norm",
	"attn_k_norm":     "Key norm",
	"ffn_gate":        "FFN gate",
	"ffn_up":          "FFN up",
	"ffn_down":        "FFN down",
	"ffn_norm":        "FFN norm",
	"ffn_gate_inp":    "MoE router",
	"ffn_gate_exps":   "FFN gate (experts)",
	"ffn_up_exps":     "FFN up (experts)",
	"ffn_down_exps":   "FFN down (experts)",
	"ffn_gate_shexp":  "FFN gate (shared expert)",
	"ffn_up_shexp":    "FFN up (shared expert)",
	"ffn_down_shexp":  "FFN down (shared expert)",
	"exp_probs_b":     "Expert bias",
	"ffn_exp_probs_b": "Expert bias",
}

// Categorize derives layout metadata from a llama.cpp tensor name: the
// functional category, the transformer layer when the name is layer-scoped,
// and the component with its display label.
func Categorize(name string) (cat layout.Category, layerID *int, component, label string) {
	component = name
	if i := strings.LastIndexByte(component, '.'); i >= 0 {
		switch component[i+1:] {
		case "weight", "bias":
			component = component[:i]
		}
	}

	if rest, ok := strings.CutPrefix(component, "blk."); ok {
		if numStr, comp, ok := strings.Cut(rest, "."); ok {
			if n, err := strconv.Atoi(numStr); err == nil {
				layerID = &n
				component = comp
			}
		}
	}

	label = componentLabels[component]
	if label == "" {
		label = component
	}

	switch {
	case component == "token_embd":
		cat = layout.CategoryEmbedding
	case strings.Contains(component, "norm"):
		cat = layout.CategoryNorm
	case strings.HasPrefix(component, "attn_"):
		cat = layout.CategoryAttention
	case strings.HasPrefix(component, "ffn_") || strings.Contains(component, "exp"):
		cat = layout.CategoryFFN
	default:
		cat = layout.CategoryOther
	}
	return cat, layerID, component, label
}
