package heatmap

import (
	"fmt"
	"strings"

	"github.com/23skdu/longbow-spyglass/internal/trace"
)

// TopKExperts is the fixed fan-out width for routed MoE operations: only the
// first four routed experts of an entry are charged, regardless of how many
// the trace recorded.
const TopKExperts = 4

// IsExpertTensor reports whether a source name denotes per-expert MoE
// weights. Matching is by substring, so wrapped or prefixed tensor names
// behave the same as canonical ones.
func IsExpertTensor(name string) bool {
	return strings.Contains(name, "_exps.weight") || strings.Contains(name, "_exps.bias")
}

// ExpertKey synthesizes the per-expert access key for an expert tensor.
// It matches the region names MoE layouts use for expert slices.
func ExpertKey(name string, expert int32) string {
	return fmt.Sprintf("%s[%d]", name, expert)
}

// Options selects which memory source qualifies for counting.
// The zero value counts disk reads.
type Options struct {
	Source trace.MemorySource
}

func (o Options) source() trace.MemorySource {
	if o.Source == "" {
		return trace.SourceDisk
	}
	return o.Source
}

// chargeEntry applies one entry to the table: sources of other memory kinds
// are skipped, expert tensors with routing fan out to the top-K expert keys,
// and everything else charges the plain name. Every query path uses this same
// function, windowed or not.
func chargeEntry(t CountTable, e *trace.Entry, src trace.MemorySource) {
	for i := range e.Sources {
		s := &e.Sources[i]
		if s.MemorySource != src {
			continue
		}
		if IsExpertTensor(s.Name) && len(e.ExpertIDs) > 0 {
			k := len(e.ExpertIDs)
			if k > TopKExperts {
				k = TopKExperts
			}
			for j := 0; j < k; j++ {
				t[ExpertKey(s.Name, e.ExpertIDs[j])]++
			}
		} else {
			t[s.Name]++
		}
	}
}
