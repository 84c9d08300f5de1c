package trace

// Filter selects entries for inspection. Zero value matches everything.
type Filter struct {
	// Layer keeps entries attributed to one transformer layer.
	Layer *int
	// NonLayerOnly keeps entries with no layer attribution. Ignored when
	// Layer is set.
	NonLayerOnly bool
	// Operation keeps entries of one operation_type, exact match.
	Operation string
	// Source keeps entries with at least one input of this memory source.
	Source MemorySource
	// ExpertOnly keeps expert-routed entries.
	ExpertOnly bool
}

// Match reports whether the entry passes every set criterion.
func (f Filter) Match(e *Entry) bool {
	if f.Layer != nil {
		if e.LayerID == nil || *e.LayerID != *f.Layer {
			return false
		}
	} else if f.NonLayerOnly && e.LayerID != nil {
		return false
	}
	if f.Operation != "" && e.OperationType != f.Operation {
		return false
	}
	if f.Source != "" {
		found := false
		for i := range e.Sources {
			if e.Sources[i].MemorySource == f.Source {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ExpertOnly && !e.IsExpertRouted() {
		return false
	}
	return true
}

// Filter returns the entries passing f, preserving timestamp order.
func (r *Recording) Filter(f Filter) []Entry {
	var out []Entry
	for i := range r.entries {
		if f.Match(&r.entries[i]) {
			out = append(out, r.entries[i])
		}
	}
	return out
}
