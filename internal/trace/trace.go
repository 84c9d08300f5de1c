// Package trace models one recorded inference pass as an ordered set of
// tensor-operation entries. Recordings are loaded per generated token and are
// independent of the model layout they were captured against.
package trace

import "sort"

// MemorySource tells where an operation input was resident when read.
type MemorySource string

const (
	SourceDisk   MemorySource = "DISK"
	SourceBuffer MemorySource = "BUFFER"
)

// Phase splits a run into prompt processing and token generation.
type Phase string

const (
	PhasePrompt   Phase = "PROMPT"
	PhaseGenerate Phase = "GENERATE"
)

// Source is one input operand of a traced operation.
type Source struct {
	Name         string       `json:"name"`
	TensorPtr    string       `json:"tensor_ptr"`
	SizeBytes    uint64       `json:"size_bytes"`
	LayerID      *int         `json:"layer_id"`
	MemorySource MemorySource `json:"memory_source"`
	DiskOffset   uint64       `json:"disk_offset"`
	BufferID     uint64       `json:"buffer_id"`
}

// Entry is one traced tensor operation. ExpertIDs lists the routed experts in
// selection order; consumers only ever use a leading prefix of it.
type Entry struct {
	EntryID             uint32   `json:"entry_id"`
	TimestampNS         uint64   `json:"timestamp_ns"`
	TimestampRelativeMS float64  `json:"timestamp_relative_ms"`
	TokenID             uint32   `json:"token_id"`
	LayerID             *int     `json:"layer_id"`
	ThreadID            uint16   `json:"thread_id"`
	Phase               Phase    `json:"phase"`
	OperationType       string   `json:"operation_type"`
	DstName             string   `json:"dst_name"`
	Sources             []Source `json:"sources"`
	ExpertIDs           []int32  `json:"expert_ids"`
	NumExperts          int      `json:"num_experts"`
}

// HasDiskAccess reports whether any input was read from disk.
func (e *Entry) HasDiskAccess() bool {
	for i := range e.Sources {
		if e.Sources[i].MemorySource == SourceDisk {
			return true
		}
	}
	return false
}

// TotalInputBytes sums the sizes of all inputs.
func (e *Entry) TotalInputBytes() uint64 {
	var total uint64
	for i := range e.Sources {
		total += e.Sources[i].SizeBytes
	}
	return total
}

// IsExpertRouted reports whether the operation carried expert routing.
func (e *Entry) IsExpertRouted() bool { return len(e.ExpertIDs) > 0 }

// Metadata carries the recording-level header of a trace file.
type Metadata struct {
	TotalEntries     uint32  `json:"total_entries"`
	DurationMS       float64 `json:"duration_ms"`
	TimestampStartNS uint64  `json:"timestamp_start_ns"`
	FormatVersion    string  `json:"format_version"`
}

// Recording is an immutable trace with entries in ascending
// timestamp_relative_ms order. The ordering is checked at construction so
// that time-windowed scans can stop at the first entry past their cursor.
type Recording struct {
	meta    Metadata
	entries []Entry
}

// NewRecording validates entry ordering and wraps the entries.
func NewRecording(meta Metadata, entries []Entry) (*Recording, error) {
	for i := 1; i < len(entries); i++ {
		if entries[i].TimestampRelativeMS < entries[i-1].TimestampRelativeMS {
			return nil, TimestampOrderError{
				Index: i,
				Prev:  entries[i-1].TimestampRelativeMS,
				Cur:   entries[i].TimestampRelativeMS,
			}
		}
	}
	return &Recording{meta: meta, entries: entries}, nil
}

func (r *Recording) Metadata() Metadata { return r.meta }
func (r *Recording) Len() int           { return len(r.entries) }

// DurationMS reports the recorded wall time of the pass.
func (r *Recording) DurationMS() float64 { return r.meta.DurationMS }

// Entries returns the entries in timestamp order.
// The slice is shared; callers must treat it as read-only.
func (r *Recording) Entries() []Entry { return r.entries }

// Stats summarizes a recording the way the trace inspection tools report it.
type Stats struct {
	Entries         int
	DurationMS      float64
	Operations      map[string]int
	DiskEntries     int
	BufferEntries   int
	ExpertEntries   int
	Layers          []int
	TotalInputBytes uint64
}

// Stats walks the recording once and aggregates per-operation counts, source
// kinds, expert routing, layers touched and total input volume.
func (r *Recording) Stats() Stats {
	s := Stats{
		Entries:    len(r.entries),
		DurationMS: r.meta.DurationMS,
		Operations: make(map[string]int),
	}
	layers := make(map[int]struct{})
	for i := range r.entries {
		e := &r.entries[i]
		s.Operations[e.OperationType]++
		s.TotalInputBytes += e.TotalInputBytes()
		if e.HasDiskAccess() {
			s.DiskEntries++
		} else if len(e.Sources) > 0 {
			s.BufferEntries++
		}
		if e.IsExpertRouted() {
			s.ExpertEntries++
		}
		if e.LayerID != nil {
			layers[*e.LayerID] = struct{}{}
		}
	}
	for l := range layers {
		s.Layers = append(s.Layers, l)
	}
	sort.Ints(s.Layers)
	return s
}
