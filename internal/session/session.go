// Package session reads a recorded tracing session from disk. A session
// directory holds one memory-map.json describing the model layout plus a
// traces/ subdirectory with one token-NNNNN.json recording per generated
// token.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/23skdu/longbow-spyglass/internal/layout"
	"github.com/23skdu/longbow-spyglass/internal/logger"
	"github.com/23skdu/longbow-spyglass/internal/metrics"
	"github.com/23skdu/longbow-spyglass/internal/trace"
)

const (
	// LayoutFile is the layout file name inside a session directory.
	LayoutFile = "memory-map.json"

	// TracesDir is the per-token trace subdirectory name.
	TracesDir = "traces"

	tracePattern = "token-%05d.json"
)

// Dir is an open session directory.
type Dir struct {
	root string
	log  *logger.Logger
}

// Open validates that root exists and contains a layout file. Trace files
// are discovered lazily; a session with no traces is still openable.
func Open(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open session %s: not a directory", root)
	}
	if _, err := os.Stat(filepath.Join(root, LayoutFile)); err != nil {
		return nil, &NotASessionError{Root: root, Missing: LayoutFile}
	}
	return &Dir{
		root: root,
		log:  logger.Log.Component("session"),
	}, nil
}

// Root returns the session directory path.
func (d *Dir) Root() string {
	return d.root
}

// LayoutPath returns the path of the session's layout file.
func (d *Dir) LayoutPath() string {
	return filepath.Join(d.root, LayoutFile)
}

// TracePath returns the path a trace for the given token would live at,
// whether or not it exists.
func (d *Dir) TracePath(token int) string {
	return filepath.Join(d.root, TracesDir, fmt.Sprintf(tracePattern, token))
}

// Layout parses and validates the session's memory layout.
func (d *Dir) Layout() (*layout.Map, error) {
	start := time.Now()
	m, err := layout.LoadFile(d.LayoutPath())
	if err != nil {
		return nil, err
	}
	metrics.RecordLayoutLoaded(m.Len(), time.Since(start))
	d.log.Debug("loaded layout",
		"model", m.ModelName(),
		"tensors", m.Len(),
		"size_gb", m.TotalSizeGB())
	return m, nil
}

// Trace loads the recording for one token. A missing file is reported as
// *TraceNotFoundError so callers can distinguish absent data from corrupt
// data.
func (d *Dir) Trace(token int) (*trace.Recording, error) {
	path := d.TracePath(token)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &TraceNotFoundError{Token: token, Path: path}
	}
	start := time.Now()
	r, err := trace.LoadFile(path)
	if err != nil {
		return nil, err
	}
	st := r.Stats()
	metrics.RecordTraceLoaded(r.Len(), st.DiskEntries, st.ExpertEntries, time.Since(start))
	d.log.Debug("loaded trace", "token", token, "entries", r.Len())
	return r, nil
}

// Tokens lists the token indices that have trace files, in ascending order.
func (d *Dir) Tokens() ([]int, error) {
	paths, err := filepath.Glob(filepath.Join(d.root, TracesDir, "token-*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan traces in %s: %w", d.root, err)
	}
	tokens := make([]int, 0, len(paths))
	for _, p := range paths {
		var token int
		if _, err := fmt.Sscanf(filepath.Base(p), tracePattern, &token); err != nil {
			d.log.Warn("skipping unrecognized trace file", "path", p)
			continue
		}
		tokens = append(tokens, token)
	}
	sort.Ints(tokens)
	return tokens, nil
}

// Recordings loads every trace in the session, in token order. The returned
// slices are parallel: tokens[i] is the token index of recs[i].
func (d *Dir) Recordings() (tokens []int, recs []*trace.Recording, err error) {
	tokens, err = d.Tokens()
	if err != nil {
		return nil, nil, err
	}
	recs = make([]*trace.Recording, 0, len(tokens))
	for _, token := range tokens {
		r, err := d.Trace(token)
		if err != nil {
			return nil, nil, err
		}
		recs = append(recs, r)
	}
	d.log.Info("loaded session traces", "root", d.root, "count", len(recs))
	return tokens, recs, nil
}
