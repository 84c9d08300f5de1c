// Package report renders plain-text summaries of heatmap snapshots for
// terminal output.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/23skdu/longbow-spyglass/internal/heatmap"
	"github.com/23skdu/longbow-spyglass/internal/layout"
)

const barWidth = 20

var categories = []layout.Category{
	layout.CategoryEmbedding,
	layout.CategoryAttention,
	layout.CategoryFFN,
	layout.CategoryNorm,
	layout.CategoryOther,
}

// Options control report rendering.
type Options struct {
	// TopN caps the hottest-regions list. Zero means 10.
	TopN int
}

func (o Options) topN() int {
	if o.TopN <= 0 {
		return 10
	}
	return o.TopN
}

type categoryStat struct {
	regions  int
	accessed int
	reads    uint64
	bytes    uint64
}

// Render formats snap as a plain-text report.
func Render(snap *heatmap.Snapshot, opts Options) string {
	var totalBytes uint64
	stats := make(map[layout.Category]*categoryStat, len(categories))
	for _, cat := range categories {
		stats[cat] = &categoryStat{}
	}
	for i := range snap.Rows {
		r := &snap.Rows[i]
		totalBytes += r.SizeBytes
		st, ok := stats[r.Category]
		if !ok {
			st = stats[layout.CategoryOther]
		}
		st.regions++
		st.reads += r.Count
		st.bytes += r.SizeBytes
		if r.Count > 0 {
			st.accessed++
		}
	}

	scope := "full timeline"
	if snap.Windowed {
		scope = fmt.Sprintf("window <= %.2f ms", snap.CursorMS)
	}

	var b strings.Builder
	b.WriteString("Tensor Access Report\n")
	b.WriteString("====================\n")
	fmt.Fprintf(&b, "Model:      %s\n", snap.Model)
	fmt.Fprintf(&b, "Scope:      %s\n", scope)
	fmt.Fprintf(&b, "Regions:    %d (%d accessed)\n", len(snap.Rows), snap.Accessed())
	fmt.Fprintf(&b, "Weights:    %s\n", humanize.IBytes(totalBytes))
	fmt.Fprintf(&b, "Max count:  %d\n", snap.Max)

	fmt.Fprintf(&b, "\n%-10s %8s %9s %10s %12s\n", "Category", "Regions", "Accessed", "Reads", "Bytes")
	for _, cat := range categories {
		st := stats[cat]
		fmt.Fprintf(&b, "%-10s %8d %9d %10d %12s\n",
			cat, st.regions, st.accessed, st.reads, humanize.IBytes(st.bytes))
	}

	top := hottest(snap, opts.topN())
	fmt.Fprintf(&b, "\nHottest regions (top %d)\n", opts.topN())
	if len(top) == 0 {
		b.WriteString("  (no accesses recorded)\n")
	}
	for i := range top {
		r := &top[i]
		fmt.Fprintf(&b, "%3d. %-40s %8d  [%s]\n", i+1, r.Name, r.Count, bar(r.Intensity))
	}
	return b.String()
}

// Write renders snap into w.
func Write(w io.Writer, snap *heatmap.Snapshot, opts Options) error {
	_, err := io.WriteString(w, Render(snap, opts))
	return err
}

// hottest returns up to n accessed rows ordered by count, ties broken by
// file offset so output is stable.
func hottest(snap *heatmap.Snapshot, n int) []heatmap.Row {
	rows := make([]heatmap.Row, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		if r.Count > 0 {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].OffsetStart < rows[j].OffsetStart
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

func bar(intensity float64) string {
	f := int(math.Round(intensity * barWidth))
	if f < 0 {
		f = 0
	}
	if f > barWidth {
		f = barWidth
	}
	return strings.Repeat("#", f) + strings.Repeat(".", barWidth-f)
}
