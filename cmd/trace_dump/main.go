// trace_dump prints the raw entries of one token trace file, no session
// directory required. Handy when poking at a single capture.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/23skdu/longbow-spyglass/internal/trace"
)

var (
	tracePath = flag.String("trace", "", "Path to a token trace JSON file")
	diskOnly  = flag.Bool("disk", false, "Only entries with a DISK input")
	limit     = flag.Int("n", 0, "Stop after N entries (0 = all)")
)

func main() {
	flag.Parse()

	if *tracePath == "" {
		fmt.Println("Error: --trace flag is required")
		flag.Usage()
		os.Exit(1)
	}

	rec, err := trace.LoadFile(*tracePath)
	if err != nil {
		fmt.Printf("Error loading trace: %v\n", err)
		os.Exit(1)
	}

	meta := rec.Metadata()
	fmt.Printf("=== %s ===\n", *tracePath)
	fmt.Printf("Entries: %d  Duration: %.3fms  Format: %s\n\n",
		rec.Len(), meta.DurationMS, meta.FormatVersion)

	shown := 0
	for _, e := range rec.Entries() {
		if *diskOnly && !e.HasDiskAccess() {
			continue
		}
		if *limit > 0 && shown >= *limit {
			break
		}
		layer := "-"
		if e.LayerID != nil {
			layer = fmt.Sprintf("%d", *e.LayerID)
		}
		fmt.Printf("[%5d] t=%.3fms layer=%s op=%s dst=%s\n",
			e.EntryID, e.TimestampRelativeMS, layer, e.OperationType, e.DstName)
		for _, s := range e.Sources {
			fmt.Printf("        %s %s (%d bytes)\n", s.MemorySource, s.Name, s.SizeBytes)
		}
		if len(e.ExpertIDs) > 0 {
			fmt.Printf("        experts=%v\n", e.ExpertIDs)
		}
		shown++
	}

	st := rec.Stats()
	fmt.Printf("\nDisk entries: %d  Buffer entries: %d  Expert entries: %d\n",
		st.DiskEntries, st.BufferEntries, st.ExpertEntries)
}
