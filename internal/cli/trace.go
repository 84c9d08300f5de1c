package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-spyglass/internal/session"
	"github.com/23skdu/longbow-spyglass/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	Session    string
	Token      int
	Layer      string
	Operation  string
	Source     string
	ExpertOnly bool
	Stats      bool
	Limit      int
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	o := &TraceOptions{}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect the raw entries of one token's trace",
		Long: `List the recorded tensor operations of one token trace with their inputs,
sizes and memory sources, optionally filtered by layer, operation type or
source kind. --stats prints the aggregate view instead.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, o, cmd)
		},
	}

	cmd.Flags().StringVar(&o.Session, "session", "", "session directory")
	cmd.Flags().IntVar(&o.Token, "token", 0, "token index to inspect")
	cmd.Flags().StringVar(&o.Layer, "layer", "", "only entries of this layer, or \"none\" for unattributed entries")
	cmd.Flags().StringVar(&o.Operation, "op", "", "only entries of this operation type")
	cmd.Flags().StringVar(&o.Source, "source", "", "only entries with an input of this memory source (DISK|BUFFER)")
	cmd.Flags().BoolVar(&o.ExpertOnly, "experts", false, "only expert-routed entries")
	cmd.Flags().BoolVar(&o.Stats, "stats", false, "print aggregate statistics instead of entries")
	cmd.Flags().IntVar(&o.Limit, "limit", 50, "stop after this many entries; 0 means all")

	return cmd
}

func (o *TraceOptions) filter() (trace.Filter, error) {
	f := trace.Filter{
		Operation:  o.Operation,
		ExpertOnly: o.ExpertOnly,
	}
	switch strings.ToLower(o.Layer) {
	case "":
	case "none":
		f.NonLayerOnly = true
	default:
		layer, err := strconv.Atoi(o.Layer)
		if err != nil {
			return trace.Filter{}, fmt.Errorf("invalid layer %q (must be a number or \"none\")", o.Layer)
		}
		f.Layer = &layer
	}
	switch strings.ToUpper(o.Source) {
	case "":
	case "DISK":
		f.Source = trace.SourceDisk
	case "BUFFER":
		f.Source = trace.SourceBuffer
	default:
		return trace.Filter{}, fmt.Errorf("invalid source %q (must be DISK or BUFFER)", o.Source)
	}
	return f, nil
}

func runTrace(rootOpts *RootOptions, o *TraceOptions, cmd *cobra.Command) error {
	root, err := rootOpts.sessionDir(o.Session)
	if err != nil {
		return err
	}
	f, err := o.filter()
	if err != nil {
		return err
	}

	d, err := session.Open(root)
	if err != nil {
		return err
	}
	rec, err := d.Trace(o.Token)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.Stats {
		printTraceStats(out, o.Token, rec.Stats())
		return nil
	}

	entries := rec.Filter(f)
	fmt.Fprintf(out, "token %d: %d of %d entries\n\n", o.Token, len(entries), rec.Len())
	for i := range entries {
		if o.Limit > 0 && i >= o.Limit {
			fmt.Fprintf(out, "... %d more\n", len(entries)-i)
			break
		}
		printEntry(out, &entries[i])
	}
	return nil
}

func printEntry(out io.Writer, e *trace.Entry) {
	layer := "-"
	if e.LayerID != nil {
		layer = fmt.Sprintf("L%d", *e.LayerID)
	}
	fmt.Fprintf(out, "#%-5d %9.3fms %-4s %-16s -> %s\n",
		e.EntryID, e.TimestampRelativeMS, layer, e.OperationType, e.DstName)
	for i := range e.Sources {
		s := &e.Sources[i]
		fmt.Fprintf(out, "        %-6s %10s  %s\n",
			s.MemorySource, humanize.IBytes(s.SizeBytes), s.Name)
	}
	if len(e.ExpertIDs) > 0 {
		fmt.Fprintf(out, "        experts %v\n", e.ExpertIDs)
	}
}

func printTraceStats(out io.Writer, token int, st trace.Stats) {
	fmt.Fprintf(out, "token %d: %d entries over %.3fms\n", token, st.Entries, st.DurationMS)
	fmt.Fprintf(out, "  disk entries:   %d\n", st.DiskEntries)
	fmt.Fprintf(out, "  buffer entries: %d\n", st.BufferEntries)
	fmt.Fprintf(out, "  expert entries: %d\n", st.ExpertEntries)
	fmt.Fprintf(out, "  input volume:   %s\n", humanize.IBytes(st.TotalInputBytes))
	fmt.Fprintf(out, "  layers touched: %d\n", len(st.Layers))

	ops := make([]string, 0, len(st.Operations))
	for op := range st.Operations {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		if st.Operations[ops[i]] != st.Operations[ops[j]] {
			return st.Operations[ops[i]] > st.Operations[ops[j]]
		}
		return ops[i] < ops[j]
	})
	fmt.Fprintln(out, "  operations:")
	for _, op := range ops {
		fmt.Fprintf(out, "    %-16s %d\n", op, st.Operations[op])
	}
}
