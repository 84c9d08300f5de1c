package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-spyglass/internal/export"
	"github.com/23skdu/longbow-spyglass/internal/heatmap"
	"github.com/23skdu/longbow-spyglass/internal/metrics"
	"github.com/23skdu/longbow-spyglass/internal/report"
	"github.com/23skdu/longbow-spyglass/internal/session"
)

// AccumulateOptions holds flags for the accumulate command.
type AccumulateOptions struct {
	Session  string
	Workers  int
	Source   string
	TopN     int
	JSONOut  string
	ArrowOut string
}

// NewAccumulateCommand creates the accumulate command.
func NewAccumulateCommand(rootOpts *RootOptions) *cobra.Command {
	o := &AccumulateOptions{}

	cmd := &cobra.Command{
		Use:   "accumulate",
		Short: "Summed access counts across every token of a session",
		Long: `Sum full-timeline access counts over all recorded tokens of one session,
answering which regions stayed hot across the whole generated sequence.
Traces are counted concurrently and merged; the result is identical for any
trace order.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccumulate(rootOpts, o, cmd)
		},
	}

	cmd.Flags().StringVar(&o.Session, "session", "", "session directory")
	cmd.Flags().IntVar(&o.Workers, "workers", 0, "concurrent trace workers; 0 means one per CPU")
	cmd.Flags().StringVar(&o.Source, "source", "", "memory source to count (DISK|BUFFER)")
	cmd.Flags().IntVar(&o.TopN, "top", 0, "hottest regions to list")
	cmd.Flags().StringVar(&o.JSONOut, "json", "", "write the snapshot as JSON to this path")
	cmd.Flags().StringVar(&o.ArrowOut, "arrow", "", "write the snapshot as an Arrow IPC file to this path")

	return cmd
}

func runAccumulate(rootOpts *RootOptions, o *AccumulateOptions, cmd *cobra.Command) error {
	root, err := rootOpts.sessionDir(o.Session)
	if err != nil {
		return err
	}
	opts, err := rootOpts.heatmapOptions(o.Source)
	if err != nil {
		return err
	}
	workers := o.Workers
	if workers == 0 {
		workers = rootOpts.cfg.Workers
	}

	d, err := session.Open(root)
	if err != nil {
		return err
	}
	m, err := d.Layout()
	if err != nil {
		return err
	}
	_, recs, err := d.Recordings()
	if err != nil {
		return err
	}

	start := time.Now()
	total, err := heatmap.AccumulateContext(cmd.Context(), m, recs, opts, workers)
	if err != nil {
		return err
	}
	snap := heatmap.BuildSnapshot(m, total, heatmap.NewScale(total))
	metrics.RecordQuery("accumulate", time.Since(start))
	metrics.RecordSnapshot(len(snap.Rows))

	if o.JSONOut != "" {
		if err := export.WriteJSONFile(o.JSONOut, snap); err != nil {
			return err
		}
	}
	if o.ArrowOut != "" {
		if err := export.WriteIPCFile(o.ArrowOut, snap); err != nil {
			return err
		}
	}

	return report.Write(cmd.OutOrStdout(), snap, report.Options{TopN: rootOpts.topN(o.TopN)})
}
