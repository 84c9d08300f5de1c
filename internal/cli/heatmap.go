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

// HeatmapOptions holds flags for the heatmap command.
type HeatmapOptions struct {
	Session  string
	Token    int
	Cursor   float64
	Source   string
	TopN     int
	JSONOut  string
	ArrowOut string
}

// NewHeatmapCommand creates the heatmap command.
func NewHeatmapCommand(rootOpts *RootOptions) *cobra.Command {
	o := &HeatmapOptions{}

	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Access counts for one token's trace",
		Long: `Count how often each tensor region was read while generating one token.
With --cursor the counts cover only entries at or before the cursor, while
intensities stay normalized against the full-timeline maximum, so windows
at different cursors are directly comparable.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeatmap(rootOpts, o, cmd)
		},
	}

	cmd.Flags().StringVar(&o.Session, "session", "", "session directory")
	cmd.Flags().IntVar(&o.Token, "token", 0, "token index to analyze")
	cmd.Flags().Float64Var(&o.Cursor, "cursor", -1, "cursor in ms; negative means the full timeline")
	cmd.Flags().StringVar(&o.Source, "source", "", "memory source to count (DISK|BUFFER)")
	cmd.Flags().IntVar(&o.TopN, "top", 0, "hottest regions to list")
	cmd.Flags().StringVar(&o.JSONOut, "json", "", "write the snapshot as JSON to this path")
	cmd.Flags().StringVar(&o.ArrowOut, "arrow", "", "write the snapshot as an Arrow IPC file to this path")

	return cmd
}

func runHeatmap(rootOpts *RootOptions, o *HeatmapOptions, cmd *cobra.Command) error {
	root, err := rootOpts.sessionDir(o.Session)
	if err != nil {
		return err
	}
	opts, err := rootOpts.heatmapOptions(o.Source)
	if err != nil {
		return err
	}

	d, err := session.Open(root)
	if err != nil {
		return err
	}
	m, err := d.Layout()
	if err != nil {
		return err
	}
	rec, err := d.Trace(o.Token)
	if err != nil {
		return err
	}

	cursor := o.Cursor
	if !cmd.Flags().Changed("cursor") {
		cursor = rootOpts.cfg.CursorMS
	}

	start := time.Now()
	v := heatmap.NewView(m, rec, opts)
	var snap *heatmap.Snapshot
	kind := "full"
	if cursor >= 0 {
		snap = v.SnapshotAt(cursor)
		kind = "window"
	} else {
		snap = v.Snapshot()
	}
	metrics.RecordQuery(kind, time.Since(start))
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
