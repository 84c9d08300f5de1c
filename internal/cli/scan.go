package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-spyglass/internal/session"
	"github.com/23skdu/longbow-spyglass/internal/store"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	Session string
	DB      string
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	o := &ScanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Index a session directory into the local catalog",
		Long: `Walk one session directory, record its model layout and per-token trace
metadata in the sqlite catalog, and print the assigned session id.
Re-scanning an already indexed directory refreshes its entry in place.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(rootOpts, o, cmd)
		},
	}

	cmd.Flags().StringVar(&o.Session, "session", "", "session directory")
	cmd.Flags().StringVar(&o.DB, "db", "", "sqlite index path")

	return cmd
}

func (o *RootOptions) indexPath(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return o.cfg.IndexPath
}

func runScan(rootOpts *RootOptions, o *ScanOptions, cmd *cobra.Command) error {
	root, err := rootOpts.sessionDir(o.Session)
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
	tokens, recs, err := d.Recordings()
	if err != nil {
		return err
	}

	traces := make([]store.TraceRecord, 0, len(recs))
	for i, token := range tokens {
		st := recs[i].Stats()
		traces = append(traces, store.TraceRecord{
			Token:         token,
			Path:          d.TracePath(token),
			Entries:       st.Entries,
			DurationMS:    st.DurationMS,
			DiskEntries:   st.DiskEntries,
			ExpertEntries: st.ExpertEntries,
		})
	}

	s, err := store.Open(rootOpts.indexPath(o.DB))
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.IndexSession(cmd.Context(), store.SessionRecord{
		RootPath:       d.Root(),
		ModelName:      m.ModelName(),
		TotalSizeBytes: m.TotalSizeBytes(),
		TensorCount:    m.Len(),
		TraceCount:     len(traces),
	}, traces)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %s as %s (%d traces)\n", d.Root(), id, len(traces))
	return nil
}
