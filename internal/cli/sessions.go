package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-spyglass/internal/store"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	DB     string
	Traces string
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	o := &SessionsOptions{}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List indexed sessions",
		Long: `List the sessions recorded in the sqlite catalog, most recently indexed
first. --traces shows the per-token trace rows of one session instead.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(rootOpts, o, cmd)
		},
	}

	cmd.Flags().StringVar(&o.DB, "db", "", "sqlite index path")
	cmd.Flags().StringVar(&o.Traces, "traces", "", "list the traces of this session id")

	return cmd
}

func runSessions(rootOpts *RootOptions, o *SessionsOptions, cmd *cobra.Command) error {
	s, err := store.Open(rootOpts.indexPath(o.DB))
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if o.Traces != "" {
		rec, ok, err := s.GetSession(ctx, o.Traces)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no session indexed with id %s", o.Traces)
		}
		traces, err := s.SessionTraces(ctx, rec.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s)\n\n", rec.RootPath, rec.ModelName)
		fmt.Fprintf(out, "%-7s %8s %12s %8s %8s\n", "TOKEN", "ENTRIES", "DURATION", "DISK", "EXPERT")
		for _, t := range traces {
			fmt.Fprintf(out, "%-7d %8d %10.3fms %8d %8d\n",
				t.Token, t.Entries, t.DurationMS, t.DiskEntries, t.ExpertEntries)
		}
		return nil
	}

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "no sessions indexed; run spyglass scan first")
		return nil
	}
	for _, rec := range sessions {
		fmt.Fprintf(out, "%s  %-24s %8s  %4d tensors  %3d traces  %s\n",
			rec.ID, rec.ModelName, humanize.IBytes(rec.TotalSizeBytes),
			rec.TensorCount, rec.TraceCount, rec.RootPath)
	}
	return nil
}
