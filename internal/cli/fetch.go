package cli

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-spyglass/internal/export"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	Addr string
	Path string
	List bool
	TopN int
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	o := &FetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch snapshots from a running spyglass server",
		Long: `Connect to a spyglass Flight server and either list the datasets it serves
or fetch one counts dataset and print its hottest regions.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(rootOpts, o, cmd)
		},
	}

	cmd.Flags().StringVar(&o.Addr, "addr", "localhost:8815", "Flight server address")
	cmd.Flags().StringVar(&o.Path, "path", export.PathAccumulated, "dataset path to fetch")
	cmd.Flags().BoolVar(&o.List, "list", false, "list served dataset paths instead of fetching")
	cmd.Flags().IntVar(&o.TopN, "top", 0, "hottest regions to list")

	return cmd
}

func runFetch(rootOpts *RootOptions, o *FetchOptions, cmd *cobra.Command) error {
	c, err := export.Dial(o.Addr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if o.List {
		paths, err := c.Paths(ctx, "")
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(out, p)
		}
		return nil
	}

	rows, err := c.Snapshot(ctx, o.Path)
	if err != nil {
		return err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })

	n := rootOpts.topN(o.TopN)
	if n > len(rows) {
		n = len(rows)
	}
	fmt.Fprintf(out, "%s: %d regions\n\n", o.Path, len(rows))
	for _, r := range rows[:n] {
		fmt.Fprintf(out, "%6d  %.3f  %10s  %s\n",
			r.Count, r.Intensity, humanize.IBytes(r.SizeBytes), r.Name)
	}
	return nil
}
