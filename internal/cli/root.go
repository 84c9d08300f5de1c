// Package cli wires the spyglass commands.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-spyglass/internal/config"
	"github.com/23skdu/longbow-spyglass/internal/heatmap"
	"github.com/23skdu/longbow-spyglass/internal/logger"
	"github.com/23skdu/longbow-spyglass/internal/trace"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string

	cfg config.Config
}

// Config returns the effective configuration. Valid after the root
// command's PersistentPreRunE has run.
func (o *RootOptions) Config() config.Config { return o.cfg }

// NewRootCommand creates the root command for the spyglass CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "spyglass",
		Short: "Inspect tensor access traces from longbow sessions",
		Long: `spyglass turns recorded tensor-operation traces into per-region access
counts: which weights were read from disk, how often, and when relative to
the generation timeline. It reads the session directories written by the
tracing runtime and emits text reports, JSON, Arrow IPC files, or an Arrow
Flight stream.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if opts.ConfigPath != "" {
				loaded, err := config.Load(opts.ConfigPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
			}
			if opts.LogFormat != "" {
				cfg.LogFormat = opts.LogFormat
			}
			logger.Setup(cfg.LogLevel, cfg.LogFormat)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (DEBUG|INFO|WARN|ERROR)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (console|json)")

	cmd.AddCommand(NewHeatmapCommand(opts))
	cmd.AddCommand(NewAccumulateCommand(opts))
	cmd.AddCommand(NewLayoutCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewSessionsCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))

	return cmd
}

// sessionDir resolves the session path from a command flag or the config.
func (o *RootOptions) sessionDir(flagVal string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	if o.cfg.SessionDir != "" {
		return o.cfg.SessionDir, nil
	}
	return "", fmt.Errorf("no session directory: pass --session or set session_dir in the config")
}

// heatmapOptions maps a source flag to engine options, falling back to the
// configured source.
func (o *RootOptions) heatmapOptions(source string) (heatmap.Options, error) {
	if source == "" {
		source = o.cfg.Source
	}
	switch strings.ToUpper(source) {
	case "", "DISK":
		return heatmap.Options{Source: trace.SourceDisk}, nil
	case "BUFFER":
		return heatmap.Options{Source: trace.SourceBuffer}, nil
	default:
		return heatmap.Options{}, fmt.Errorf("invalid source %q (must be DISK or BUFFER)", source)
	}
}

func (o *RootOptions) topN(flagVal int) int {
	if flagVal > 0 {
		return flagVal
	}
	return o.cfg.TopN
}
