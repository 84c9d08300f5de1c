package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/23skdu/longbow-spyglass/internal/export"
	"github.com/23skdu/longbow-spyglass/internal/logger"
	"github.com/23skdu/longbow-spyglass/internal/session"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Session string
	Listen  string
	HTTP    string
	Source  string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	o := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a session's snapshots over Arrow Flight",
		Long: `Load one session, precompute per-token and accumulated count snapshots, and
serve them over Arrow Flight. A second HTTP listener exposes Prometheus
metrics on /metrics and a liveness probe on /healthz. Snapshots are computed
once at startup; the served data is a read-only view of that state.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, o, cmd)
		},
	}

	cmd.Flags().StringVar(&o.Session, "session", "", "session directory")
	cmd.Flags().StringVar(&o.Listen, "listen", "", "Arrow Flight listen address")
	cmd.Flags().StringVar(&o.HTTP, "http", "", "metrics/health listen address")
	cmd.Flags().StringVar(&o.Source, "source", "", "memory source to count (DISK|BUFFER)")

	return cmd
}

func runServe(rootOpts *RootOptions, o *ServeOptions, cmd *cobra.Command) error {
	root, err := rootOpts.sessionDir(o.Session)
	if err != nil {
		return err
	}
	opts, err := rootOpts.heatmapOptions(o.Source)
	if err != nil {
		return err
	}
	flightAddr := o.Listen
	if flightAddr == "" {
		flightAddr = rootOpts.cfg.FlightAddr
	}
	httpAddr := o.HTTP
	if httpAddr == "" {
		httpAddr = rootOpts.cfg.MetricsAddr
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

	log := logger.Log.Component("serve")
	fs := export.NewServer(m, tokens, recs, opts)
	srv, err := export.ListenAndServe(flightAddr, fs)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"model":  m.ModelName(),
			"tokens": len(tokens),
		})
	})
	httpSrv := &http.Server{
		Addr:         httpAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 2)
	go func() { errc <- srv.Serve() }()
	go func() {
		log.Info("http listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errc:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	srv.Shutdown()
	return nil
}
