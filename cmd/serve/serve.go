package serve

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/safedriveafrica/drivesync/internal/api"
	"github.com/safedriveafrica/drivesync/internal/app"
	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/logger"
)

// closeTimeout bounds the delivery of queued notifications on shutdown.
const closeTimeout = 5 * time.Second

// Command creates the serve command, which runs the control HTTP server.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		listen  string
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sync trigger, status and metrics endpoints",
		Long: `Serve a control HTTP API for schedulers and the companion app:

  POST /api/v1/sync        start a run (202), or run synchronously with ?wait=true
  GET  /api/v1/sync/last   report of the most recent run
  GET  /api/v1/status      unsynced and cleanable record counts
  GET  /metrics            Prometheus metrics
  GET  /healthz            liveness

Stops on SIGINT or SIGTERM, cancelling an active run between chunks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings, offline)
		},
	}

	// Bound to viper so a set flag overrides server.listen when settings load
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address of the control server")
	cmd.Flags().BoolVar(&offline, "offline", false, "Treat the network as unavailable")
	if err := viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen")); err != nil {
		panic(err)
	}

	return cmd
}

func run(ctx context.Context, settings *conf.Settings, offline bool) error {
	log := logger.Global().Module("serve")

	a, err := app.New(ctx, settings, app.Options{Offline: offline, Metrics: true})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		a.Close(closeCtx)
	}()

	srv, err := api.New(api.ConfigFromSettings(settings), a.Orchestrator, a.Store, api.WithMetrics(a.Metrics))
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err = <-errCh:
		// Listener failed before any shutdown request
	case <-ctx.Done():
		log.Info("shutdown requested")
	}

	if shutdownErr := srv.Shutdown(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}
