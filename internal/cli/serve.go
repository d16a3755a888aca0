package cli

import (
	"os/signal"
	"syscall"

	"github.com/fsdevblog/guestmart/internal/app"
	"github.com/spf13/cobra"
)

func newServeCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, mail dispatcher and auto-approve sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return app.New(rt.conf, rt.logger).Run(ctx) //nolint:wrapcheck
		},
	}
}

func newSweepCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Auto-approve orders past their confirmation deadline once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, err := app.New(rt.conf, rt.logger).Sweep(ctx)
			if err != nil {
				return err //nolint:wrapcheck
			}
			rt.logger.WithField("summary", summary).Info("sweep done")
			return nil
		},
	}
}
