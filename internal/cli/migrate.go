package cli

import (
	"github.com/fsdevblog/guestmart/internal/repository/pgrepo"
	"github.com/spf13/cobra"
)

func newMigrateCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := pgrepo.Migrate(rt.conf.MigrationsDir, rt.conf.DatabaseDSN); err != nil {
				return err //nolint:wrapcheck
			}
			rt.logger.WithField("dir", rt.conf.MigrationsDir).Info("migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := pgrepo.Rollback(rt.conf.MigrationsDir, rt.conf.DatabaseDSN, steps); err != nil {
				return err //nolint:wrapcheck
			}
			rt.logger.WithField("steps", steps).Info("migrations rolled back")
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}
