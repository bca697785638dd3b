package admin

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"hesab/internal/log"
	"hesab/internal/storage"
)

func newMigrateCommand(e *env) *cobra.Command {
	var rollback int
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect SQLite schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.DataBackend != "sqlite" {
				return errors.New("migrate requires DATA_BACKEND=sqlite")
			}
			path := e.cfg.SQLiteDBPath
			out := cmd.OutOrStdout()

			switch {
			case status:
			case cmd.Flags().Changed("rollback"):
				if err := storage.RollbackMigrations(path, rollback); err != nil {
					return err
				}
				e.logger.Info("Migrations rolled back", log.FieldOperation, log.OpMigrate, "steps", rollback)
			default:
				if err := storage.RunMigrations(path); err != nil {
					return err
				}
				e.logger.Info("Migrations applied", log.FieldOperation, log.OpMigrate)
			}

			version, dirty, err := storage.MigrationVersion(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "schema version %d (dirty: %t) at %s\n", version, dirty, path)
			return nil
		},
	}

	cmd.Flags().IntVar(&rollback, "rollback", 0, "revert this many migrations (0 reverts all)")
	cmd.Flags().BoolVar(&status, "status", false, "only print the applied version")
	return cmd
}
