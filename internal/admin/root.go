// Package admin implements the hesab-admin commands: schema migrations,
// database reset and seeding, and a local chat session through the engine.
package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hesab/internal/backend"
	"hesab/internal/cli"
	"hesab/internal/config"
	"hesab/internal/log"
)

// env is the state shared by every subcommand.
type env struct {
	cfg    *config.Config
	logger *log.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	e := &env{}
	rootCmd := &cobra.Command{
		Use:   "hesab-admin",
		Short: "Administer the hesab finance assistant",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
			e.cfg = config.Load()
			e.logger = cli.SetupLogger(e.cfg)
		},
	}

	rootCmd.AddCommand(
		newMigrateCommand(e),
		newResetCommand(e),
		newSeedCommand(e),
		newChatCommand(e),
	)
	return rootCmd
}

// open builds the store without connecting to the event bus.
func (e *env) open(ctx context.Context) (*backend.Result, error) {
	bc, err := backend.FromAppConfig(e.cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(e.logger).WithoutEvents().Create(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bc.Type, err)
	}
	return res, nil
}
