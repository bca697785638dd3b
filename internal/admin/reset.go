package admin

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hesab/internal/seed"
	"hesab/internal/storage"
)

func newResetCommand(e *env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every user, account, transaction and goal, then reseed the default categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes all data; pass --yes to confirm")
			}
			ctx := cmd.Context()
			res, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer res.Cleanup()
			return Reset(ctx, res.Store, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newSeedCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default categories that are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer res.Cleanup()
			n, err := seed.Seed(ctx, res.Store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d default categories present\n", n)
			return nil
		},
	}
}

// Reset wipes store and reseeds the default categories.
func Reset(ctx context.Context, store storage.Store, out io.Writer) error {
	r, ok := store.(storage.Resetter)
	if !ok {
		return errors.New("store does not support reset")
	}
	if err := r.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	n, err := seed.Seed(ctx, store)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "database reset, %d default categories seeded\n", n)
	return nil
}
