package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"trafficportal/internal/kv"
)

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the city list whenever another process changes the file store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs, ok := a.backend.Store.(*kv.FileStore)
			if !ok {
				return fmt.Errorf("watch needs the file store, not %s", a.cfg.Store.Backend)
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s\n", fs.Path())

			if err := a.listCities(cmd, nil); err != nil {
				return err
			}

			err := fs.Watch(ctx, func() {
				fmt.Fprintln(out, "--- changed")
				if err := a.listCities(cmd, nil); err != nil {
					a.log.Error().Err(err).Msg("reload cities failed")
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
