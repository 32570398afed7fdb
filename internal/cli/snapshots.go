package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"trafficportal/internal/storage"
)

var errNoObjectStore = errors.New("no object store configured (storage.endpoint)")

func newSnapshotsCommand(a *app) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List the registry snapshots the worker has stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Storage.Endpoint == "" {
				return errNoObjectStore
			}

			objectStore, err := storage.NewObjectStore(a.cfg.Storage)
			if err != nil {
				return err
			}

			keys, err := objectStore.Snapshots(cmd.Context(), prefix)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintf(out, "No snapshots in %s\n", a.cfg.Storage.BucketSnapshots)
				return nil
			}
			for _, key := range keys {
				fmt.Fprintln(out, key)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "registry/", "Only list keys under this prefix")
	return cmd
}
