// Package cli implements portalctl, an operator tool that works on the
// portal store directly, without the API.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trafficportal/internal/config"
	"trafficportal/internal/log"
	"trafficportal/internal/portal"
)

type app struct {
	cfg     *config.AppConfig
	backend *portal.Backend
	portal  *portal.Portal
	log     zerolog.Logger

	store   string
	file    string
	verbose bool
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Manage the traffic police portal store",
		Long: `Inspect and change the traffic police portal state: cities and their
generated accounts, the session slot and per-city dashboard permissions.

The store backend comes from configuration. The in-memory backend is
replaced by the file store, since it would not outlive the command.

Examples:
  portalctl cities list
  portalctl cities create "Peshawar" PSH
  portalctl login admin@itp.com admin123
  portalctl permissions toggle ISB traffic emergency`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
	}

	root.PersistentFlags().StringVar(&a.store, "store", "", "Store backend (file, redis, postgres); overrides configuration")
	root.PersistentFlags().StringVar(&a.file, "file", "", "Path of the file store")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log store activity to stderr")

	root.AddCommand(
		newCitiesCommand(a),
		newLoginCommand(a),
		newWhoamiCommand(a),
		newLogoutCommand(a),
		newRedirectCommand(a),
		newPermissionsCommand(a),
		newWatchCommand(a),
		newSnapshotsCommand(a),
	)
	return root
}

// Execute runs portalctl until ctx is cancelled.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if a.store != "" {
		cfg.Store.Backend = a.store
	}
	if cfg.Store.Backend == "" || cfg.Store.Backend == "memory" {
		cfg.Store.Backend = "file"
	}
	if a.file != "" {
		cfg.Store.FilePath = a.file
	}

	level := zerolog.WarnLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	a.log = log.NewWithWriter(cmd.ErrOrStderr(), cfg.Environment, "portalctl").Level(level)

	backend, err := portal.OpenBackend(cmd.Context(), cfg, false)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	a.cfg = cfg
	a.backend = backend
	a.portal = portal.New(backend.Store, cfg, a.log)
	return nil
}

func (a *app) close() {
	if a.backend != nil {
		a.backend.Close()
	}
}
