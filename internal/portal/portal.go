// Package portal assembles the portal core over one storage backend.
package portal

import (
	"github.com/rs/zerolog"

	"trafficportal/internal/config"
	"trafficportal/internal/events"
	"trafficportal/internal/kv"
	"trafficportal/internal/permissions"
	"trafficportal/internal/registry"
	"trafficportal/internal/session"
)

type Portal struct {
	Store       kv.Store
	Bus         *events.Bus
	Registry    *registry.Registry
	Sessions    *session.Manager
	Permissions *permissions.Service
}

func New(store kv.Store, cfg *config.AppConfig, log zerolog.Logger) *Portal {
	bus := events.NewBus(log.With().Str("component", "events").Logger())

	seeds := make([]registry.Seed, 0, len(cfg.Portal.DefaultCities))
	for _, c := range cfg.Portal.DefaultCities {
		seeds = append(seeds, registry.Seed{Name: c.Name, Code: c.Code})
	}

	reg := registry.New(store, bus, log.With().Str("component", "registry").Logger(),
		registry.WithSeeds(seeds),
		registry.WithEmailDomain(cfg.Portal.EmailDomain),
	)

	return &Portal{
		Store:    store,
		Bus:      bus,
		Registry: reg,
		Sessions: session.NewManager(
			store,
			reg,
			session.StaticAccounts(cfg.Portal.StaticUsers),
			log.With().Str("component", "session").Logger(),
		),
		Permissions: permissions.NewService(store, bus, log.With().Str("component", "permissions").Logger()),
	}
}
