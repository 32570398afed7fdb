package permissions

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"trafficportal/internal/events"
	"trafficportal/internal/kv"
	"trafficportal/internal/models"
)

const keyPrefix = "permissions_"

var (
	ErrUnknownSection  = errors.New("unknown dashboard section")
	ErrMissingScope    = errors.New("city code and role are required")
	ErrScanUnsupported = errors.New("store cannot enumerate keys")
)

// Key is the storage key of one city's matrix.
func Key(cityCode string) string {
	return keyPrefix + cityCode
}

type Service struct {
	store  kv.Store
	events events.Publisher
	log    zerolog.Logger
}

func NewService(store kv.Store, publisher events.Publisher, log zerolog.Logger) *Service {
	return &Service{store: store, events: publisher, log: log}
}

// Load returns the city's matrix, writing the defaults on first access.
func (s *Service) Load(ctx context.Context, cityCode string) (Matrix, error) {
	if cityCode == "" {
		return nil, ErrMissingScope
	}

	var m Matrix
	err := kv.GetJSON(ctx, s.store, Key(cityCode), &m)
	switch {
	case err == nil:
		if m == nil {
			m = Matrix{}
		}
		return m, nil
	case errors.Is(err, kv.ErrNotFound):
		m = DefaultMatrix()
		if err := kv.SetJSON(ctx, s.store, Key(cityCode), m); err != nil {
			return nil, fmt.Errorf("seed permissions: %w", err)
		}
		s.log.Debug().Str("city", cityCode).Msg("permissions seeded")
		return m, nil
	case errors.Is(err, kv.ErrCorrupt):
		s.log.Error().Err(err).Str("city", cityCode).Msg("permissions unreadable, using defaults")
		return DefaultMatrix(), nil
	default:
		return nil, fmt.Errorf("load permissions: %w", err)
	}
}

// Toggle enables section for role when it is disabled and disables it
// otherwise.
func (s *Service) Toggle(ctx context.Context, cityCode string, role string, section string) (Matrix, error) {
	if err := validate(cityCode, role, section); err != nil {
		return nil, err
	}

	return s.update(ctx, cityCode, func(m Matrix) {
		current := m[role]
		if idx := slices.Index(current, section); idx >= 0 {
			m[role] = slices.Delete(current, idx, idx+1)
		} else {
			m[role] = append(current, section)
		}
	})
}

// ToggleAll sets role to the full catalog or to nothing.
func (s *Service) ToggleAll(ctx context.Context, cityCode string, role string, enable bool) (Matrix, error) {
	if cityCode == "" || strings.TrimSpace(role) == "" {
		return nil, ErrMissingScope
	}

	return s.update(ctx, cityCode, func(m Matrix) {
		if enable {
			m[role] = SectionIDs()
		} else {
			m[role] = []string{}
		}
	})
}

func (s *Service) Has(ctx context.Context, cityCode string, role string, section string) (bool, error) {
	m, err := s.Load(ctx, cityCode)
	if err != nil {
		return false, err
	}
	return m.Has(role, section), nil
}

// Orphans lists stored matrices whose city is no longer in cities. They are
// reported, never removed.
func (s *Service) Orphans(ctx context.Context, cities []models.City) ([]string, error) {
	scanner, ok := s.store.(kv.Scanner)
	if !ok {
		return nil, ErrScanUnsupported
	}

	keys, err := scanner.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list permission keys: %w", err)
	}

	live := make(map[string]struct{}, len(cities))
	for _, city := range cities {
		live[Key(city.CityCode)] = struct{}{}
	}

	var orphans []string
	for _, key := range keys {
		if _, ok := live[key]; !ok {
			orphans = append(orphans, strings.TrimPrefix(key, keyPrefix))
		}
	}
	return orphans, nil
}

func (s *Service) update(ctx context.Context, cityCode string, mutate func(Matrix)) (Matrix, error) {
	current, err := s.Load(ctx, cityCode)
	if err != nil {
		return nil, err
	}

	next := current.clone()
	mutate(next)

	if err := kv.SetJSON(ctx, s.store, Key(cityCode), next); err != nil {
		return nil, fmt.Errorf("save permissions: %w", err)
	}

	if s.events != nil {
		s.events.Publish(ctx, events.Event{Type: events.PermissionsUpdated, CityCode: cityCode})
	}
	return next, nil
}

func validate(cityCode string, role string, section string) error {
	if cityCode == "" || strings.TrimSpace(role) == "" {
		return ErrMissingScope
	}
	if !KnownSection(section) {
		return fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}
	return nil
}
