package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"trafficportal/internal/events"
	"trafficportal/internal/models"
	"trafficportal/internal/permissions"
)

const (
	TypeRegistrySnapshot  = "registry.snapshot"
	TypePermissionsAudit  = "permissions.audit"
	snapshotPrefix        = "registry/"
	snapshotKeyTimeLayout = "20060102T150405Z"
)

type CityLister interface {
	ListCities(ctx context.Context) ([]models.City, error)
}

type OrphanFinder interface {
	Orphans(ctx context.Context, cities []models.City) ([]string, error)
}

type SnapshotWriter interface {
	PutSnapshot(ctx context.Context, key string, data []byte) error
}

type Processor struct {
	cities    CityLister
	perms     OrphanFinder
	snapshots SnapshotWriter
	logger    zerolog.Logger
	now       func() time.Time
}

// TaskPayload is the flattened stream entry; scheduled tasks carry only a
// type, relayed registry events also carry the city.
type TaskPayload struct {
	Type     string `json:"type"`
	CityCode string `json:"cityCode"`
	CityName string `json:"cityName"`
	At       string `json:"at"`
}

// NewProcessor handles worker tasks. snapshots may be nil when no object
// store is configured; snapshot tasks then fail and stay pending.
func NewProcessor(cities CityLister, perms OrphanFinder, snapshots SnapshotWriter, logger zerolog.Logger) *Processor {
	return &Processor{
		cities:    cities,
		perms:     perms,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case TypeRegistrySnapshot:
		return p.handleSnapshot(ctx)
	case TypePermissionsAudit:
		return p.handleAudit(ctx)
	case string(events.CityCreated), string(events.CityDeleted), string(events.RegistrySeeded), string(events.PermissionsUpdated):
		p.logger.Info().
			Str("event", payload.Type).
			Str("city_code", payload.CityCode).
			Str("city_name", payload.CityName).
			Str("at", payload.At).
			Str("message_id", msg.ID).
			Msg("registry change")
		return nil
	default:
		p.logger.Warn().Str("type", payload.Type).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

// SnapshotKey names the object a snapshot taken at t is stored under.
func SnapshotKey(t time.Time) string {
	return snapshotPrefix + t.UTC().Format(snapshotKeyTimeLayout) + ".json"
}

func (p *Processor) handleSnapshot(ctx context.Context) error {
	if p.snapshots == nil {
		return errors.New("no snapshot store configured")
	}

	cities, err := p.cities.ListCities(ctx)
	if err != nil {
		return fmt.Errorf("list cities: %w", err)
	}

	data, err := json.Marshal(cities)
	if err != nil {
		return fmt.Errorf("encode cities: %w", err)
	}

	key := SnapshotKey(p.now())
	if err := p.snapshots.PutSnapshot(ctx, key, data); err != nil {
		return err
	}

	p.logger.Info().Str("key", key).Int("cities", len(cities)).Msg("registry snapshot stored")
	return nil
}

func (p *Processor) handleAudit(ctx context.Context) error {
	cities, err := p.cities.ListCities(ctx)
	if err != nil {
		return fmt.Errorf("list cities: %w", err)
	}

	orphans, err := p.perms.Orphans(ctx, cities)
	if errors.Is(err, permissions.ErrScanUnsupported) {
		p.logger.Warn().Msg("permissions audit skipped, store cannot list keys")
		return nil
	}
	if err != nil {
		return err
	}

	for _, code := range orphans {
		p.logger.Warn().Str("city_code", code).Msg("permissions kept for deleted city")
	}
	p.logger.Info().Int("cities", len(cities)).Int("orphans", len(orphans)).Msg("permissions audit finished")
	return nil
}
