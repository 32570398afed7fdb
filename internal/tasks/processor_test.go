package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficportal/internal/kv"
	"trafficportal/internal/models"
	"trafficportal/internal/permissions"
	"trafficportal/internal/registry"
)

type memorySnapshots struct {
	objects map[string][]byte
	err     error
}

func (m *memorySnapshots) PutSnapshot(_ context.Context, key string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = data
	return nil
}

type failingCities struct{}

func (failingCities) ListCities(context.Context) ([]models.City, error) {
	return nil, errors.New("store offline")
}

func newProcessor(t *testing.T, snapshots SnapshotWriter) (*Processor, *registry.Registry, *permissions.Service, *bytes.Buffer) {
	t.Helper()

	store := kv.NewMemoryStore()
	reg := registry.New(store, nil, zerolog.Nop())
	perms := permissions.NewService(store, nil, zerolog.Nop())

	var out bytes.Buffer
	p := NewProcessor(reg, perms, snapshots, zerolog.New(&out))
	p.now = func() time.Time { return time.Date(2026, 10, 19, 3, 4, 5, 0, time.UTC) }
	return p, reg, perms, &out
}

func message(values map[string]any) redis.XMessage {
	return redis.XMessage{ID: "1-0", Values: values}
}

func TestHandle_Snapshot(t *testing.T) {
	snapshots := &memorySnapshots{}
	p, _, _, _ := newProcessor(t, snapshots)

	require.NoError(t, p.Handle(context.Background(), message(map[string]any{"type": TypeRegistrySnapshot})))

	data, ok := snapshots.objects["registry/20261019T030405Z.json"]
	require.True(t, ok)

	var cities []models.City
	require.NoError(t, json.Unmarshal(data, &cities))
	assert.Len(t, cities, 3)
}

func TestHandle_SnapshotFailuresStayPending(t *testing.T) {
	p, _, _, _ := newProcessor(t, &memorySnapshots{err: errors.New("bucket gone")})
	assert.Error(t, p.Handle(context.Background(), message(map[string]any{"type": TypeRegistrySnapshot})))

	p, _, _, _ = newProcessor(t, nil)
	assert.Error(t, p.Handle(context.Background(), message(map[string]any{"type": TypeRegistrySnapshot})))

	p, _, _, _ = newProcessor(t, &memorySnapshots{})
	p.cities = failingCities{}
	assert.Error(t, p.Handle(context.Background(), message(map[string]any{"type": TypeRegistrySnapshot})))
}

func TestHandle_AuditReportsOrphans(t *testing.T) {
	ctx := context.Background()
	p, reg, perms, out := newProcessor(t, nil)

	_, err := perms.Load(ctx, "KHI")
	require.NoError(t, err)
	_, err = reg.DeleteCity(ctx, "city:khi")
	require.NoError(t, err)

	require.NoError(t, p.Handle(ctx, message(map[string]any{"type": TypePermissionsAudit})))
	assert.Contains(t, out.String(), `"city_code":"KHI"`)
	assert.Contains(t, out.String(), `"orphans":1`)

	has, err := perms.Has(ctx, "KHI", "traffic", "statistics")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestHandle_EventsAndUnknown(t *testing.T) {
	p, _, _, out := newProcessor(t, nil)

	require.NoError(t, p.Handle(context.Background(), message(map[string]any{
		"type":     "city.created",
		"cityCode": "PSH",
		"cityName": "Peshawar",
		"at":       "2026-10-19T03:04:05Z",
	})))
	assert.Contains(t, out.String(), `"city_code":"PSH"`)

	require.NoError(t, p.Handle(context.Background(), message(map[string]any{"type": "ingest"})))
	assert.Contains(t, out.String(), "unknown task type")
}

func TestSnapshotKey(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("PKT", 5*3600))
	assert.Equal(t, "registry/20260101T220405Z.json", SnapshotKey(at))
}
