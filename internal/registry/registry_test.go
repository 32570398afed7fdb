package registry

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficportal/internal/events"
	"trafficportal/internal/kv"
	"trafficportal/internal/models"
)

type recorder struct {
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.events = append(r.events, e)
}

func (r *recorder) types() []events.Type {
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

var fixedNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *kv.MemoryStore, *recorder) {
	t.Helper()
	store := kv.NewMemoryStore()
	rec := &recorder{}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(store, rec, zerolog.Nop(), opts...), store, rec
}

func TestListCities_SeedsDefaultsOnce(t *testing.T) {
	ctx := context.Background()
	reg, store, rec := newTestRegistry(t)

	cities, err := reg.ListCities(ctx)
	require.NoError(t, err)
	require.Len(t, cities, 3)
	assert.Equal(t, "Islamabad", cities[0].CityName)
	assert.Equal(t, "city:isb", cities[0].ID)
	assert.Equal(t, "KHI", cities[1].CityCode)
	assert.Equal(t, "Multan", cities[2].CityName)
	assert.Equal(t, []events.Type{events.RegistrySeeded}, rec.types())

	_, err = store.Get(ctx, CitiesKey)
	require.NoError(t, err, "seed set is persisted")

	again, err := reg.ListCities(ctx)
	require.NoError(t, err)
	assert.Equal(t, cities[0].Users[0].Password, again[0].Users[0].Password, "seeding happens once")
	assert.Len(t, rec.events, 1)
}

func TestListCities_EmptyRegistryStaysEmpty(t *testing.T) {
	ctx := context.Background()
	reg, store, _ := newTestRegistry(t)
	require.NoError(t, store.Set(ctx, CitiesKey, "[]"))

	cities, err := reg.ListCities(ctx)
	require.NoError(t, err)
	assert.Empty(t, cities)
}

func TestListCities_CorruptFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	reg, store, rec := newTestRegistry(t)
	require.NoError(t, store.Set(ctx, CitiesKey, "{broken"))

	cities, err := reg.ListCities(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 3)
	assert.Empty(t, rec.events)

	raw, err := store.Get(ctx, CitiesKey)
	require.NoError(t, err)
	assert.Equal(t, "{broken", raw, "fallback is not written back")
}

func TestCreateCity_GeneratesFourAccounts(t *testing.T) {
	ctx := context.Background()
	reg, _, rec := newTestRegistry(t)

	city, err := reg.CreateCity(ctx, "Peshawar", "psh")
	require.NoError(t, err)

	assert.Equal(t, "city:psh", city.ID)
	assert.Equal(t, "PSH", city.CityCode)
	assert.Equal(t, "Peshawar", city.CityName)
	assert.Equal(t, models.CityStatusActive, city.Status)
	assert.Equal(t, fixedNow, city.CreatedAt)
	require.Len(t, city.Users, 4)

	usernames := map[string]bool{}
	for i, user := range city.Users {
		assert.Equal(t, CityRoles[i].Role, user.Role)
		assert.Equal(t, CityRoles[i].Title, user.Title)
		assert.Len(t, user.Password, 12)
		assert.Equal(t, "active", user.Status)
		usernames[user.Username] = true
	}
	assert.Len(t, usernames, 4, "usernames are distinct")
	assert.True(t, usernames["admin_psh_0000"], "got %v", usernames)

	cities, err := reg.ListCities(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 4)
	assert.Equal(t, []events.Type{events.RegistrySeeded, events.CityCreated}, rec.types())
	assert.Equal(t, "PSH", rec.events[1].CityCode)
}

func TestCreateCity_RejectsDuplicateCodeCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	reg, store, rec := newTestRegistry(t)

	_, err := reg.CreateCity(ctx, "Lahore", "LHR")
	require.NoError(t, err)
	before, err := store.Get(ctx, CitiesKey)
	require.NoError(t, err)
	published := len(rec.events)

	_, err = reg.CreateCity(ctx, "Lahore Cantt", "lhr")
	assert.ErrorIs(t, err, ErrDuplicateCityCode)

	_, err = reg.CreateCity(ctx, "Islamabad Capital", "isb")
	assert.ErrorIs(t, err, ErrDuplicateCityCode)

	after, err := store.Get(ctx, CitiesKey)
	require.NoError(t, err)
	assert.Equal(t, before, after, "registry unchanged")
	assert.Len(t, rec.events, published)
}

func TestCreateCity_RejectedOnUnwrittenRegistryWritesNothing(t *testing.T) {
	ctx := context.Background()
	reg, store, rec := newTestRegistry(t)

	_, err := reg.CreateCity(ctx, "Islamabad Capital", "isb")
	assert.ErrorIs(t, err, ErrDuplicateCityCode, "default seeds still count")

	_, err = reg.DeleteCity(ctx, "city:lhr")
	assert.ErrorIs(t, err, ErrCityNotFound)

	_, err = store.Get(ctx, CitiesKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
	assert.Empty(t, rec.events)

	_, err = reg.CreateCity(ctx, "Lahore", "LHR")
	require.NoError(t, err)
	assert.Equal(t, []events.Type{events.RegistrySeeded, events.CityCreated}, rec.types())

	cities, err := reg.ListCities(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 4)
}

func TestListCities_SeedCodesAreUpperCase(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, WithSeeds([]Seed{{Name: " Lahore ", Code: " lhr"}}))

	cities, err := reg.ListCities(ctx)
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, "LHR", cities[0].CityCode)
	assert.Equal(t, "Lahore", cities[0].CityName)
	assert.Equal(t, "city:lhr", cities[0].ID)

	_, err = reg.CreateCity(ctx, "Lahore Cantt", "LHR")
	assert.ErrorIs(t, err, ErrDuplicateCityCode)
}

func TestCreateCity_DistinctCodesBothSucceed(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, WithSeeds(nil))

	_, err := reg.CreateCity(ctx, "Quetta", "QTA")
	require.NoError(t, err)
	_, err = reg.CreateCity(ctx, "Quetta", "QTB")
	require.NoError(t, err)

	cities, err := reg.ListCities(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 2)
}

func TestCreateCity_RequiresNameAndCode(t *testing.T) {
	ctx := context.Background()
	reg, store, _ := newTestRegistry(t)

	for _, tc := range []struct{ name, code string }{
		{"", "PSH"},
		{"Peshawar", ""},
		{"   ", "  "},
	} {
		_, err := reg.CreateCity(ctx, tc.name, tc.code)
		assert.ErrorIs(t, err, ErrMissingField)
	}

	_, err := store.Get(ctx, CitiesKey)
	assert.ErrorIs(t, err, kv.ErrNotFound, "validation failures write nothing")
}

func TestDeleteCity(t *testing.T) {
	ctx := context.Background()
	reg, store, rec := newTestRegistry(t)
	require.NoError(t, store.Set(ctx, "permissions_KHI", `{"traffic":["reports"]}`))

	removed, err := reg.DeleteCity(ctx, "city:khi")
	require.NoError(t, err)
	assert.Equal(t, "Karachi", removed.CityName)

	cities, err := reg.ListCities(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 2)

	accounts, err := reg.CityUsers(ctx, "KHI")
	require.NoError(t, err)
	assert.Empty(t, accounts, "city accounts go with the city")

	_, err = store.Get(ctx, "permissions_KHI")
	assert.NoError(t, err, "permission data is left in place")

	assert.Equal(t, events.CityDeleted, rec.events[len(rec.events)-1].Type)

	_, err = reg.DeleteCity(ctx, "city:khi")
	assert.ErrorIs(t, err, ErrCityNotFound)
}

func TestFlattenUsers(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t, WithSeeds([]Seed{{Name: "Islamabad", Code: "ISB"}}), WithEmailDomain("itp.com"))

	accounts, err := reg.FlattenUsers(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 4)

	admin := accounts[0]
	assert.Equal(t, "admin_isb_0000", admin.Username)
	assert.Equal(t, "admin_isb_0000@isb.itp.com", admin.Email)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "ISB", admin.CityCode)
	assert.Equal(t, "Islamabad", admin.CityName)
	assert.NotEmpty(t, admin.Password)
}

func TestCityByCode(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(t)

	city, err := reg.CityByCode(ctx, "mlt")
	require.NoError(t, err)
	assert.Equal(t, "Multan", city.CityName)

	_, err = reg.CityByCode(ctx, "XXX")
	assert.ErrorIs(t, err, ErrCityNotFound)

	city, err = reg.GetCity(ctx, "city:isb")
	require.NoError(t, err)
	assert.Equal(t, "ISB", city.CityCode)
}
