package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficportal/internal/config"
	"trafficportal/internal/kv"
	"trafficportal/internal/models"
	"trafficportal/internal/registry"
	"trafficportal/internal/security"
)

type stubAccounts struct {
	accounts []models.Account
	err      error
}

func (s stubAccounts) FlattenUsers(context.Context) ([]models.Account, error) {
	return s.accounts, s.err
}

var staticUsers = StaticAccounts([]config.StaticUser{
	{Email: "admin@itp.com", Username: "admin", Password: "admin123", Role: "admin"},
	{Email: "user@itp.com", Username: "user", Password: "user123", Role: "user"},
})

var isbAdmin = models.Account{
	Email:    "admin_isb_1234@isb.itp.com",
	Username: "admin_isb_1234",
	Password: "Xy7!abcdEF12",
	Role:     models.RoleAdmin,
	CityCode: "ISB",
	CityName: "Islamabad",
}

func newTestManager(accounts ...models.Account) (*Manager, *kv.MemoryStore) {
	store := kv.NewMemoryStore()
	return NewManager(store, stubAccounts{accounts: accounts}, staticUsers, zerolog.Nop()), store
}

func TestValidateCredentials(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(isbAdmin)

	account, err := m.ValidateCredentials(ctx, "admin@itp.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, account.Role)
	assert.Empty(t, account.CityCode)

	account, err = m.ValidateCredentials(ctx, "user", "user123")
	require.NoError(t, err, "username works as identifier")
	assert.Equal(t, "user@itp.com", account.Email)

	account, err = m.ValidateCredentials(ctx, "admin_isb_1234@isb.itp.com", "Xy7!abcdEF12")
	require.NoError(t, err)
	assert.Equal(t, "ISB", account.CityCode)

	_, err = m.ValidateCredentials(ctx, "admin@itp.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = m.ValidateCredentials(ctx, "nobody", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateCredentials_HashedStaticAccount(t *testing.T) {
	ctx := context.Background()
	hash, err := security.HashPasswordWithParams("s3cret", security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 16, SaltLen: 8})
	require.NoError(t, err)

	static := StaticAccounts([]config.StaticUser{{Email: "root@itp.com", Username: "root", PasswordHash: hash, Role: "admin"}})
	m := NewManager(kv.NewMemoryStore(), nil, static, zerolog.Nop())

	_, err = m.ValidateCredentials(ctx, "root", "s3cret")
	assert.NoError(t, err)
	_, err = m.ValidateCredentials(ctx, "root", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateCredentials_SourceError(t *testing.T) {
	m := NewManager(kv.NewMemoryStore(), stubAccounts{err: errors.New("store down")}, staticUsers, zerolog.Nop())

	_, err := m.ValidateCredentials(context.Background(), "admin", "admin123")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(isbAdmin)
	m.now = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }

	assert.False(t, m.IsAuthenticated(ctx))
	_, err := m.GetSession(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	created, err := m.CreateSession(ctx, isbAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := m.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Equal(t, "ISB", got.CityCode)
	assert.Equal(t, "Islamabad", got.CityName)
	assert.Equal(t, "admin_isb_1234", got.Username)
	assert.True(t, got.IsAuthenticated)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC), got.LoginTime)
	assert.True(t, m.IsAuthenticated(ctx))

	require.NoError(t, m.Logout(ctx))
	assert.False(t, m.IsAuthenticated(ctx))
	_, err = m.GetSession(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCreateSession_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(isbAdmin)

	first, err := m.CreateSession(ctx, staticUsers[1])
	require.NoError(t, err)
	second, err := m.CreateSession(ctx, isbAdmin)
	require.NoError(t, err)

	got, err := m.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.NotEqual(t, first.ID, got.ID)
}

func TestCreateSession_UsernameFromEmail(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	sess, err := m.CreateSession(ctx, models.Account{Email: "laiba@itp.com", Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, "laiba", sess.Username)
}

func TestGetSession_CorruptSlot(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager()
	require.NoError(t, store.Set(ctx, SessionKey, "not-json"))

	_, err := m.GetSession(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(isbAdmin)

	account, err := m.UserByUsername(ctx, "admin_isb_1234")
	require.NoError(t, err)
	assert.Equal(t, "ISB", account.CityCode)

	account, err = m.UserByEmail(ctx, "user@itp.com")
	require.NoError(t, err)
	assert.Equal(t, "user", account.Username)

	_, err = m.UserByEmail(ctx, "ghost@itp.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	cityUsers, err := m.CityUsers(ctx, "ISB")
	require.NoError(t, err)
	assert.Len(t, cityUsers, 1)
}

func TestLoginWithGeneratedCityCredentials(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	reg := registry.New(store, nil, zerolog.Nop())
	m := NewManager(store, reg, staticUsers, zerolog.Nop())

	city, err := reg.CreateCity(ctx, "Peshawar", "PSH")
	require.NoError(t, err)
	traffic := city.Users[1]

	account, err := m.ValidateCredentials(ctx, traffic.Username, traffic.Password)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTraffic, account.Role)
	assert.Equal(t, "PSH", account.CityCode)

	sess, err := m.CreateSession(ctx, account)
	require.NoError(t, err)
	assert.True(t, IsTrafficOfficer(&sess))
	assert.True(t, m.Is(ctx, IsTrafficOfficer))
	assert.False(t, m.Is(ctx, IsCityAdmin))
}
