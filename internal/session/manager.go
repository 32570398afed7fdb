// Package session validates credentials and keeps the single active
// session slot.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trafficportal/internal/config"
	"trafficportal/internal/ids"
	"trafficportal/internal/kv"
	"trafficportal/internal/models"
	"trafficportal/internal/security"
)

const SessionKey = "userSession"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no active session")
	ErrUserNotFound       = errors.New("user not found")
)

// AccountSource supplies the city accounts that can log in.
type AccountSource interface {
	FlattenUsers(ctx context.Context) ([]models.Account, error)
}

type Manager struct {
	store    kv.Store
	accounts AccountSource
	static   []models.Account
	log      zerolog.Logger
	now      func() time.Time
}

func NewManager(store kv.Store, accounts AccountSource, static []models.Account, log zerolog.Logger) *Manager {
	return &Manager{
		store:    store,
		accounts: accounts,
		static:   static,
		log:      log,
		now:      time.Now,
	}
}

// StaticAccounts converts configured accounts into login accounts.
func StaticAccounts(users []config.StaticUser) []models.Account {
	accounts := make([]models.Account, 0, len(users))
	for _, u := range users {
		accounts = append(accounts, models.Account{
			Email:        u.Email,
			Username:     u.Username,
			Password:     u.Password,
			PasswordHash: u.PasswordHash,
			Role:         models.Role(u.Role),
		})
	}
	return accounts
}

// AllUsers returns the static accounts followed by every city account.
func (m *Manager) AllUsers(ctx context.Context) ([]models.Account, error) {
	all := append([]models.Account(nil), m.static...)
	if m.accounts == nil {
		return all, nil
	}

	cityAccounts, err := m.accounts.FlattenUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load city accounts: %w", err)
	}
	return append(all, cityAccounts...), nil
}

// ValidateCredentials returns the first account whose email or username is
// identifier and whose password matches.
func (m *Manager) ValidateCredentials(ctx context.Context, identifier string, password string) (models.Account, error) {
	all, err := m.AllUsers(ctx)
	if err != nil {
		return models.Account{}, err
	}

	for _, account := range all {
		if account.Email != identifier && account.Username != identifier {
			continue
		}
		if m.passwordMatches(account, password) {
			return account, nil
		}
	}
	return models.Account{}, ErrInvalidCredentials
}

func (m *Manager) passwordMatches(account models.Account, password string) bool {
	if account.PasswordHash != "" {
		ok, err := security.VerifyPassword(password, account.PasswordHash)
		if err != nil {
			m.log.Warn().Err(err).Str("email", account.Email).Msg("unreadable password hash")
			return false
		}
		return ok
	}
	return account.Password != "" && account.Password == password
}

// CreateSession replaces whatever session occupies the slot.
func (m *Manager) CreateSession(ctx context.Context, account models.Account) (models.Session, error) {
	username := account.Username
	if username == "" {
		username, _, _ = strings.Cut(account.Email, "@")
	}

	sess := models.Session{
		ID:              ids.New(),
		Username:        username,
		Email:           account.Email,
		Role:            account.Role,
		CityCode:        account.CityCode,
		CityName:        account.CityName,
		IsAuthenticated: true,
		LoginTime:       m.now().UTC(),
	}

	if err := kv.SetJSON(ctx, m.store, SessionKey, sess); err != nil {
		return models.Session{}, fmt.Errorf("save session: %w", err)
	}

	m.log.Info().
		Str("username", sess.Username).
		Str("role", string(sess.Role)).
		Str("city", sess.CityCode).
		Msg("session created")
	return sess, nil
}

// GetSession reads the slot. An empty or unreadable slot is ErrNoSession.
func (m *Manager) GetSession(ctx context.Context) (models.Session, error) {
	var sess models.Session
	err := kv.GetJSON(ctx, m.store, SessionKey, &sess)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, kv.ErrNotFound):
		return models.Session{}, ErrNoSession
	case errors.Is(err, kv.ErrCorrupt):
		m.log.Warn().Err(err).Msg("discarding unreadable session")
		return models.Session{}, ErrNoSession
	default:
		return models.Session{}, err
	}
}

func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	sess, err := m.GetSession(ctx)
	return err == nil && sess.IsAuthenticated
}

func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Remove(ctx, SessionKey); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Is applies a role predicate to the current session; no session is false.
func (m *Manager) Is(ctx context.Context, predicate func(*models.Session) bool) bool {
	sess, err := m.GetSession(ctx)
	if err != nil {
		return false
	}
	return predicate(&sess)
}

func (m *Manager) UserByUsername(ctx context.Context, username string) (models.Account, error) {
	return m.findUser(ctx, func(a models.Account) bool { return a.Username == username })
}

func (m *Manager) UserByEmail(ctx context.Context, email string) (models.Account, error) {
	return m.findUser(ctx, func(a models.Account) bool { return a.Email == email })
}

// CityUsers returns the login accounts scoped to cityCode.
func (m *Manager) CityUsers(ctx context.Context, cityCode string) ([]models.Account, error) {
	all, err := m.AllUsers(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Account
	for _, account := range all {
		if account.CityCode != "" && account.CityCode == cityCode {
			out = append(out, account)
		}
	}
	return out, nil
}

func (m *Manager) findUser(ctx context.Context, match func(models.Account) bool) (models.Account, error) {
	all, err := m.AllUsers(ctx)
	if err != nil {
		return models.Account{}, err
	}
	for _, account := range all {
		if match(account) {
			return account, nil
		}
	}
	return models.Account{}, ErrUserNotFound
}
