// Package registry owns the persisted list of cities and the role accounts
// generated for each of them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trafficportal/internal/events"
	"trafficportal/internal/kv"
	"trafficportal/internal/models"
	"trafficportal/internal/security"
)

const CitiesKey = "traffic_police_cities"

var (
	ErrMissingField      = errors.New("city name and code are required")
	ErrDuplicateCityCode = errors.New("city with this code already exists")
	ErrCityNotFound      = errors.New("city not found")
)

// UserTemplate describes one of the accounts created with every city.
type UserTemplate struct {
	Role  models.Role
	Title string
	Icon  string
}

// CityRoles is the fixed account set generated for a new city, in order.
var CityRoles = []UserTemplate{
	{Role: models.RoleAdmin, Title: "City Admin", Icon: "👤"},
	{Role: models.RoleTraffic, Title: "Traffic Control Officer", Icon: "🚦"},
	{Role: models.RoleSergeant1, Title: "Traffic sergeant 1", Icon: "🕵️"},
	{Role: models.RoleSergeant2, Title: "Traffic sergeant 2", Icon: "🕵️"},
}

// Seed is a city created when the registry has never been written.
type Seed struct {
	Name string
	Code string
}

var DefaultSeeds = []Seed{
	{Name: "Islamabad", Code: "ISB"},
	{Name: "Karachi", Code: "KHI"},
	{Name: "Multan", Code: "MLT"},
}

const defaultEmailDomain = "itp.com"

type Registry struct {
	store       kv.Store
	events      events.Publisher
	log         zerolog.Logger
	seeds       []Seed
	emailDomain string
	now         func() time.Time
	password    func() (string, error)
}

type Option func(*Registry)

func WithSeeds(seeds []Seed) Option {
	return func(r *Registry) { r.seeds = seeds }
}

func WithEmailDomain(domain string) Option {
	return func(r *Registry) {
		if domain != "" {
			r.emailDomain = domain
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithPasswordGenerator(fn func() (string, error)) Option {
	return func(r *Registry) { r.password = fn }
}

func New(store kv.Store, publisher events.Publisher, log zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		store:       store,
		events:      publisher,
		log:         log,
		seeds:       DefaultSeeds,
		emailDomain: defaultEmailDomain,
		now:         time.Now,
		password:    security.GeneratePassword,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load returns the stored registry without seeding it. initialized is false
// when the key has never been written. A corrupt document is logged and
// replaced by freshly generated seed cities, which are not persisted.
func (r *Registry) Load(ctx context.Context) (cities []models.City, initialized bool, err error) {
	err = kv.GetJSON(ctx, r.store, CitiesKey, &cities)
	switch {
	case err == nil:
		if cities == nil {
			cities = []models.City{}
		}
		return cities, true, nil
	case errors.Is(err, kv.ErrNotFound):
		return nil, false, nil
	case errors.Is(err, kv.ErrCorrupt):
		r.log.Error().Err(err).Msg("city registry unreadable, falling back to defaults")
		cities, err := r.seedCities()
		return cities, true, err
	default:
		return nil, false, fmt.Errorf("load cities: %w", err)
	}
}

// ListCities returns the registry, seeding and persisting the default cities
// on first use. An explicitly empty registry stays empty.
func (r *Registry) ListCities(ctx context.Context) ([]models.City, error) {
	cities, seeded, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	if seeded {
		if err := r.commitSeed(ctx, cities); err != nil {
			return nil, err
		}
	}
	return cities, nil
}

// current is ListCities without side effects: seeded reports that cities are
// freshly generated defaults nobody has stored yet.
func (r *Registry) current(ctx context.Context) (cities []models.City, seeded bool, err error) {
	cities, initialized, err := r.Load(ctx)
	if err != nil || initialized {
		return cities, false, err
	}
	cities, err = r.seedCities()
	if err != nil {
		return nil, false, err
	}
	return cities, true, nil
}

func (r *Registry) commitSeed(ctx context.Context, cities []models.City) error {
	if err := r.save(ctx, cities); err != nil {
		return err
	}
	r.log.Info().Int("cities", len(cities)).Msg("city registry seeded")
	r.publish(ctx, events.Event{Type: events.RegistrySeeded})
	return nil
}

// CreateCity validates name and code, generates the city's accounts and
// appends it. Nothing is written when validation fails, not even the default
// seed of a registry that was never stored.
func (r *Registry) CreateCity(ctx context.Context, name string, code string) (models.City, error) {
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(code)
	if name == "" || code == "" {
		return models.City{}, ErrMissingField
	}

	cities, seeded, err := r.current(ctx)
	if err != nil {
		return models.City{}, err
	}

	id := CityID(code)
	for _, existing := range cities {
		if existing.ID == id || strings.EqualFold(existing.CityCode, code) {
			return models.City{}, fmt.Errorf("%w: %s", ErrDuplicateCityCode, strings.ToUpper(code))
		}
	}

	city, err := r.newCity(name, strings.ToUpper(code))
	if err != nil {
		return models.City{}, err
	}

	if seeded {
		if err := r.commitSeed(ctx, cities); err != nil {
			return models.City{}, err
		}
	}
	if err := r.save(ctx, append(cities, city)); err != nil {
		return models.City{}, err
	}

	r.log.Info().Str("city", city.CityName).Str("code", city.CityCode).Msg("city created")
	r.publish(ctx, events.Event{Type: events.CityCreated, CityCode: city.CityCode, CityName: city.CityName})
	return city, nil
}

// DeleteCity removes the city and every account generated for it.
func (r *Registry) DeleteCity(ctx context.Context, id string) (models.City, error) {
	cities, seeded, err := r.current(ctx)
	if err != nil {
		return models.City{}, err
	}

	kept := make([]models.City, 0, len(cities))
	var removed *models.City
	for i := range cities {
		if cities[i].ID == id && removed == nil {
			removed = &cities[i]
			continue
		}
		kept = append(kept, cities[i])
	}
	if removed == nil {
		return models.City{}, fmt.Errorf("%w: %s", ErrCityNotFound, id)
	}

	if seeded {
		if err := r.commitSeed(ctx, cities); err != nil {
			return models.City{}, err
		}
	}
	if err := r.save(ctx, kept); err != nil {
		return models.City{}, err
	}

	r.log.Info().Str("city", removed.CityName).Str("code", removed.CityCode).Msg("city deleted")
	r.publish(ctx, events.Event{Type: events.CityDeleted, CityCode: removed.CityCode, CityName: removed.CityName})
	return *removed, nil
}

// FindCity returns the first city satisfying match.
func (r *Registry) FindCity(ctx context.Context, match func(models.City) bool) (models.City, error) {
	cities, err := r.ListCities(ctx)
	if err != nil {
		return models.City{}, err
	}
	for _, city := range cities {
		if match(city) {
			return city, nil
		}
	}
	return models.City{}, ErrCityNotFound
}

func (r *Registry) GetCity(ctx context.Context, id string) (models.City, error) {
	return r.FindCity(ctx, func(c models.City) bool { return c.ID == id })
}

func (r *Registry) CityByCode(ctx context.Context, code string) (models.City, error) {
	return r.FindCity(ctx, func(c models.City) bool { return strings.EqualFold(c.CityCode, code) })
}

// FlattenUsers converts every city account into a login account with a
// synthesized username@code.domain email.
func (r *Registry) FlattenUsers(ctx context.Context) ([]models.Account, error) {
	cities, err := r.ListCities(ctx)
	if err != nil {
		return nil, err
	}

	var accounts []models.Account
	for _, city := range cities {
		accounts = append(accounts, r.cityAccounts(city)...)
	}
	return accounts, nil
}

// CityUsers returns the login accounts belonging to one city.
func (r *Registry) CityUsers(ctx context.Context, code string) ([]models.Account, error) {
	accounts, err := r.FlattenUsers(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Account
	for _, account := range accounts {
		if account.CityCode == code {
			out = append(out, account)
		}
	}
	return out, nil
}

func (r *Registry) cityAccounts(city models.City) []models.Account {
	accounts := make([]models.Account, 0, len(city.Users))
	for _, user := range city.Users {
		accounts = append(accounts, models.Account{
			Email:    LoginEmail(user.Username, city.CityCode, r.emailDomain),
			Username: user.Username,
			Password: user.Password,
			Role:     user.Role,
			CityCode: city.CityCode,
			CityName: city.CityName,
		})
	}
	return accounts
}

func (r *Registry) seedCities() ([]models.City, error) {
	cities := make([]models.City, 0, len(r.seeds))
	for _, seed := range r.seeds {
		city, err := r.newCity(strings.TrimSpace(seed.Name), strings.ToUpper(strings.TrimSpace(seed.Code)))
		if err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}
	return cities, nil
}

func (r *Registry) newCity(name string, code string) (models.City, error) {
	now := r.now()

	users := make([]models.CityUser, 0, len(CityRoles))
	for _, tmpl := range CityRoles {
		password, err := r.password()
		if err != nil {
			return models.City{}, err
		}
		users = append(users, models.CityUser{
			Username: security.GenerateUsername(string(tmpl.Role), code, now),
			Password: password,
			Role:     tmpl.Role,
			Title:    tmpl.Title,
			Icon:     tmpl.Icon,
			Status:   string(models.CityStatusActive),
		})
	}

	return models.City{
		ID:        CityID(code),
		CityName:  name,
		CityCode:  code,
		Users:     users,
		CreatedAt: now.UTC(),
		Status:    models.CityStatusActive,
	}, nil
}

func (r *Registry) save(ctx context.Context, cities []models.City) error {
	if err := kv.SetJSON(ctx, r.store, CitiesKey, cities); err != nil {
		return fmt.Errorf("save cities: %w", err)
	}
	return nil
}

func (r *Registry) publish(ctx context.Context, event events.Event) {
	if r.events == nil {
		return
	}
	r.events.Publish(ctx, event)
}

// CityID derives the stable record id from a city code.
func CityID(code string) string {
	return "city:" + strings.ToLower(strings.TrimSpace(code))
}

// LoginEmail is the synthesized email of a city account.
func LoginEmail(username string, cityCode string, emailDomain string) string {
	return fmt.Sprintf("%s@%s.%s", username, strings.ToLower(cityCode), emailDomain)
}
