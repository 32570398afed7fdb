package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	BucketSnapshots string
	UseSSL          bool
	Region          string
}

type SecurityConfig struct {
	JWTAccessSecret string
	JWTAccessTTL    time.Duration
}

// StoreConfig selects the backend behind the portal's key-value storage port.
type StoreConfig struct {
	Backend   string // memory, redis, postgres or file
	KeyPrefix string
	FilePath  string
}

// EventsConfig controls the relay of registry events between instances.
// With Relay off, events stay inside the process. Transport is redis or
// nats; only the redis transport also feeds the worker stream.
type EventsConfig struct {
	Relay     bool
	Transport string
	Channel   string
	Stream    string
	NatsURL   string
}

type QueueConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type JobsConfig struct {
	SnapshotSpec string
	AuditSpec    string
}

// StaticUser is a configured account that is not tied to any city.
type StaticUser struct {
	Email        string
	Username     string
	Password     string
	PasswordHash string
	Role         string
}

type PortalConfig struct {
	EmailDomain   string
	StaticUsers   []StaticUser
	DefaultCities []DefaultCity
}

type DefaultCity struct {
	Name string
	Code string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Store            StoreConfig
	Events           EventsConfig
	Queue            QueueConfig
	Jobs             JobsConfig
	Portal           PortalConfig
	AllowCORSOrigins []string
}

// Load reads defaults, then config.yaml, then PORTAL_* environment variables.
// A .env file in the working directory seeds the environment without
// overriding variables that are already set.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns the configuration produced by the built-in defaults alone.
func Defaults() *AppConfig {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 10)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketsnapshots", "portal-snapshots")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtaccesssecret", "dev-portal-secret")
	v.SetDefault("security.jwtaccessttl", "12h")

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.keyprefix", "portal:")
	v.SetDefault("store.filepath", "portal-store.json")

	v.SetDefault("events.relay", false)
	v.SetDefault("events.transport", "redis")
	v.SetDefault("events.channel", "portal:events")
	v.SetDefault("events.natsurl", "nats://127.0.0.1:4222")
	v.SetDefault("events.stream", "portal:tasks")

	v.SetDefault("queue.stream", "portal:tasks")
	v.SetDefault("queue.group", "portal-workers")
	v.SetDefault("queue.consumer", "worker-1")
	v.SetDefault("queue.claiminterval", "1m")

	v.SetDefault("jobs.snapshotspec", "0 0 0 * * *")
	v.SetDefault("jobs.auditspec", "0 0 */1 * * *")

	v.SetDefault("portal.emaildomain", "itp.com")
	v.SetDefault("portal.staticusers", []map[string]any{
		{"email": "admin@itp.com", "username": "admin", "password": "admin123", "role": "admin"},
		{"email": "user@itp.com", "username": "user", "password": "user123", "role": "user"},
		{"email": "laiba@itp.com", "username": "laiba", "password": "test123", "role": "user"},
	})
	v.SetDefault("portal.defaultcities", []map[string]any{
		{"name": "Islamabad", "code": "ISB"},
		{"name": "Karachi", "code": "KHI"},
		{"name": "Multan", "code": "MLT"},
	})
}
