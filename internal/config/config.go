package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the marker service and its CLI client.
//
// Fields:
// - Env: The current environment (local, development, production).
// - Port: The port the HTTP API listens on.
// - DataDir: Root directory of the flat-file store; the environment subdirectory is appended.
// - Storage: Storage backend for the server (file, postgres).
// - AtomicWrites: Write flat files through a temp file and rename.
// - ProviderType: The reverse geocoding provider (nominatim, google, visicom).
// - APIKey: The API key for the geocoding provider (required by google and visicom).
// - RateLimit: Requests per second allowed towards the geocoding provider.
// - Language: Preferred language of geocoded addresses.
// - ServerURL: Base URL the CLI gateway talks to.
// - CachePath: Path of the local sqlite cache used by the CLI gateway.
// - Placeholder: Address stored when reverse geocoding fails.
// - Backfill: Settings of the address backfill service.
// - Database: Configuration settings for the PostgreSQL database.
type Config struct {
	Env          string         `yaml:"env"`
	Port         int            `yaml:"port"`
	DataDir      string         `yaml:"data_dir"`
	Storage      string         `yaml:"storage"`
	AtomicWrites bool           `yaml:"atomic_writes"`
	ProviderType string         `yaml:"provider.type"`
	APIKey       string         `yaml:"provider.api_key"`
	RateLimit    int            `yaml:"provider.rate_limit"`
	Language     string         `yaml:"provider.language"`
	ServerURL    string         `yaml:"client.server_url"`
	CachePath    string         `yaml:"client.cache_path"`
	Placeholder  string         `yaml:"address_placeholder"`
	Backfill     BackfillConfig `yaml:"backfill"`
	Database     PostgresConfig `yaml:"postgres"`
}

// BackfillConfig controls the background re-geocoding of placeholder addresses.
// A zero Interval disables the service.
type BackfillConfig struct {
	Interval time.Duration `yaml:"interval"`
	Workers  int           `yaml:"workers"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`                        // Host is the database server address.
	Port     string `yaml:"port"     env-default:"5432"` // Port is the database server port.
	User     string `yaml:"user"`                        // User is the database user.
	Password string `yaml:"password"`                    // Password is the database user's password.
	Name     string `yaml:"db_name"`                     // Name is the name of the database.
}

// MustLoad reads the environment (and an optional .env file) and returns a Config.
// It panics when a numeric or duration setting cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := newViper()

	port, err := strconv.Atoi(v.GetString("port"))
	if err != nil {
		panic("failed to parse port for the API server from configuration")
	}

	rateLimit, err := strconv.Atoi(v.GetString("rate_limit"))
	if err != nil {
		panic("failed to parse provider rate limit from configuration, must be an integer")
	}

	interval, err := time.ParseDuration(v.GetString("backfill_interval"))
	if err != nil {
		panic("failed to parse backfill interval from configuration")
	}

	workers, err := strconv.Atoi(v.GetString("backfill_workers"))
	if err != nil {
		panic("failed to parse backfill workers from configuration, must be an integer")
	}

	atomicWrites, err := strconv.ParseBool(v.GetString("atomic_writes"))
	if err != nil {
		panic("failed to parse atomic writes flag from configuration")
	}

	return &Config{
		Env:          v.GetString("env"),
		Port:         port,
		DataDir:      v.GetString("data_dir"),
		Storage:      strings.ToLower(v.GetString("storage")),
		AtomicWrites: atomicWrites,
		ProviderType: strings.ToLower(v.GetString("provider_type")),
		APIKey:       v.GetString("provider_key"),
		RateLimit:    rateLimit,
		Language:     v.GetString("language"),
		ServerURL:    strings.TrimRight(v.GetString("server_url"), "/"),
		CachePath:    v.GetString("cache_path"),
		Placeholder:  v.GetString("address_placeholder"),
		Backfill: BackfillConfig{
			Interval: interval,
			Workers:  workers,
		},
		Database: PostgresConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.username"),
			Password: v.GetString("db.password"),
			Name:     v.GetString("db.name"),
		},
	}
}

// newViper builds an isolated viper instance reading WAYPOINT_* variables.
// Database settings keep their unprefixed DB_* names.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("WAYPOINT")
	v.AutomaticEnv()

	v.SetDefault("env", "production")
	v.SetDefault("port", "8080")
	v.SetDefault("data_dir", "data")
	v.SetDefault("storage", "file")
	v.SetDefault("atomic_writes", "false")
	v.SetDefault("provider_type", "nominatim")
	v.SetDefault("provider_key", "")
	v.SetDefault("rate_limit", "1")
	v.SetDefault("language", "en")
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("cache_path", "waypoint-cache.db")
	v.SetDefault("address_placeholder", "Address not found")
	v.SetDefault("backfill_interval", "0s")
	v.SetDefault("backfill_workers", "2")
	v.SetDefault("db.port", "5432")

	_ = v.BindEnv("db.host", "DB_HOST")
	_ = v.BindEnv("db.port", "DB_PORT")
	_ = v.BindEnv("db.username", "DB_USERNAME")
	_ = v.BindEnv("db.password", "DB_PASSWORD")
	_ = v.BindEnv("db.name", "DB_NAME")

	return v
}
