// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file
// when present), loads them into structured Go types and validates that
// required values are present so they can be reused across the
// application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for optional config blocks (observability, table prefix).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process env before anything below reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

/*
	Env vars are read using the prefix BLOGTEMPLATES_. Nesting uses a double
	underscore, so the prefix is trimmed, the rest is lowercased and "__"
	becomes koanf's "." delimiter:

		BLOGTEMPLATES_DATABASE__TABLE_PREFIX -> database.table_prefix
*/

// EnvPrefix is the prefix every configuration variable must carry.
const EnvPrefix = "BLOGTEMPLATES_"

// DefaultTablePrefix is used when database.table_prefix is not configured.
// It matches the prefix of a stock single-site install.
const DefaultTablePrefix = "wp_"

// Config is the root configuration object for the application.
//
// The `koanf:"..."` tags specify where koanf maps values from and the
// `validate:"..."` tags are enforced by go-playground/validator.
//
// Observability is a pointer so code built without LoadConfig (tests) can
// leave it nil; LoadConfig always fills it.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
// Used to tag logs/traces and switch behavior based on env.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the admin HTTP server.
//
// Timeouts are stored as whole seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

// DatabaseConfig contains PostgreSQL connection parameters, pool tuning
// and the table namespace of the templates store.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`

	// TablePrefix namespaces the three store tables, e.g. "wp_" gives
	// wp_nbt_templates. Only letters, digits and underscores are allowed,
	// and at most 17 of them so the derived index names fit in 63 bytes.
	TablePrefix string `koanf:"table_prefix" validate:"omitempty,max=17"`
}

// envKey turns BLOGTEMPLATES_DATABASE__HOST into database.host.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// LoadConfig loads configuration from environment variables on top of the
// defaults, validates it and returns the result.
//
// Unlike a bare loader it returns errors instead of exiting, so the
// entrypoint decides how to die. MustLoadConfig keeps the fail-fast form.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	// Unmarshal overlays the env onto these values, so a partial
	// observability block keeps the defaults of the keys it leaves out and
	// an explicitly empty table prefix stays empty.
	mainConfig := &Config{
		Database:      DatabaseConfig{TablePrefix: DefaultTablePrefix},
		Observability: DefaultObservabilityConfig(),
	}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	// Service name and environment are forced so telemetry stays
	// consistently labelled regardless of what was set.
	mainConfig.Observability.ServiceName = "blogtemplates"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}

// MustLoadConfig calls LoadConfig and exits the process on failure,
// logging the reason with a console zerolog logger on STDERR.
func MustLoadConfig() *Config {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load config")
	}
	return cfg
}
