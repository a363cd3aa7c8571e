// Package config loads the service configuration with viper from an
// optional file and AUTHGATE_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/spf13/viper"

	auth "github.com/goliatone/go-auth-gate"
)

// EnvPrefix namespaces environment overrides, AUTHGATE_SIGNING_KEY and so on
const EnvPrefix = "AUTHGATE"

type HTTP struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Database struct {
	DSN string `mapstructure:"dsn"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Config is the service configuration. It implements auth.Config.
type Config struct {
	SigningKey   string        `mapstructure:"signing_key"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	DebugHeaders bool          `mapstructure:"debug_headers"`
	Debug        bool          `mapstructure:"debug"`

	HTTP     HTTP     `mapstructure:"http"`
	Database Database `mapstructure:"database"`
	Log      Log      `mapstructure:"log"`
}

var _ auth.Config = (*Config)(nil)

func (c *Config) GetSigningKey() string {
	return c.SigningKey
}

func (c *Config) GetTokenTTL() time.Duration {
	return c.TokenTTL
}

func (c *Config) GetDebugHeaders() bool {
	return c.DebugHeaders
}

// SetDefaults registers the default values on v
func SetDefaults(v *viper.Viper) {
	// registered so AutomaticEnv picks it up on Unmarshal
	v.SetDefault("signing_key", "")
	v.SetDefault("token_ttl", auth.DefaultTokenTTL)
	v.SetDefault("debug_headers", false)
	v.SetDefault("debug", false)
	v.SetDefault("http.address", ":8080")
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("database.dsn", "file:authgate.db?cache=shared")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads the configuration through v. path is optional, when empty only
// defaults and the environment are used.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values needed to start the service
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey,
			validation.Required,
			validation.Length(auth.MinSigningKeyLength, 0),
		),
		validation.Field(&c.TokenTTL, validation.By(positiveDuration)),
		validation.Field(&c.HTTP, validation.By(func(any) error {
			return validation.ValidateStruct(&c.HTTP,
				validation.Field(&c.HTTP.Address, validation.Required),
			)
		})),
		validation.Field(&c.Log, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Log,
				validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
			)
		})),
	)
}

func positiveDuration(value any) error {
	d, ok := value.(time.Duration)
	if !ok {
		return errors.New("must be a duration")
	}
	if d <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}
