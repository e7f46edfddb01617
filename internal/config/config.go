// Package config loads synthscan settings from defaults, an optional YAML
// file, SYNTHSCAN_* environment variables and bound CLI flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SYNTHSCAN_BACKEND_URL.
const EnvPrefix = "SYNTHSCAN"

// Config is the full runtime configuration.
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Server  ServerConfig  `mapstructure:"server"`
	Health  HealthConfig  `mapstructure:"health"`
	Log     LogConfig     `mapstructure:"log"`
}

// BackendConfig locates the detection backend.
type BackendConfig struct {
	URL         string        `mapstructure:"url" validate:"required,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Insecure    bool          `mapstructure:"insecure"`
	AccessToken string        `mapstructure:"access_token"`
}

// ServerConfig configures the presentation HTTP API.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" validate:"required"`
	CORSOrigins    []string `mapstructure:"cors_origins" validate:"dive,required"`
	RateLimitRPS   int      `mapstructure:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" validate:"gte=0"`
}

// HealthConfig configures the backend reachability probe.
type HealthConfig struct {
	Interval      time.Duration `mapstructure:"interval" validate:"gt=0"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout" validate:"gt=0"`
	FailThreshold int           `mapstructure:"fail_threshold" validate:"gte=1"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

var validate = validator.New()

// SetDefaults registers every key with its default so environment variables
// are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", "http://localhost:8443")
	v.SetDefault("backend.timeout", "2m")
	v.SetDefault("backend.insecure", false)
	v.SetDefault("backend.access_token", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 5)
	v.SetDefault("server.rate_limit_burst", 10)

	v.SetDefault("health.interval", "30s")
	v.SetDefault("health.probe_timeout", "5s")
	v.SetDefault("health.fail_threshold", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configuration into a validated Config. cfgFile, when set, must
// exist; otherwise ./synthscan.yaml and ~/.synthscan/synthscan.yaml are tried
// and silently skipped when absent.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("synthscan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".synthscan"))
		}
		if err := v.ReadInConfig(); err != nil {
			var cfgNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &cfgNotFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
