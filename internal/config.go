package internal

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/language"
)

// Config is the full service configuration. Keys are snake_case in both the
// YAML file and the koanf tree so env overrides line up with file keys.
type Config struct {
	Server     ServerConfig     `koanf:"server" yaml:"server"`
	Proxy      ProxyConfig      `koanf:"proxy" yaml:"proxy"`
	Services   ServicesConfig   `koanf:"services" yaml:"services"`
	Breaker    BreakerConfig    `koanf:"breaker" yaml:"breaker"`
	Enrichment EnrichmentConfig `koanf:"enrichment" yaml:"enrichment"`
	Display    DisplayConfig    `koanf:"display" yaml:"display"`
	Log        LogConfig        `koanf:"log" yaml:"log"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" yaml:"addr" validate:"required"`
	// TemplateDir overrides the built-in page templates.
	TemplateDir string `koanf:"template_dir" yaml:"template_dir"`
}

// ProxyConfig describes the single proxy endpoint every remote call goes through.
type ProxyConfig struct {
	BaseURL string        `koanf:"base_url" yaml:"base_url" json:"baseUrl" validate:"required,url"`
	Debug   bool          `koanf:"debug" yaml:"debug" json:"debug"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout" json:"timeout" validate:"gt=0"`
	// Cookie is sent with every proxy request in addition to the visitor's own cookies.
	Cookie string `koanf:"cookie" yaml:"cookie" json:"cookie"`
}

type ServicesConfig struct {
	SeriesApp    string `koanf:"series_app" yaml:"series_app" validate:"required"`
	SeriesPath   string `koanf:"series_path" yaml:"series_path" validate:"required,startswith=/"`
	MovieApp     string `koanf:"movie_app" yaml:"movie_app" validate:"required"`
	MoviePath    string `koanf:"movie_path" yaml:"movie_path" validate:"required,startswith=/"`
	CalendarPath string `koanf:"calendar_path" yaml:"calendar_path" validate:"required,startswith=/"`
	PingPath     string `koanf:"ping_path" yaml:"ping_path" validate:"required,startswith=/"`
}

type BreakerConfig struct {
	Enabled     bool          `koanf:"enabled" yaml:"enabled"`
	MaxFailures uint32        `koanf:"max_failures" yaml:"max_failures" validate:"min=1"`
	OpenTimeout time.Duration `koanf:"open_timeout" yaml:"open_timeout" validate:"gt=0"`
}

type EnrichmentConfig struct {
	Concurrency int `koanf:"concurrency" yaml:"concurrency" validate:"min=1"`
}

type DisplayConfig struct {
	Locale     string `koanf:"locale" yaml:"locale" validate:"required"`
	Timezone   string `koanf:"timezone" yaml:"timezone" validate:"required"`
	DateFormat string `koanf:"date_format" yaml:"date_format" validate:"required"`
}

type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=console json"`
	File   string `koanf:"file" yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Proxy: ProxyConfig{
			BaseURL: "https://plex.aleph0.com/chjones/admin/proxy.cgi",
			Timeout: 30 * time.Second,
		},
		Services: ServicesConfig{
			SeriesApp:    DefaultSeriesApp,
			SeriesPath:   DefaultSeriesPath,
			MovieApp:     DefaultMovieApp,
			MoviePath:    DefaultMoviePath,
			CalendarPath: DefaultCalendarPath,
			PingPath:     DefaultPingPath,
		},
		Breaker: BreakerConfig{
			Enabled:     true,
			MaxFailures: 5,
			OpenTimeout: time.Minute,
		},
		Enrichment: EnrichmentConfig{Concurrency: 8},
		Display: DisplayConfig{
			Locale:     "en",
			Timezone:   "UTC",
			DateFormat: "Mon Jan 2, 2006",
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

var configValidator = validator.New()

// Validate checks struct constraints plus locale and timezone names.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}
	if _, err := language.Parse(c.Display.Locale); err != nil {
		return fmt.Errorf("display.locale %q: %w", c.Display.Locale, err)
	}
	if _, err := time.LoadLocation(c.Display.Timezone); err != nil {
		return fmt.Errorf("display.timezone %q: %w", c.Display.Timezone, err)
	}
	return nil
}

// ResolveConfigPath picks the config file: explicit path, then the env var,
// then config.yml in the working directory if it exists.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	return ""
}

// LoadConfig layers defaults, the YAML file at path (if any) and
// PLEXADMIN_<SECTION>__<KEY> environment variables.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// PLEXADMIN_PROXY__BASE_URL -> proxy.base_url
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}
