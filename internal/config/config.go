// Package config holds leadscout's settings and loads them through viper
// from defaults, a YAML file and LEADSCOUT_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to environment overrides, e.g. LEADSCOUT_APOLLO_API_KEY.
const EnvPrefix = "LEADSCOUT"

type Config struct {
	Log      LogConfig         `yaml:"log" mapstructure:"log"`
	HTTP     HTTPConfig        `yaml:"http" mapstructure:"http"`
	Sources  SourcesConfig     `yaml:"sources" mapstructure:"sources"`
	Apollo   ApolloConfig      `yaml:"apollo" mapstructure:"apollo"`
	Server   ServerConfig      `yaml:"server" mapstructure:"server"`
	Storage  StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Settings SettingsConfig    `yaml:"settings" mapstructure:"settings"`
	Redis    RedisConfig       `yaml:"redis" mapstructure:"redis"`
	Webhooks map[string]string `yaml:"webhooks" mapstructure:"webhooks"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" mapstructure:"level"`
	// Format is text or json.
	Format string `yaml:"format" mapstructure:"format"`
}

// HTTPConfig configures the shared fetcher.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRedirects int           `yaml:"max_redirects" mapstructure:"max_redirects"`
	// Fingerprint is chrome, firefox, safari, go or random.
	Fingerprint       string   `yaml:"fingerprint" mapstructure:"fingerprint"`
	UserAgents        []string `yaml:"user_agents" mapstructure:"user_agents"`
	UARotation        string   `yaml:"ua_rotation" mapstructure:"ua_rotation"`
	Proxies           []string `yaml:"proxies" mapstructure:"proxies"`
	ProxyFile         string   `yaml:"proxy_file" mapstructure:"proxy_file"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int      `yaml:"burst" mapstructure:"burst"`
	Jitter            float64  `yaml:"jitter" mapstructure:"jitter"`
	// Cache is none, memory or redis.
	Cache         string        `yaml:"cache" mapstructure:"cache"`
	CacheTTL      time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

type SourceConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type RedditConfig struct {
	SourceConfig `yaml:",inline" mapstructure:",squash"`
	Subreddits   []string `yaml:"subreddits" mapstructure:"subreddits"`
}

type GoogleConfig struct {
	SourceConfig   `yaml:",inline" mapstructure:",squash"`
	EnrichContacts bool `yaml:"enrich_contacts" mapstructure:"enrich_contacts"`
	EnrichPages    int  `yaml:"enrich_pages" mapstructure:"enrich_pages"`
}

type SourcesConfig struct {
	Reddit       RedditConfig `yaml:"reddit" mapstructure:"reddit"`
	Fiverr       SourceConfig `yaml:"fiverr" mapstructure:"fiverr"`
	GoZambiaJobs SourceConfig `yaml:"gozambiajobs" mapstructure:"gozambiajobs"`
	Google       GoogleConfig `yaml:"google" mapstructure:"google"`
	Apollo       SourceConfig `yaml:"apollo" mapstructure:"apollo"`
}

type ApolloConfig struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	SignupURL string `yaml:"signup_url" mapstructure:"signup_url"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
	// RunTimeout bounds one search request end to end.
	RunTimeout   time.Duration `yaml:"run_timeout" mapstructure:"run_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	// AdminToken must be sent as a bearer token to change webhook_* settings
	// over HTTP. Empty leaves them read-only there.
	AdminToken string `yaml:"admin_token" mapstructure:"admin_token"`
}

type StorageConfig struct {
	// Driver is none, sqlite, postgres, csv or json.
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

type SettingsConfig struct {
	// Driver is memory or redis.
	Driver string `yaml:"driver" mapstructure:"driver"`
	Key    string `yaml:"key" mapstructure:"key"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			MaxRedirects:      10,
			Fingerprint:       "go",
			UARotation:        "round-robin",
			RequestsPerSecond: 2,
			Burst:             2,
			Jitter:            0.2,
			Cache:             "memory",
			CacheTTL:          10 * time.Minute,
			MaxBodyBytes:      5 << 20,
			RespectRobots:     true,
		},
		Sources: SourcesConfig{
			Reddit: RedditConfig{
				SourceConfig: SourceConfig{BaseURL: "https://www.reddit.com", Timeout: 10 * time.Second},
				Subreddits:   []string{"smallbusiness", "entrepreneur", "marketing", "startups"},
			},
			Fiverr:       SourceConfig{BaseURL: "https://www.fiverr.com", Timeout: 15 * time.Second},
			GoZambiaJobs: SourceConfig{BaseURL: "https://gozambiajobs.com", Timeout: 15 * time.Second},
			Google: GoogleConfig{
				SourceConfig: SourceConfig{BaseURL: "https://www.google.com", Timeout: 10 * time.Second},
				EnrichPages:  6,
			},
			Apollo: SourceConfig{BaseURL: "https://api.apollo.io", Timeout: 20 * time.Second},
		},
		Apollo: ApolloConfig{SignupURL: "https://app.apollo.io/#/settings/integrations/api"},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			RunTimeout:   60 * time.Second,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second,
		},
		Storage:  StorageConfig{Driver: "none"},
		Settings: SettingsConfig{Driver: "memory", Key: "leadscout:settings"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Webhooks: map[string]string{"find": "", "scrape": "", "analyze": ""},
	}
}

// SetDefaults registers every DefaultConfig key on v so that environment
// variables can override keys absent from the config file.
func SetDefaults(v *viper.Viper) error {
	raw, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("config: marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("config: unmarshal defaults: %w", err)
	}
	setFlat(v, "", tree)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return nil
}

func setFlat(v *viper.Viper, prefix string, node map[string]any) {
	for k, val := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := val.(map[string]any); ok && len(child) > 0 {
			setFlat(v, key, child)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Load decodes v into a Config. Call SetDefaults and ReadInConfig first.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	if !oneOf(c.Storage.Driver, "none", "", "sqlite", "postgres", "csv", "json") {
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver != "none" && c.Storage.Driver != "" && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage driver %q needs a dsn", c.Storage.Driver)
	}
	if !oneOf(c.Settings.Driver, "memory", "", "redis") {
		return fmt.Errorf("config: unknown settings driver %q", c.Settings.Driver)
	}
	if !oneOf(c.HTTP.Cache, "none", "", "memory", "redis") {
		return fmt.Errorf("config: unknown cache %q", c.HTTP.Cache)
	}
	if !oneOf(c.Log.Format, "text", "", "json") {
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

func oneOf(s string, options ...string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
