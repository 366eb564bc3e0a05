// Package config loads the runtime settings from viper on top of the
// defaults declared in the struct tags below.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SMARTPLACES_CATALOG_CONCURRENCY.
const EnvPrefix = "SMARTPLACES"

// ErrInvalidSettings is returned by Validate.
var ErrInvalidSettings = errors.New("invalid settings")

type Settings struct {
	LogLevel string          `mapstructure:"loglevel" default:"info"`
	Catalog  CatalogSettings `mapstructure:"catalog"`
	Search   SearchSettings  `mapstructure:"search"`
	HTTP     HTTPSettings    `mapstructure:"http"`
	Journal  JournalSettings `mapstructure:"journal"`
	Server   ServerSettings  `mapstructure:"server"`
}

type CatalogSettings struct {
	RefreshInterval  time.Duration `mapstructure:"refresh_interval" default:"1h"`
	CollectorTimeout time.Duration `mapstructure:"collector_timeout" default:"45s"`
	WaitTimeout      time.Duration `mapstructure:"wait_timeout" default:"60s"`
	RefreshTimeout   time.Duration `mapstructure:"refresh_timeout" default:"2m"`
	Concurrency      int           `mapstructure:"concurrency" default:"3"`
	FailureCooldown  time.Duration `mapstructure:"failure_cooldown" default:"1m"`
	Collectors       []string      `mapstructure:"collectors" default:"[\"fablab\",\"visitesp\",\"wikipedia\"]"`
}

type SearchSettings struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval" default:"30m"`
	APIKey          string        `mapstructure:"api_key"`
	Endpoint        string        `mapstructure:"endpoint" default:"https://api.tavily.com/search"`
	MaxResults      int           `mapstructure:"max_results" default:"7"`
	IncludeDomains  []string      `mapstructure:"include_domains"`
	ExcludeDomains  []string      `mapstructure:"exclude_domains"`
}

type HTTPSettings struct {
	Timeout           time.Duration `mapstructure:"timeout" default:"20s"`
	RetryMax          int           `mapstructure:"retry_max" default:"3"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" default:"2"`
	UserAgent         string        `mapstructure:"user_agent"`
	Proxy             string        `mapstructure:"proxy"`
}

type JournalSettings struct {
	Enabled bool   `mapstructure:"enabled" default:"false"`
	Path    string `mapstructure:"path"`
}

type ServerSettings struct {
	Listen          string `mapstructure:"listen" default:":8080"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	RefreshSchedule string `mapstructure:"refresh_schedule" default:"@every 1h"`
}

// Defaults returns Settings filled from the default tags only.
func Defaults() (*Settings, error) {
	s := &Settings{}
	if err := defaults.Set(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Bind wires environment overrides and registers every key with its
// default on v, so a freshly written config file lists them all.
func Bind(v *viper.Viper) error {
	s, err := Defaults()
	if err != nil {
		return err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("search.api_key", EnvPrefix+"_SEARCH_API_KEY", "TAVILY_API_KEY"); err != nil {
		return err
	}

	v.SetDefault("loglevel", s.LogLevel)

	v.SetDefault("catalog.refresh_interval", s.Catalog.RefreshInterval.String())
	v.SetDefault("catalog.collector_timeout", s.Catalog.CollectorTimeout.String())
	v.SetDefault("catalog.wait_timeout", s.Catalog.WaitTimeout.String())
	v.SetDefault("catalog.refresh_timeout", s.Catalog.RefreshTimeout.String())
	v.SetDefault("catalog.concurrency", s.Catalog.Concurrency)
	v.SetDefault("catalog.failure_cooldown", s.Catalog.FailureCooldown.String())
	v.SetDefault("catalog.collectors", s.Catalog.Collectors)

	v.SetDefault("search.refresh_interval", s.Search.RefreshInterval.String())
	v.SetDefault("search.endpoint", s.Search.Endpoint)
	v.SetDefault("search.max_results", s.Search.MaxResults)
	v.SetDefault("search.include_domains", []string{})
	v.SetDefault("search.exclude_domains", []string{})

	v.SetDefault("http.timeout", s.HTTP.Timeout.String())
	v.SetDefault("http.retry_max", s.HTTP.RetryMax)
	v.SetDefault("http.requests_per_second", s.HTTP.RequestsPerSecond)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.proxy", "")

	v.SetDefault("journal.enabled", s.Journal.Enabled)
	v.SetDefault("journal.path", "")

	v.SetDefault("server.listen", s.Server.Listen)
	v.SetDefault("server.username", "")
	v.SetDefault("server.password", "")
	v.SetDefault("server.refresh_schedule", s.Server.RefreshSchedule)
	return nil
}

// Load decodes v over the defaults and validates the result.
func Load(v *viper.Viper) (*Settings, error) {
	s, err := Defaults()
	if err != nil {
		return nil, err
	}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects settings the catalog cannot run with.
func (s *Settings) Validate() error {
	var problems []string
	positive := map[string]time.Duration{
		"catalog.refresh_interval":  s.Catalog.RefreshInterval,
		"catalog.collector_timeout": s.Catalog.CollectorTimeout,
		"catalog.wait_timeout":      s.Catalog.WaitTimeout,
		"catalog.refresh_timeout":   s.Catalog.RefreshTimeout,
		"search.refresh_interval":   s.Search.RefreshInterval,
	}
	for _, key := range sortedKeys(positive) {
		if positive[key] <= 0 {
			problems = append(problems, key+" must be positive")
		}
	}
	if s.Catalog.FailureCooldown < 0 {
		problems = append(problems, "catalog.failure_cooldown must not be negative")
	}
	if s.Catalog.Concurrency <= 0 {
		problems = append(problems, "catalog.concurrency must be positive")
	}
	if len(s.Catalog.Collectors) == 0 {
		problems = append(problems, "catalog.collectors must name at least one collector")
	}
	if s.HTTP.RetryMax < 0 {
		problems = append(problems, "http.retry_max must not be negative")
	}
	if s.Server.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(s.Server.RefreshSchedule); err != nil {
			problems = append(problems, fmt.Sprintf("server.refresh_schedule: %v", err))
		}
	}
	if (s.Server.Username == "") != (s.Server.Password == "") {
		problems = append(problems, "server.username and server.password must be set together")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

func sortedKeys(m map[string]time.Duration) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
