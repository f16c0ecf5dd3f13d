// Package config defines the feed configuration consumed by the aggregation
// core: which upstream feeds exist, what wire format each one speaks, which
// refresh category it belongs to, and how often each category refreshes.
//
// Configuration is layered: struct defaults, then an optional YAML file, then
// HUB_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/garima440/NYC-transit-hub/internal/models"
)

// WireFormat declares how a feed's payload is decoded.
type WireFormat string

const (
	FormatGTFSRT WireFormat = "gtfsrt"
	FormatJSON   WireFormat = "json"
	FormatXML    WireFormat = "xml"
)

// Accessibility feed roles. The accessibility category mixes one equipment
// registry feed with outage feeds; Role tells the aggregator which is which.
const (
	RoleEquipment = "equipment"
	RoleOutages   = "outages"
	RoleUpcoming  = "upcoming"
)

// Feed describes one upstream endpoint.
type Feed struct {
	Name     string            `koanf:"name"`
	URL      string            `koanf:"url"`
	Format   WireFormat        `koanf:"format"`
	Category models.Category   `koanf:"category"`
	Role     string            `koanf:"role"`
	Headers  map[string]string `koanf:"headers"`
}

// Intervals holds the refresh cadence per category. Trip updates ride the
// positions timer: both entity kinds come out of the same binary feeds.
type Intervals struct {
	Positions     time.Duration `koanf:"positions"`
	Alerts        time.Duration `koanf:"alerts"`
	Accessibility time.Duration `koanf:"accessibility"`
}

// Config is the full feed configuration.
type Config struct {
	Feeds     []Feed    `koanf:"feeds"`
	Intervals Intervals `koanf:"intervals"`

	// FetchTimeout bounds a single feed fetch.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// StalenessWindow is the maximum entity age for positions and trip
	// update snapshots.
	StalenessWindow time.Duration `koanf:"staleness_window"`

	// RatePerSecond and Burst bound outbound requests per upstream host.
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`
}

// mtaBaseURL is the public MTA feed gateway; no API key is required.
const mtaBaseURL = "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/"

// subwayFeedGroups maps feed names to the MTA per-line-group endpoints.
// Each endpoint carries the GTFS-RT entities for one group of subway lines.
var subwayFeedGroups = []struct{ name, path string }{
	{"123456s", "nyct%2Fgtfs"},
	{"ace", "nyct%2Fgtfs-ace"},
	{"bdfm", "nyct%2Fgtfs-bdfm"},
	{"g", "nyct%2Fgtfs-g"},
	{"jz", "nyct%2Fgtfs-jz"},
	{"l", "nyct%2Fgtfs-l"},
	{"nqrw", "nyct%2Fgtfs-nqrw"},
	{"si", "nyct%2Fgtfs-si"},
}

// Default returns the stock NYC configuration: all subway line-group binary
// feeds, the camsys alert feeds, and the NYCT elevator/escalator feeds.
func Default() *Config {
	var feeds []Feed
	for _, g := range subwayFeedGroups {
		feeds = append(feeds, Feed{
			Name:     g.name,
			URL:      mtaBaseURL + g.path,
			Format:   FormatGTFSRT,
			Category: models.CategoryPositions,
		})
	}
	for _, system := range []string{"all", "subway", "bus", "lirr", "mnr"} {
		feeds = append(feeds, Feed{
			Name:     system + "-alerts",
			URL:      mtaBaseURL + "camsys%2F" + system + "-alerts.json",
			Format:   FormatJSON,
			Category: models.CategoryAlerts,
		})
	}
	feeds = append(feeds,
		Feed{
			Name:     "ene-equipments",
			URL:      mtaBaseURL + "nyct%2Fnyct_ene_equipments.json",
			Format:   FormatJSON,
			Category: models.CategoryAccessibility,
			Role:     RoleEquipment,
		},
		Feed{
			Name:     "ene-outages",
			URL:      mtaBaseURL + "nyct%2Fnyct_ene.xml",
			Format:   FormatXML,
			Category: models.CategoryAccessibility,
			Role:     RoleOutages,
		},
		Feed{
			Name:     "ene-upcoming",
			URL:      mtaBaseURL + "nyct%2Fnyct_ene_upcoming.xml",
			Format:   FormatXML,
			Category: models.CategoryAccessibility,
			Role:     RoleUpcoming,
		},
	)

	return &Config{
		Feeds: feeds,
		Intervals: Intervals{
			Positions:     60 * time.Second,
			Alerts:        5 * time.Minute,
			Accessibility: 30 * time.Minute,
		},
		FetchTimeout:    15 * time.Second,
		StalenessWindow: 10 * time.Minute,
		RatePerSecond:   5,
		Burst:           10,
	}
}

// FeedsFor returns the feeds for a category, in configuration order. Trip
// updates share the positions feeds: the binary wire carries both entity
// kinds and upstream exposes no trip-update-only endpoint.
func (c *Config) FeedsFor(category models.Category) []Feed {
	lookup := category
	if category == models.CategoryTripUpdates {
		lookup = models.CategoryPositions
	}
	var feeds []Feed
	for _, f := range c.Feeds {
		if f.Category == lookup {
			feeds = append(feeds, f)
		}
	}
	return feeds
}

// Interval returns the refresh cadence for a category.
func (c *Config) Interval(category models.Category) time.Duration {
	switch category {
	case models.CategoryAlerts:
		return c.Intervals.Alerts
	case models.CategoryAccessibility:
		return c.Intervals.Accessibility
	default:
		return c.Intervals.Positions
	}
}

// Validate checks the configuration for structural problems that would only
// surface mid-cycle otherwise.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for _, f := range c.Feeds {
		if f.Name == "" {
			return fmt.Errorf("feed with URL %q has no name", f.URL)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate feed name %q", f.Name)
		}
		seen[f.Name] = true
		if f.URL == "" {
			return fmt.Errorf("feed %q has no URL", f.Name)
		}
		switch f.Format {
		case FormatGTFSRT, FormatJSON, FormatXML:
		default:
			return fmt.Errorf("feed %q has unknown wire format %q", f.Name, f.Format)
		}
		switch f.Category {
		case models.CategoryPositions, models.CategoryTripUpdates,
			models.CategoryAlerts, models.CategoryAccessibility:
		default:
			return fmt.Errorf("feed %q has unknown category %q", f.Name, f.Category)
		}
	}
	if c.Intervals.Positions <= 0 || c.Intervals.Alerts <= 0 || c.Intervals.Accessibility <= 0 {
		return fmt.Errorf("refresh intervals must be positive")
	}
	return nil
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "HUB_CONFIG_PATH"

// defaultConfigPaths are searched in order; the first existing file wins.
var defaultConfigPaths = []string{
	"hub.yaml",
	"hub.yml",
	"/etc/transit-hub/hub.yaml",
}

// Load builds the configuration from defaults, an optional YAML file, and
// HUB_-prefixed environment variables (HUB_INTERVALS__POSITIONS=30s becomes
// intervals.positions).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("HUB_", ".", func(s string) string {
		// Double underscore nests: HUB_INTERVALS__POSITIONS becomes
		// intervals.positions. Single underscores stay literal so keys
		// like fetch_timeout survive.
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "HUB_")), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
