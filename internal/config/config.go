package config

import (
	"fmt"
	"os"

	"github.com/dpup/prefab"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/offroute"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/progress"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/route"
)

// Config represents the complete navigator configuration
type Config struct {
	Navigation NavigationConfig `yaml:"navigation" validate:"required"`
}

// NavigationConfig holds the thresholds for a navigation session. They are
// fixed once a session starts.
type NavigationConfig struct {
	// Alert classification
	ManeuverZoneRadius            float64 `yaml:"maneuver_zone_radius_meters" validate:"gt=0"`
	HighAlertInterval             float64 `yaml:"high_alert_interval_seconds" validate:"gt=0"`
	MediumAlertInterval           float64 `yaml:"medium_alert_interval_seconds" validate:"gtfield=HighAlertInterval"`
	MinimumDistanceForHighAlert   float64 `yaml:"minimum_distance_for_high_alert_meters" validate:"gte=0"`
	MinimumDistanceForMediumAlert float64 `yaml:"minimum_distance_for_medium_alert_meters" validate:"gte=0"`
	MaximumHeadingOffset          float64 `yaml:"maximum_heading_offset_degrees" validate:"gt=0,lte=180"`

	// Off-route detection
	DefaultAngleTolerance float64 `yaml:"default_angle_tolerance_degrees" validate:"gt=0,lte=180"`
	IntersectionLookahead float64 `yaml:"intersection_lookahead_meters" validate:"gte=0"`
	OffRouteThreshold     float64 `yaml:"off_route_threshold_meters" validate:"gt=0"`

	// Delivery
	SnapToRoute    bool `yaml:"snap_to_route"`
	DispatchBuffer int  `yaml:"dispatch_buffer" validate:"gte=0"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Navigation: DefaultNavigationConfig(),
	}
}

// DefaultNavigationConfig returns the tuned navigation thresholds
func DefaultNavigationConfig() NavigationConfig {
	return NavigationConfig{
		ManeuverZoneRadius:            progress.DefaultManeuverZoneRadius,
		HighAlertInterval:             progress.DefaultHighAlertInterval,
		MediumAlertInterval:           progress.DefaultMediumAlertInterval,
		MinimumDistanceForHighAlert:   progress.DefaultMinimumDistanceForHighAlert,
		MinimumDistanceForMediumAlert: progress.DefaultMinimumDistanceForMediumAlert,
		MaximumHeadingOffset:          progress.DefaultMaximumHeadingOffset,
		DefaultAngleTolerance:         offroute.DefaultAngleTolerance,
		IntersectionLookahead:         offroute.DefaultLookaheadMeters,
		OffRouteThreshold:             route.DefaultOffRouteThreshold,
		SnapToRoute:                   true,
		DispatchBuffer:                16,
	}
}

// Validate checks every section of the configuration
func (c *Config) Validate() error {
	return c.Navigation.Validate()
}

// Validate checks thresholds are in range
func (n NavigationConfig) Validate() error {
	if err := validator.New().Struct(n); err != nil {
		return fmt.Errorf("invalid navigation config: %w", err)
	}
	return nil
}

// ClassifierOptions maps the configuration onto progress classification options
func (n NavigationConfig) ClassifierOptions() progress.Options {
	return progress.Options{
		ManeuverZoneRadius:            n.ManeuverZoneRadius,
		HighAlertInterval:             n.HighAlertInterval,
		MediumAlertInterval:           n.MediumAlertInterval,
		MinimumDistanceForHighAlert:   n.MinimumDistanceForHighAlert,
		MinimumDistanceForMediumAlert: n.MinimumDistanceForMediumAlert,
		MaximumHeadingOffset:          n.MaximumHeadingOffset,
	}
}

// DetectorOptions maps the configuration onto off-route detection options
func (n NavigationConfig) DetectorOptions() offroute.Options {
	return offroute.Options{
		AngleTolerance:  n.DefaultAngleTolerance,
		LookaheadMeters: n.IntersectionLookahead,
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPrefab loads the navigation section from Prefab's config system.
// Configuration comes from prefab.yaml and environment variables with the
// PF__ prefix; missing keys keep their defaults.
func LoadFromPrefab() (*Config, error) {
	cfg := DefaultConfig()

	if prefab.Config.Exists("navigation") {
		conf := koanf.UnmarshalConf{Tag: "yaml"}
		if err := prefab.Config.UnmarshalWithConf("navigation", &cfg.Navigation, conf); err != nil {
			return nil, fmt.Errorf("failed to unmarshal navigation section: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
