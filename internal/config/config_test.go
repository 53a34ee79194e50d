package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/progress"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	nav := cfg.Navigation
	assert.Equal(t, 40.0, nav.ManeuverZoneRadius)
	assert.Equal(t, 15.0, nav.HighAlertInterval)
	assert.Equal(t, 70.0, nav.MediumAlertInterval)
	assert.Equal(t, 90.0, nav.MaximumHeadingOffset)
	assert.Equal(t, 45.0, nav.DefaultAngleTolerance)
	assert.Equal(t, 50.0, nav.IntersectionLookahead)
	assert.True(t, nav.SnapToRoute)
	assert.Equal(t, progress.DefaultOptions(), nav.ClassifierOptions())
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
navigation:
  maneuver_zone_radius_meters: 50
  default_angle_tolerance_degrees: 20
  snap_to_route: false
`))
	require.NoError(t, err)

	assert.Equal(t, 50.0, cfg.Navigation.ManeuverZoneRadius)
	assert.Equal(t, 50.0, cfg.Navigation.ClassifierOptions().ManeuverZoneRadius)
	assert.Equal(t, 20.0, cfg.Navigation.DetectorOptions().AngleTolerance)
	assert.False(t, cfg.Navigation.SnapToRoute)

	// Untouched keys keep their defaults
	assert.Equal(t, 15.0, cfg.Navigation.HighAlertInterval)
	assert.Equal(t, 16, cfg.Navigation.DispatchBuffer)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative zone", "navigation:\n  maneuver_zone_radius_meters: -5\n"},
		{"medium before high", "navigation:\n  medium_alert_interval_seconds: 10\n"},
		{"heading offset too wide", "navigation:\n  maximum_heading_offset_degrees: 270\n"},
		{"negative buffer", "navigation:\n  dispatch_buffer: -1\n"},
		{"malformed", "navigation: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navigation.yaml")
	require.NoError(t, os.WriteFile(path, []byte("navigation:\n  intersection_lookahead_meters: 75\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 75.0, cfg.Navigation.DetectorOptions().LookaheadMeters)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
