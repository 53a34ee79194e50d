package progress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/geo"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/progress"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/route/routetest"
)

func fixAt(p geo.Point) progress.Location {
	return progress.Location{Latitude: p.Latitude, Longitude: p.Longitude, Bearing: -1, Speed: 10}
}

func TestDeriveBearings(t *testing.T) {
	start := routetest.Origin
	north := geo.Destination(start, 0, 20)
	east := geo.Destination(north, 90, 20)

	fixes := []progress.Location{
		fixAt(start),
		fixAt(start), // stationary before moving
		fixAt(north),
		fixAt(north), // stationary after moving
		fixAt(east),
	}

	derived, err := progress.DeriveBearings(fixes)
	require.NoError(t, err)
	require.Len(t, derived, len(fixes))

	for i, want := range []float64{0, 0, 0, 0, 90} {
		assert.Less(t, geo.AngleDifference(want, derived[i].Bearing), 0.5, "fix %d", i)
	}
	assert.Equal(t, -1.0, fixes[0].Bearing, "input is not modified")
	assert.Equal(t, fixes[4].Latitude, derived[4].Latitude)
}

func TestDeriveBearings_NoMovement(t *testing.T) {
	fixes := []progress.Location{fixAt(routetest.Origin), fixAt(routetest.Origin)}

	derived, err := progress.DeriveBearings(fixes)
	require.NoError(t, err)
	assert.Equal(t, -1.0, derived[0].Bearing)
	assert.Equal(t, -1.0, derived[1].Bearing)

	empty, err := progress.DeriveBearings(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
