package offroute_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/geo"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/offroute"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/progress"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/route"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/route/routetest"
)

func detector(tolerance float64) *offroute.Detector {
	opts := offroute.DefaultOptions()
	opts.AngleTolerance = tolerance
	return offroute.NewDetector(opts)
}

func TestDetector_FourWayIntersection(t *testing.T) {
	intersection := route.Intersection{
		Bearings: []int{0, 90, 180, 270},
		Entry:    []bool{true, true, false, true},
		In:       2,
		Out:      0,
	}
	d := detector(20)

	onRoute, err := d.Check(intersection, 95)
	require.NoError(t, err)
	assert.False(t, onRoute)

	assert.True(t, d.IsOnRoute(intersection, 5))
	assert.True(t, d.IsOnRoute(intersection, 355))
	assert.False(t, d.IsOnRoute(intersection, 21))
}

func TestDetector_ToleranceBoundary(t *testing.T) {
	intersection := route.Intersection{
		Bearings: []int{180, 0},
		Entry:    []bool{false, true},
		In:       0,
		Out:      1,
	}
	d := detector(45)

	tests := []struct {
		heading  float64
		expected bool
	}{
		{0, true},
		{45, true},
		{46, false},
		{315, true},
		{314, false},
		{180, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, d.IsOnRoute(intersection, tt.heading), "heading %v", tt.heading)
	}
}

func TestDetector_NarrowAlternateTightensTolerance(t *testing.T) {
	intersection := route.Intersection{
		Bearings: []int{180, 0, 30},
		Entry:    []bool{false, true, true},
		In:       0,
		Out:      1,
	}
	d := detector(45)

	assert.True(t, d.IsOnRoute(intersection, 25))
	assert.False(t, d.IsOnRoute(intersection, 35))

	// The same exit is not legal, so the full tolerance applies
	intersection.Entry = []bool{false, true, false}
	assert.True(t, d.IsOnRoute(intersection, 35))
}

func TestDetector_ApproachingTurn(t *testing.T) {
	// Right turn off a northbound road: still heading north before the turn
	intersection := route.Intersection{
		Bearings: []int{180, 90},
		Entry:    []bool{false, true},
		In:       0,
		Out:      1,
	}
	d := detector(45)

	assert.True(t, d.IsOnRoute(intersection, 0))
	assert.True(t, d.IsOnRoute(intersection, 20))
	assert.False(t, d.IsOnRoute(intersection, 60))
}

func TestDetector_MalformedFailsOpen(t *testing.T) {
	d := detector(20)

	tests := []struct {
		name         string
		intersection route.Intersection
	}{
		{"length mismatch", route.Intersection{Bearings: []int{0, 90}, Entry: []bool{true}, In: 0, Out: 1}},
		{"in out of range", route.Intersection{Bearings: []int{0, 90}, Entry: []bool{true, true}, In: 4, Out: 1}},
		{"out negative", route.Intersection{Bearings: []int{0, 90}, Entry: []bool{true, true}, In: 0, Out: -3}},
		{"empty", route.Intersection{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			onRoute, err := d.Check(tt.intersection, 200)
			assert.ErrorIs(t, err, offroute.ErrInvalidIntersection)
			assert.True(t, onRoute)
			assert.True(t, d.IsOnRoute(tt.intersection, 200))
		})
	}
}

func TestDetector_DepartIntersection(t *testing.T) {
	d := detector(20)
	onRoute, err := d.Check(route.Intersection{
		Bearings: []int{90},
		Entry:    []bool{true},
		In:       route.NoBearing,
		Out:      0,
	}, 270)
	require.NoError(t, err)
	assert.True(t, onRoute)
}

func TestDetector_NearbyIntersections(t *testing.T) {
	straight := routetest.IntersectionSpec{Bearings: []int{180, 0}, Entry: []bool{false, true}, In: 0, Out: 1}
	at := func(offset float64) routetest.IntersectionSpec {
		spec := straight
		spec.Offset = offset
		return spec
	}

	r := routetest.Build([]routetest.StepSpec{
		{Bearing: 0, Length: 300, Type: route.ManeuverDepart, Intersections: []routetest.IntersectionSpec{at(0), at(100), at(200)}},
		{Bearing: 90, Length: 200},
		{Bearing: 90, Type: route.ManeuverArrive},
	})
	d := offroute.NewDetector(offroute.DefaultOptions())
	geoUtils := geo.NewGeoUtils()

	stateAt := func(traveled float64) progress.State {
		return progress.State{
			Route:                   r,
			SnappedPosition:         routetest.Along(r, 0, 0, traveled),
			DistanceRemainingOnStep: 300 - traveled,
		}
	}

	// 20m short of the intersection at 100m
	nearby := d.NearbyIntersections(stateAt(80))
	require.Len(t, nearby, 1)
	distance, err := geoUtils.PointToPoint(routetest.Along(r, 0, 0, 100), nearby[0].Location)
	require.NoError(t, err)
	assert.Less(t, distance, 0.5)

	// Between intersections, nothing in range
	assert.Empty(t, d.NearbyIntersections(stateAt(120)))
	_, ok := d.NearestIntersection(stateAt(120))
	assert.False(t, ok)

	// Past the last intersection, the turn onto the next step is used
	nearest, ok := d.NearestIntersection(stateAt(260))
	require.True(t, ok)
	assert.Equal(t, r.Legs[0].Steps[1].Intersections[0], nearest)

	assert.Nil(t, d.NearbyIntersections(progress.State{}))
}
