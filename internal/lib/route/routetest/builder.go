// Package routetest builds straight-segment routes with exact geometry for tests.
package routetest

import (
	"github.com/dpup/info.ersn.net/navigator/internal/lib/geo"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/route"
)

// Origin is where built routes start (Angels Camp, CA)
var Origin = geo.Point{Latitude: 38.0675, Longitude: -120.5436}

// StepSpec describes one straight step
type StepSpec struct {
	Bearing       float64
	Length        float64 // meters; zero gives a single point geometry
	Type          string  // defaults to route.ManeuverTurn
	Modifier      string
	Intersections []IntersectionSpec // defaults to one intersection at the step start
}

// IntersectionSpec places an intersection Offset meters along a step
type IntersectionSpec struct {
	Offset   float64
	Bearings []int
	Entry    []bool
	In       int
	Out      int
}

// Build lays legs end to end starting at Origin
func Build(legs ...[]StepSpec) *route.Route {
	r := &route.Route{}
	cursor := Origin
	previousBearing := 0.0
	first := true

	for _, specs := range legs {
		leg := route.Leg{}
		for _, spec := range specs {
			end := geo.Destination(cursor, spec.Bearing, spec.Length)
			points := []geo.Point{cursor}
			if spec.Length > 0 {
				points = append(points, end)
			}

			maneuverType := spec.Type
			if maneuverType == "" {
				maneuverType = route.ManeuverTurn
			}

			step := route.Step{
				Name:     "test road",
				Mode:     "driving",
				Distance: spec.Length,
				Duration: spec.Length / 10,
				Geometry: geo.Polyline{Points: points},
				Maneuver: route.Maneuver{
					Location:      cursor,
					BearingBefore: previousBearing,
					BearingAfter:  spec.Bearing,
					Type:          maneuverType,
					Modifier:      spec.Modifier,
				},
			}

			if spec.Intersections == nil {
				step.Intersections = []route.Intersection{defaultIntersection(cursor, previousBearing, spec.Bearing, first)}
			}
			for _, is := range spec.Intersections {
				step.Intersections = append(step.Intersections, route.Intersection{
					Location: geo.Destination(cursor, spec.Bearing, is.Offset),
					Bearings: is.Bearings,
					Entry:    is.Entry,
					In:       is.In,
					Out:      is.Out,
				})
			}

			leg.Steps = append(leg.Steps, step)
			leg.Distance += step.Distance
			leg.Duration += step.Duration

			cursor = end
			previousBearing = spec.Bearing
			first = false
		}
		r.Legs = append(r.Legs, leg)
		r.Distance += leg.Distance
		r.Duration += leg.Duration
	}

	return r
}

func defaultIntersection(at geo.Point, arrivingBearing, leavingBearing float64, depart bool) route.Intersection {
	if depart {
		return route.Intersection{
			Location: at,
			Bearings: []int{int(leavingBearing)},
			Entry:    []bool{true},
			In:       route.NoBearing,
			Out:      0,
		}
	}
	return route.Intersection{
		Location: at,
		Bearings: []int{int(geo.WrapDegrees(arrivingBearing + 180)), int(leavingBearing)},
		Entry:    []bool{false, true},
		In:       0,
		Out:      1,
	}
}

// ThreeStep is a single leg: depart north for 200m, turn to 10° for 300m, arrive
func ThreeStep() *route.Route {
	return Build([]StepSpec{
		{Bearing: 0, Length: 200, Type: route.ManeuverDepart},
		{Bearing: 10, Length: 300, Modifier: "slight right"},
		{Bearing: 10, Length: 0, Type: route.ManeuverArrive},
	})
}

// Along returns the point meters along a step from its maneuver location
func Along(r *route.Route, legIndex, stepIndex int, meters float64) geo.Point {
	step := r.Legs[legIndex].Steps[stepIndex]
	return geo.Destination(step.Maneuver.Location, step.Maneuver.BearingAfter, meters)
}
