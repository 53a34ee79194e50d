// Package offroute decides whether a traveler's heading is consistent with the
// route at the next intersection ahead of them.
package offroute

import (
	"errors"
	"fmt"
	"math"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/geo"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/progress"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/route"
)

const (
	DefaultAngleTolerance  = 45.0 // degrees
	DefaultLookaheadMeters = 50.0
)

// ErrInvalidIntersection is returned for intersections whose bearing arrays
// or indices are inconsistent
var ErrInvalidIntersection = errors.New("invalid intersection")

// Options tunes the detector
type Options struct {
	AngleTolerance  float64 // degrees
	LookaheadMeters float64
}

// DefaultOptions returns the standard tolerance and lookahead
func DefaultOptions() Options {
	return Options{
		AngleTolerance:  DefaultAngleTolerance,
		LookaheadMeters: DefaultLookaheadMeters,
	}
}

// Detector holds no mutable state and is safe for concurrent use
type Detector struct {
	opts     Options
	geoUtils geo.GeoUtils
}

// NewDetector creates a Detector
func NewDetector(opts Options) *Detector {
	return &Detector{
		opts:     opts,
		geoUtils: geo.NewGeoUtils(),
	}
}

// IsOnRoute reports whether heading is consistent with the routed exit of an
// intersection. Malformed intersections count as on route.
func (d *Detector) IsOnRoute(intersection route.Intersection, heading float64) bool {
	onRoute, _ := d.Check(intersection, heading)
	return onRoute
}

// Check is IsOnRoute, additionally reporting ErrInvalidIntersection when the
// intersection could not be evaluated. The boolean is true in that case.
//
// The traveler is compared against every legal exit: the difference between
// their angle to the routed exit and the turn angle the route requires must
// stay within tolerance. Legal exits that sit close to the routed exit narrow
// the tolerance to the angle between them.
func (d *Detector) Check(intersection route.Intersection, heading float64) (bool, error) {
	if !intersection.Valid() {
		return true, fmt.Errorf("%w: %d bearings, %d entries, in %d, out %d",
			ErrInvalidIntersection, len(intersection.Bearings), len(intersection.Entry),
			intersection.In, intersection.Out)
	}

	// Depart and arrive intersections have no approach or exit to compare
	if intersection.In == route.NoBearing || intersection.Out == route.NoBearing {
		return true, nil
	}

	inBearing := geo.WrapDegrees(float64(intersection.Bearings[intersection.In]) - 180)
	outBearing := float64(intersection.Bearings[intersection.Out])
	correctAngle := geo.AngleDifference(inBearing, outBearing)
	userAngle := geo.AngleDifference(heading, outBearing)
	deviation := math.Abs(userAngle - correctAngle)

	for i, legal := range intersection.Entry {
		if !legal {
			continue
		}
		tolerance := d.opts.AngleTolerance
		if possible := geo.AngleDifference(float64(intersection.Bearings[i]), outBearing); possible > 0 && possible < tolerance {
			tolerance = possible
		}
		if deviation > tolerance {
			return false, nil
		}
	}
	return true, nil
}

// NearbyIntersections returns the intersections of the current step that lie
// ahead of the traveler within the lookahead distance, nearest first. When
// none qualify, the first intersection of the upcoming step is used if it is
// within range of the snapped position.
func (d *Detector) NearbyIntersections(state progress.State) []route.Intersection {
	step := state.CurrentStep()
	if step == nil {
		return nil
	}

	traveled := state.DistanceTraveledOnStep()
	var nearby []route.Intersection
	for _, intersection := range step.Intersections {
		ahead := d.distanceAlongStep(step, intersection.Location) - traveled
		if ahead > 0 && ahead <= d.opts.LookaheadMeters {
			nearby = append(nearby, intersection)
		}
	}
	if len(nearby) > 0 {
		return nearby
	}

	upcoming := state.UpcomingStep()
	if upcoming == nil || len(upcoming.Intersections) == 0 {
		return nil
	}
	first := upcoming.Intersections[0]
	distance, err := d.geoUtils.PointToPoint(state.SnappedPosition, first.Location)
	if err != nil || distance > d.opts.LookaheadMeters {
		return nil
	}
	return []route.Intersection{first}
}

// NearestIntersection is the single intersection checked per fix
func (d *Detector) NearestIntersection(state progress.State) (route.Intersection, bool) {
	nearby := d.NearbyIntersections(state)
	if len(nearby) == 0 {
		return route.Intersection{}, false
	}
	return nearby[0], true
}

// distanceAlongStep measures from the step's maneuver to p, following the
// step geometry when there is one
func (d *Detector) distanceAlongStep(step *route.Step, p geo.Point) float64 {
	if len(step.Geometry.Points) > 1 {
		remaining, err := d.geoUtils.DistanceAlongToEnd(p, step.Geometry)
		if err == nil {
			return d.geoUtils.PolylineLength(step.Geometry) - remaining
		}
	}
	distance, err := d.geoUtils.PointToPoint(step.Maneuver.Location, p)
	if err != nil {
		return 0
	}
	return distance
}
