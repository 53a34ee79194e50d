package route

import (
	"errors"
	"fmt"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/geo"
)

// DefaultOffRouteThreshold is the distance in meters beyond which a position is
// considered away from every step of a leg
const DefaultOffRouteThreshold = 100.0

// Matcher relates positions to the geometry of a route's steps
type Matcher interface {
	// Snap a position onto the geometry of a leg step
	SnapToStep(point geo.Point, leg *Leg, stepIndex int) (geo.Point, error)

	// Distance in meters between a position and its snapped location on a step
	DistanceToStep(point geo.Point, leg *Leg, stepIndex int) (float64, error)

	// Whether a position is within the off-route threshold of a step
	IsInStep(point geo.Point, leg *Leg, stepIndex int) (bool, error)

	// Whether a position is beyond the threshold from every step of a leg
	IsOffRoute(point geo.Point, leg *Leg) (bool, error)

	// Index of the step nearest to a position; ties go to the furthest step
	ClosestStep(point geo.Point, leg *Leg) (int, error)

	// Distance in meters along a step's geometry from the snapped position to the step end
	DistanceToStepEnd(point geo.Point, r *Route, legIndex, stepIndex int) (float64, error)
}

// routeMatcher implements the Matcher interface
type routeMatcher struct {
	geoUtils          geo.GeoUtils
	offRouteThreshold float64
}

// NewMatcher creates a Matcher using the default 100 meter threshold
func NewMatcher() Matcher {
	return NewMatcherWithThreshold(DefaultOffRouteThreshold)
}

// NewMatcherWithThreshold creates a Matcher with a custom off-route threshold in meters
func NewMatcherWithThreshold(thresholdMeters float64) Matcher {
	return &routeMatcher{
		geoUtils:          geo.NewGeoUtils(),
		offRouteThreshold: thresholdMeters,
	}
}

// SnapToStep projects point onto the step geometry
func (m *routeMatcher) SnapToStep(point geo.Point, leg *Leg, stepIndex int) (geo.Point, error) {
	step, err := validateStep(leg, stepIndex)
	if err != nil {
		return geo.Point{}, err
	}

	// No need to do the math if the step has one coordinate only
	switch len(step.Geometry.Points) {
	case 0:
		return step.Maneuver.Location, nil
	case 1:
		return step.Geometry.Points[0], nil
	}

	return m.geoUtils.ClosestPointOnPolyline(point, step.Geometry)
}

// DistanceToStep measures from point to its snapped location on the step
func (m *routeMatcher) DistanceToStep(point geo.Point, leg *Leg, stepIndex int) (float64, error) {
	closest, err := m.SnapToStep(point, leg, stepIndex)
	if err != nil {
		return 0, err
	}
	return m.geoUtils.PointToPoint(point, closest)
}

// IsInStep checks whether point lies within the off-route threshold of the step
func (m *routeMatcher) IsInStep(point geo.Point, leg *Leg, stepIndex int) (bool, error) {
	distance, err := m.DistanceToStep(point, leg, stepIndex)
	if err != nil {
		return false, err
	}
	return distance <= m.offRouteThreshold, nil
}

// IsOffRoute reports true only when point is away from every step of the leg
func (m *routeMatcher) IsOffRoute(point geo.Point, leg *Leg) (bool, error) {
	if leg == nil {
		return false, errors.New("the provided leg is empty")
	}

	for stepIndex := range leg.Steps {
		inStep, err := m.IsInStep(point, leg, stepIndex)
		if err != nil {
			return false, err
		}
		if inStep {
			return false, nil
		}
	}

	return true, nil
}

// ClosestStep finds the step nearest to point
func (m *routeMatcher) ClosestStep(point geo.Point, leg *Leg) (int, error) {
	if leg == nil || len(leg.Steps) == 0 {
		return 0, errors.New("the provided leg has no steps")
	}

	minDistance := -1.0
	closestIndex := 0

	for stepIndex := range leg.Steps {
		distance, err := m.DistanceToStep(point, leg, stepIndex)
		if err != nil {
			return 0, err
		}
		if minDistance < 0 || distance <= minDistance {
			minDistance = distance
			closestIndex = stepIndex
		}
	}

	return closestIndex, nil
}

// DistanceToStepEnd falls back to the straight distance to the next maneuver
// when a step carries no geometry
func (m *routeMatcher) DistanceToStepEnd(point geo.Point, r *Route, legIndex, stepIndex int) (float64, error) {
	step, err := r.Step(legIndex, stepIndex)
	if err != nil {
		return 0, err
	}

	if len(step.Geometry.Points) > 0 {
		return m.geoUtils.DistanceAlongToEnd(point, step.Geometry)
	}

	if _, _, next, ok := r.UpcomingStep(legIndex, stepIndex); ok {
		return m.geoUtils.PointToPoint(point, next.Maneuver.Location)
	}
	return 0, nil
}

func validateStep(leg *Leg, stepIndex int) (*Step, error) {
	switch {
	case leg == nil:
		return nil, errors.New("the provided leg is empty")
	case len(leg.Steps) == 0:
		return nil, errors.New("the provided leg has an empty set of steps")
	case stepIndex < 0 || stepIndex >= len(leg.Steps):
		return nil, fmt.Errorf("the provided leg doesn't have so many steps (%d): %w", stepIndex, ErrStepOutOfRange)
	}
	return &leg.Steps[stepIndex], nil
}
