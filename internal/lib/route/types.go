// Package route holds the immutable description of a navigation route: legs,
// steps, maneuvers and the intersections along each step.
package route

import (
	"errors"
	"fmt"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/geo"
)

// Maneuver types with special meaning to progress tracking
const (
	ManeuverDepart = "depart"
	ManeuverArrive = "arrive"
	ManeuverTurn   = "turn"
)

// NoBearing marks an absent In (depart) or Out (arrive) index on an Intersection
const NoBearing = -1

var (
	ErrEmptyRoute     = errors.New("route has no legs")
	ErrStepOutOfRange = errors.New("step index out of range")
)

// Route is an ordered sequence of legs. It is never modified after construction
// and may be shared between goroutines.
type Route struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
	Legs     []Leg   `json:"legs"`
}

// Leg is the portion of a route between two waypoints
type Leg struct {
	Summary  string  `json:"summary,omitempty"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Steps    []Step  `json:"steps"`
}

// Step is the portion of a leg between two maneuvers
type Step struct {
	Name          string         `json:"name,omitempty"`
	Mode          string         `json:"mode,omitempty"`
	Distance      float64        `json:"distance"`
	Duration      float64        `json:"duration"`
	Geometry      geo.Polyline   `json:"geometry"`
	Maneuver      Maneuver       `json:"maneuver"`
	Intersections []Intersection `json:"intersections"`
}

// Maneuver is the instruction at the start of a step
type Maneuver struct {
	Location      geo.Point `json:"location"`
	BearingBefore float64   `json:"bearing_before"`
	BearingAfter  float64   `json:"bearing_after"`
	Type          string    `json:"type"`
	Modifier      string    `json:"modifier,omitempty"`
	Instruction   string    `json:"instruction,omitempty"`
}

// Intersection is a road junction along a step. Bearings and Entry are index
// aligned; In and Out index into them, or are NoBearing.
type Intersection struct {
	Location geo.Point `json:"location"`
	Bearings []int     `json:"bearings"`
	Entry    []bool    `json:"entry"`
	In       int       `json:"in"`
	Out      int       `json:"out"`
}

// Validate checks that every leg has steps. Intersections are checked when
// they are used.
func (r *Route) Validate() error {
	if r == nil || len(r.Legs) == 0 {
		return ErrEmptyRoute
	}
	for i, leg := range r.Legs {
		if len(leg.Steps) == 0 {
			return fmt.Errorf("leg %d has no steps", i)
		}
	}
	return nil
}

// Step returns the step at the given indices
func (r *Route) Step(legIndex, stepIndex int) (*Step, error) {
	if r == nil || legIndex < 0 || legIndex >= len(r.Legs) {
		return nil, fmt.Errorf("leg %d: %w", legIndex, ErrStepOutOfRange)
	}
	steps := r.Legs[legIndex].Steps
	if stepIndex < 0 || stepIndex >= len(steps) {
		return nil, fmt.Errorf("leg %d step %d: %w", legIndex, stepIndex, ErrStepOutOfRange)
	}
	return &steps[stepIndex], nil
}

// UpcomingStep returns the step after (legIndex, stepIndex) together with its
// indices: the next step of the same leg, else the first step of the next leg.
// ok is false on the final step of the final leg.
func (r *Route) UpcomingStep(legIndex, stepIndex int) (nextLeg, nextStep int, step *Step, ok bool) {
	if r == nil || legIndex < 0 || legIndex >= len(r.Legs) {
		return legIndex, stepIndex, nil, false
	}
	if stepIndex+1 < len(r.Legs[legIndex].Steps) {
		return legIndex, stepIndex + 1, &r.Legs[legIndex].Steps[stepIndex+1], true
	}
	if legIndex+1 < len(r.Legs) && len(r.Legs[legIndex+1].Steps) > 0 {
		return legIndex + 1, 0, &r.Legs[legIndex+1].Steps[0], true
	}
	return legIndex, stepIndex, nil, false
}

// DistanceBefore sums step distances of every step preceding (legIndex, stepIndex)
func (r *Route) DistanceBefore(legIndex, stepIndex int) float64 {
	total := 0.0
	for l := 0; l < legIndex && l < len(r.Legs); l++ {
		for _, s := range r.Legs[l].Steps {
			total += s.Distance
		}
	}
	if legIndex < len(r.Legs) {
		steps := r.Legs[legIndex].Steps
		for s := 0; s < stepIndex && s < len(steps); s++ {
			total += steps[s].Distance
		}
	}
	return total
}

// TotalDistance returns Distance, or the sum of step distances when it is unset
func (r *Route) TotalDistance() float64 {
	if r.Distance > 0 {
		return r.Distance
	}
	return r.DistanceBefore(len(r.Legs), 0)
}

// Valid reports whether the Bearings/Entry arrays and the In/Out indices are consistent
func (i Intersection) Valid() bool {
	n := len(i.Bearings)
	if n == 0 || n != len(i.Entry) {
		return false
	}
	if i.In != NoBearing && (i.In < 0 || i.In >= n) {
		return false
	}
	if i.Out != NoBearing && (i.Out < 0 || i.Out >= n) {
		return false
	}
	return true
}
