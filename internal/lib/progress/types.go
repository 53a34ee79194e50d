// Package progress tracks where a traveler is along a route and how urgently
// the upcoming maneuver should be announced.
package progress

import (
	"math"
	"time"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/geo"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/route"
)

// AlertLevel is the urgency classification for the upcoming maneuver
type AlertLevel int

const (
	AlertNone AlertLevel = iota
	AlertDepart
	AlertLow
	AlertMedium
	AlertHigh
	AlertArrive
)

func (a AlertLevel) String() string {
	switch a {
	case AlertNone:
		return "none"
	case AlertDepart:
		return "depart"
	case AlertLow:
		return "low"
	case AlertMedium:
		return "medium"
	case AlertHigh:
		return "high"
	case AlertArrive:
		return "arrive"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (a AlertLevel) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Location is a single raw position fix
type Location struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Bearing   float64   `json:"bearing"` // degrees
	Speed     float64   `json:"speed"`   // meters per second
	Time      time.Time `json:"time,omitempty"`
}

// Point returns the coordinate of the fix
func (l Location) Point() geo.Point {
	return geo.Point{Latitude: l.Latitude, Longitude: l.Longitude}
}

// WithPoint returns a copy of the fix moved to p, keeping bearing, speed and time
func (l Location) WithPoint(p geo.Point) Location {
	l.Latitude = p.Latitude
	l.Longitude = p.Longitude
	return l
}

// State is a snapshot of progress along a route. A new State is produced for
// every processed fix; snapshots are never modified once returned.
type State struct {
	Route           *route.Route
	SnappedPosition geo.Point
	LegIndex        int
	StepIndex       int
	AlertLevel      AlertLevel

	DistanceRemainingOnStep float64 // meters
	DurationRemainingOnStep float64 // seconds, +Inf when stationary
}

// New returns the session start state: first step of the first leg, no alert yet
func New(r *route.Route) State {
	s := State{Route: r}
	if step, err := r.Step(0, 0); err == nil {
		s.SnappedPosition = step.Maneuver.Location
		s.DistanceRemainingOnStep = step.Distance
		s.DurationRemainingOnStep = step.Duration
	}
	return s
}

// CurrentLeg returns the leg being travelled
func (s State) CurrentLeg() *route.Leg {
	if s.Route == nil || s.LegIndex < 0 || s.LegIndex >= len(s.Route.Legs) {
		return nil
	}
	return &s.Route.Legs[s.LegIndex]
}

// CurrentStep returns the step being travelled
func (s State) CurrentStep() *route.Step {
	step, err := s.Route.Step(s.LegIndex, s.StepIndex)
	if err != nil {
		return nil
	}
	return step
}

// UpcomingStep returns the next step, or nil on the final step of the route
func (s State) UpcomingStep() *route.Step {
	_, _, step, ok := s.Route.UpcomingStep(s.LegIndex, s.StepIndex)
	if !ok {
		return nil
	}
	return step
}

// DistanceTraveledOnStep is the step length minus what remains of it
func (s State) DistanceTraveledOnStep() float64 {
	step := s.CurrentStep()
	if step == nil {
		return 0
	}

	length := step.Distance
	if len(step.Geometry.Points) > 1 {
		length = geo.NewGeoUtils().PolylineLength(step.Geometry)
	}
	return math.Max(0, length-s.DistanceRemainingOnStep)
}

// DistanceTraveledOnRoute sums completed steps and progress on the current one
func (s State) DistanceTraveledOnRoute() float64 {
	if s.CurrentStep() == nil {
		return 0
	}
	return s.Route.DistanceBefore(s.LegIndex, s.StepIndex) + s.DistanceTraveledOnStep()
}

// DistanceRemainingOnRoute is the route distance not yet travelled
func (s State) DistanceRemainingOnRoute() float64 {
	if s.Route == nil {
		return 0
	}
	return math.Max(0, s.Route.TotalDistance()-s.DistanceTraveledOnRoute())
}

// FractionTraveledOnRoute is a number between 0 and 1
func (s State) FractionTraveledOnRoute() float64 {
	if s.Route == nil {
		return 0
	}
	total := s.Route.TotalDistance()
	if total <= 0 {
		return 0
	}
	return math.Min(1, s.DistanceTraveledOnRoute()/total)
}
