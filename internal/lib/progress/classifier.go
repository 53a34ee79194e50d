package progress

import (
	"math"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/geo"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/route"
)

// Defaults for Options
const (
	DefaultManeuverZoneRadius            = 40.0 // meters
	DefaultHighAlertInterval             = 15.0 // seconds
	DefaultMediumAlertInterval           = 70.0 // seconds
	DefaultMinimumDistanceForHighAlert   = 100.0
	DefaultMinimumDistanceForMediumAlert = 400.0
	DefaultMaximumHeadingOffset          = 90.0 // degrees
)

// Below this speed (m/s) the traveler is treated as stationary
const stationarySpeed = 0.01

// Options tunes alert classification
type Options struct {
	// Radius around the end of the current step that counts as the maneuver zone
	ManeuverZoneRadius float64

	// Seconds to the maneuver at or under which an alert becomes high or medium
	HighAlertInterval   float64
	MediumAlertInterval float64

	// Steps no longer than these never receive time based high or medium alerts
	MinimumDistanceForHighAlert   float64
	MinimumDistanceForMediumAlert float64

	// Largest difference between the traveler's heading and the next step's
	// departure bearing that still counts as having taken the maneuver
	MaximumHeadingOffset float64
}

// DefaultOptions returns the standard classification thresholds
func DefaultOptions() Options {
	return Options{
		ManeuverZoneRadius:            DefaultManeuverZoneRadius,
		HighAlertInterval:             DefaultHighAlertInterval,
		MediumAlertInterval:           DefaultMediumAlertInterval,
		MinimumDistanceForHighAlert:   DefaultMinimumDistanceForHighAlert,
		MinimumDistanceForMediumAlert: DefaultMinimumDistanceForMediumAlert,
		MaximumHeadingOffset:          DefaultMaximumHeadingOffset,
	}
}

// Classifier derives the next State from the previous one and a new fix. It
// holds no mutable state and is safe for concurrent use.
type Classifier struct {
	opts    Options
	matcher route.Matcher
}

// NewClassifier creates a Classifier
func NewClassifier(opts Options) *Classifier {
	return &Classifier{
		opts:    opts,
		matcher: route.NewMatcher(),
	}
}

// Classify returns the State after observing loc. Step indices only move
// forward, and only when the traveler is inside the maneuver zone heading
// along the next step. A prev that does not reference a valid step is
// returned unchanged.
func (c *Classifier) Classify(prev State, loc Location) State {
	r := prev.Route
	step, err := r.Step(prev.LegIndex, prev.StepIndex)
	if err != nil {
		return prev
	}

	point := loc.Point()
	legIndex, stepIndex := prev.LegIndex, prev.StepIndex
	distance := c.distanceToManeuver(point, r, legIndex, stepIndex)
	seconds := secondsToManeuver(distance, loc.Speed)
	inZone := distance <= c.opts.ManeuverZoneRadius

	nextLeg, nextStep, upcoming, hasUpcoming := r.UpcomingStep(legIndex, stepIndex)
	headingMatches := hasUpcoming &&
		geo.AngleDifference(upcoming.Maneuver.BearingAfter, loc.Bearing) <= c.opts.MaximumHeadingOffset

	level := prev.AlertLevel
	switch {
	case level == AlertNone:
		level = AlertDepart
		if inZone && seconds <= c.opts.HighAlertInterval {
			level = AlertHigh
		}

	case level == AlertDepart && inZone:
		if seconds <= c.opts.HighAlertInterval {
			level = AlertHigh
		}

	case inZone && !hasUpcoming:
		// Final step of the route
		level = c.timedLevel(level, seconds, step.Distance)

	case inZone && upcoming.Maneuver.Type == route.ManeuverArrive:
		level = AlertArrive

	case inZone && headingMatches:
		legIndex, stepIndex = nextLeg, nextStep
		distance = c.distanceToManeuver(point, r, legIndex, stepIndex)
		seconds = secondsToManeuver(distance, loc.Speed)
		level = AlertLow
		if seconds <= c.opts.MediumAlertInterval {
			level = AlertMedium
		}

	case inZone:
		// Not yet heading along the next step

	default:
		level = c.timedLevel(level, seconds, step.Distance)
	}

	snapped, err := c.matcher.SnapToStep(point, &r.Legs[legIndex], stepIndex)
	if err != nil {
		snapped = point
	}

	return State{
		Route:                   r,
		SnappedPosition:         snapped,
		LegIndex:                legIndex,
		StepIndex:               stepIndex,
		AlertLevel:              level,
		DistanceRemainingOnStep: distance,
		DurationRemainingOnStep: seconds,
	}
}

// timedLevel raises the alert as the maneuver approaches, skipping steps too
// short for the alert to be useful
func (c *Classifier) timedLevel(current AlertLevel, seconds, stepDistance float64) AlertLevel {
	switch {
	case seconds <= c.opts.HighAlertInterval && stepDistance > c.opts.MinimumDistanceForHighAlert:
		return AlertHigh
	case seconds <= c.opts.MediumAlertInterval && stepDistance > c.opts.MinimumDistanceForMediumAlert:
		return AlertMedium
	default:
		return current
	}
}

// distanceToManeuver is +Inf when the position cannot be related to the step,
// which keeps the traveler out of the maneuver zone
func (c *Classifier) distanceToManeuver(point geo.Point, r *route.Route, legIndex, stepIndex int) float64 {
	distance, err := c.matcher.DistanceToStepEnd(point, r, legIndex, stepIndex)
	if err != nil || math.IsNaN(distance) {
		return math.Inf(1)
	}
	return distance
}

func secondsToManeuver(distance, speed float64) float64 {
	if math.IsNaN(speed) || speed < stationarySpeed {
		return math.Inf(1)
	}
	return distance / speed
}
