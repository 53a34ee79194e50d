package navigation

import (
	"errors"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/progress"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/route"
)

// ErrAlreadyRunning is returned by Start while a session is active
var ErrAlreadyRunning = errors.New("navigation already running")

// ProgressEvent is delivered for every processed fix
type ProgressEvent struct {
	SessionID string
	Seq       uint64 // submission order within the pipeline
	State     progress.State

	// Location is the fix as delivered: moved onto the route when snapping is
	// enabled and the traveler is on route, otherwise identical to RawLocation
	Location    progress.Location
	RawLocation progress.Location
	OnRoute     bool
}

// AlertLevelEvent is delivered when a fix changes the alert level
type AlertLevelEvent struct {
	SessionID string
	Seq       uint64
	Previous  progress.AlertLevel
	Current   progress.AlertLevel
	State     progress.State
}

// OffRouteEvent is delivered when the traveler's heading does not fit the
// nearest intersection ahead
type OffRouteEvent struct {
	SessionID    string
	Seq          uint64
	State        progress.State
	Location     progress.Location
	Intersection route.Intersection
}

// Listener callbacks. They run on the pipeline's Dispatcher, never on the worker.
type (
	ProgressListener   func(ProgressEvent)
	AlertLevelListener func(AlertLevelEvent)
	OffRouteListener   func(OffRouteEvent)
)

// Stats counts pipeline activity since construction
type Stats struct {
	Submitted int64 // accepted by Submit
	Processed int64 // classified by the worker
	Dropped   int64 // superseded before processing, or cleared by Stop
	Rejected  int64 // submitted while stopped
	Delivered int64 // dispatched to listeners
	OffRoute  int64 // off-route detections
}
