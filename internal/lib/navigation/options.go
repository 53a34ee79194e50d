package navigation

import "github.com/dpup/prefab/logging"

// Option configures a Pipeline
type Option func(*Pipeline)

// WithProgressListener registers a callback for every processed fix
func WithProgressListener(l ProgressListener) Option {
	return func(p *Pipeline) {
		p.progressListeners = append(p.progressListeners, l)
	}
}

// WithAlertLevelListener registers a callback for alert level changes
func WithAlertLevelListener(l AlertLevelListener) Option {
	return func(p *Pipeline) {
		p.alertLevelListeners = append(p.alertLevelListeners, l)
	}
}

// WithOffRouteListener registers a callback for off-route detections
func WithOffRouteListener(l OffRouteListener) Option {
	return func(p *Pipeline) {
		p.offRouteListeners = append(p.offRouteListeners, l)
	}
}

// WithDispatcher delivers callbacks through d. Without it each session runs
// its own Loop on a background goroutine.
func WithDispatcher(d Dispatcher) Option {
	return func(p *Pipeline) {
		p.dispatcher = d
	}
}

// WithLogger logs through l when the context handed to Start or Stop carries
// no logger. The default is a development logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}
