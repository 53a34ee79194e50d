// Package navigation runs route progress tracking for a navigation session:
// fixes are classified one at a time on a dedicated worker and the results
// are delivered to listeners through a Dispatcher.
package navigation

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"
	"github.com/google/uuid"

	"github.com/dpup/info.ersn.net/navigator/internal/config"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/offroute"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/progress"
	"github.com/dpup/info.ersn.net/navigator/internal/lib/route"
)

// Pipeline serializes location fixes for one session at a time. Submit never
// blocks: while a fix is being processed at most one newer fix waits, and a
// fresher fix replaces it.
type Pipeline struct {
	cfg        config.NavigationConfig
	classifier *progress.Classifier
	detector   *offroute.Detector
	matcher    route.Matcher
	dispatcher Dispatcher
	logger     logging.Logger

	progressListeners   []ProgressListener
	alertLevelListeners []AlertLevelListener
	offRouteListeners   []OffRouteListener

	// Session lifecycle
	processing   bool
	processingMu sync.RWMutex
	generation   uint64
	sessionID    string
	runCtx       context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	wake         chan struct{}
	sessionLoop  Dispatcher

	// Latest-wins slot between Submit and the worker
	pending   *sample
	seq       uint64
	pendingMu sync.Mutex

	// Most recent state produced by the worker
	last   progress.State
	lastMu sync.RWMutex

	stats   Stats
	statsMu sync.RWMutex
}

type sample struct {
	seq  uint64
	from *progress.State
	loc  progress.Location
}

// New creates a stopped Pipeline. Invalid configuration is reported here.
func New(cfg config.NavigationConfig, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:        cfg,
		classifier: progress.NewClassifier(cfg.ClassifierOptions()),
		detector:   offroute.NewDetector(cfg.DetectorOptions()),
		matcher:    route.NewMatcherWithThreshold(cfg.OffRouteThreshold),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewDevLogger()
	}
	return p, nil
}

// withLogger attaches the pipeline's logger unless ctx already carries one
func (p *Pipeline) withLogger(ctx context.Context) context.Context {
	if logging.FromContext(ctx) == nil {
		return logging.With(ctx, p.logger)
	}
	return ctx
}

// Start begins a session on r with a fresh progress state and worker
func (p *Pipeline) Start(ctx context.Context, r *route.Route) error {
	if err := r.Validate(); err != nil {
		return err
	}

	p.processingMu.Lock()
	defer p.processingMu.Unlock()

	if p.processing {
		return ErrAlreadyRunning
	}

	ctx = p.withLogger(ctx)
	runCtx, cancel := context.WithCancel(ctx)
	p.processing = true
	p.generation++
	p.sessionID = uuid.NewString()
	p.runCtx = runCtx
	p.cancel = cancel
	p.done = make(chan struct{})
	p.wake = make(chan struct{}, 1)

	p.sessionLoop = p.dispatcher
	if p.sessionLoop == nil {
		p.sessionLoop = StartLoop(runCtx, p.cfg.DispatchBuffer)
	}

	p.pendingMu.Lock()
	p.pending = nil
	p.pendingMu.Unlock()

	p.setLast(progress.New(r))

	go p.worker(runCtx, p.generation, p.sessionID, p.wake, p.done)

	logging.Infow(ctx, "Navigation: session started",
		"session_id", p.sessionID, "legs", len(r.Legs), "distance", r.TotalDistance())
	return nil
}

// Stop ends the session. Waiting fixes are dropped and results of a fix still
// in flight are never delivered. Stop is safe to call repeatedly.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.processingMu.Lock()
	if !p.processing {
		p.processingMu.Unlock()
		return nil
	}

	p.processing = false
	p.cancel()
	done := p.done
	sessionID := p.sessionID

	if _, ok := p.takePending(); ok {
		p.incrementStat(func(st *Stats) { st.Dropped++ })
	}
	p.processingMu.Unlock()

	// The worker may be blocked dispatching to a loop that runs on this
	// goroutine; cancellation above releases it
	<-done

	logging.Infow(p.withLogger(ctx), "Navigation: session stopped", "session_id", sessionID)
	return nil
}

// Running reports whether a session is active
func (p *Pipeline) Running() bool {
	p.processingMu.RLock()
	defer p.processingMu.RUnlock()
	return p.processing
}

// SessionID identifies the current or most recent session
func (p *Pipeline) SessionID() string {
	p.processingMu.RLock()
	defer p.processingMu.RUnlock()
	return p.sessionID
}

// Submit queues loc to be classified against the most recent state. It
// returns false when no session is running.
func (p *Pipeline) Submit(loc progress.Location) bool {
	return p.submit(sample{loc: loc})
}

// SubmitFrom queues loc to be classified against prev rather than the most
// recent state
func (p *Pipeline) SubmitFrom(prev progress.State, loc progress.Location) bool {
	return p.submit(sample{from: &prev, loc: loc})
}

func (p *Pipeline) submit(s sample) bool {
	p.processingMu.RLock()
	defer p.processingMu.RUnlock()

	if !p.processing {
		p.incrementStat(func(st *Stats) { st.Rejected++ })
		logging.Debugw(p.withLogger(context.Background()), "Navigation: rejected fix while stopped")
		return false
	}

	superseded, replaced := p.replacePending(s)
	if replaced {
		p.incrementStat(func(st *Stats) { st.Dropped++ })
		logging.Debugw(p.runCtx, "Navigation: superseded waiting fix",
			"session_id", p.sessionID, "seq", superseded)
	}

	p.incrementStat(func(st *Stats) { st.Submitted++ })

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return true
}

// Last returns the most recent state produced by the worker
func (p *Pipeline) Last() progress.State {
	p.lastMu.RLock()
	defer p.lastMu.RUnlock()
	return p.last
}

// Stats returns a copy of the pipeline counters
func (p *Pipeline) Stats() Stats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

func (p *Pipeline) worker(ctx context.Context, generation uint64, sessionID string, wake <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			if ctx.Err() != nil {
				return
			}
			s, ok := p.takePending()
			if !ok {
				continue
			}
			p.process(ctx, generation, sessionID, s)
		}
	}
}

// replacePending stores s as the waiting fix, returning the seq of the fix it
// displaced
func (p *Pipeline) replacePending(s sample) (uint64, bool) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	p.seq++
	s.seq = p.seq

	var superseded uint64
	replaced := p.pending != nil
	if replaced {
		superseded = p.pending.seq
	}
	p.pending = &s
	return superseded, replaced
}

func (p *Pipeline) takePending() (sample, bool) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	if p.pending == nil {
		return sample{}, false
	}
	s := *p.pending
	p.pending = nil
	return s, true
}

// process classifies one fix and hands its events to the dispatcher
func (p *Pipeline) process(ctx context.Context, generation uint64, sessionID string, s sample) {
	defer p.recoverPanic(ctx, "Navigation worker: recovered from panic", sessionID)

	prev := p.Last()
	if s.from != nil {
		prev = *s.from
	}

	state := p.classifier.Classify(prev, s.loc)
	p.setLast(state)

	onRoute := true
	intersection, checked := p.detector.NearestIntersection(state)
	if checked {
		var err error
		onRoute, err = p.detector.Check(intersection, s.loc.Bearing)
		if err != nil {
			logging.Warnw(ctx, "Navigation: skipped malformed intersection",
				"session_id", sessionID, "seq", s.seq, "error", err)
		}
	}

	delivered := s.loc
	if p.cfg.SnapToRoute && onRoute && p.nearRoute(state, s.loc) {
		delivered = s.loc.WithPoint(state.SnappedPosition)
	}

	p.incrementStat(func(st *Stats) {
		st.Processed++
		if !onRoute {
			st.OffRoute++
		}
	})

	progressEvent := ProgressEvent{
		SessionID:   sessionID,
		Seq:         s.seq,
		State:       state,
		Location:    delivered,
		RawLocation: s.loc,
		OnRoute:     onRoute,
	}

	var alertEvent *AlertLevelEvent
	if state.AlertLevel != prev.AlertLevel {
		alertEvent = &AlertLevelEvent{
			SessionID: sessionID,
			Seq:       s.seq,
			Previous:  prev.AlertLevel,
			Current:   state.AlertLevel,
			State:     state,
		}
	}

	var offRouteEvent *OffRouteEvent
	if !onRoute {
		offRouteEvent = &OffRouteEvent{
			SessionID:    sessionID,
			Seq:          s.seq,
			State:        state,
			Location:     s.loc,
			Intersection: intersection,
		}
	}

	deliver := func() {
		if !p.isCurrent(generation) {
			return
		}
		if alertEvent != nil {
			for _, l := range p.alertLevelListeners {
				p.invoke(ctx, sessionID, func() { l(*alertEvent) })
			}
		}
		if offRouteEvent != nil {
			for _, l := range p.offRouteListeners {
				p.invoke(ctx, sessionID, func() { l(*offRouteEvent) })
			}
		}
		for _, l := range p.progressListeners {
			p.invoke(ctx, sessionID, func() { l(progressEvent) })
		}
		p.incrementStat(func(st *Stats) { st.Delivered++ })
	}

	if err := p.sessionDispatcher().Dispatch(ctx, deliver); err != nil {
		logging.Debugw(ctx, "Navigation: discarded result",
			"session_id", sessionID, "seq", s.seq, "error", err)
	}
}

// nearRoute keeps fixes far from the current step from being moved onto it
func (p *Pipeline) nearRoute(state progress.State, loc progress.Location) bool {
	inStep, err := p.matcher.IsInStep(loc.Point(), state.CurrentLeg(), state.StepIndex)
	return err == nil && inStep
}

// isCurrent reports whether results from a session generation may still be delivered
func (p *Pipeline) isCurrent(generation uint64) bool {
	p.processingMu.RLock()
	defer p.processingMu.RUnlock()
	return p.processing && p.generation == generation
}

func (p *Pipeline) sessionDispatcher() Dispatcher {
	p.processingMu.RLock()
	defer p.processingMu.RUnlock()
	return p.sessionLoop
}

// invoke runs a single listener, containing any panic it raises
func (p *Pipeline) invoke(ctx context.Context, sessionID string, fn func()) {
	defer p.recoverPanic(ctx, "Navigation listener: recovered from panic", sessionID)
	fn()
}

func (p *Pipeline) recoverPanic(ctx context.Context, msg, sessionID string) {
	if r := recover(); r != nil {
		err, _ := errors.ParseStack(debug.Stack())
		skipFrames := 3
		numFrames := 5
		logging.Errorw(ctx, msg,
			"session_id", sessionID, "error", r, "error.stack_trace", err.MinimalStack(skipFrames, numFrames))
	}
}

func (p *Pipeline) setLast(state progress.State) {
	p.lastMu.Lock()
	defer p.lastMu.Unlock()
	p.last = state
}

func (p *Pipeline) incrementStat(update func(*Stats)) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	update(&p.stats)
}
