package rotation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/metrics"
	"github.com/genricoloni/reverie/internal/random"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrStopped is returned by commands issued after the rotator stopped
var ErrStopped = errors.New("rotator stopped")

const (
	_defaultCount    = 10
	_defaultInterval = 5 * time.Minute
	_eventBuffer     = 16
)

// EventKind distinguishes rotator notifications
type EventKind string

const (
	// EventLoaded fires when a load completes with at least one image
	EventLoaded EventKind = "loaded"
	// EventAdvanced fires when the current image changes
	EventAdvanced EventKind = "advanced"
	// EventIdle fires when a load completes with no images
	EventIdle EventKind = "idle"
)

// Event tells the presenter what to show next
type Event struct {
	Kind   EventKind
	Image  domain.ImageRecord
	Index  int
	Images int
	Effect domain.TransitionEffect
	// EffectiveAfter is when Index becomes the visible image
	EffectiveAfter time.Duration
	LoadID         string
}

// Options seeds a Rotator
type Options struct {
	Count    int
	Interval time.Duration
	Mode     domain.OrderMode
	Effect   domain.TransitionEffect
}

// Snapshot is a consistent copy of the rotator state
type Snapshot struct {
	Descriptor string                  `json:"descriptor" yaml:"descriptor"`
	Ready      bool                    `json:"ready" yaml:"ready"`
	Loading    bool                    `json:"loading" yaml:"loading"`
	Paused     bool                    `json:"paused" yaml:"paused"`
	Mode       domain.OrderMode        `json:"mode" yaml:"mode"`
	Effect     domain.TransitionEffect `json:"effect" yaml:"effect"`
	Interval   time.Duration           `json:"interval" yaml:"interval"`
	Index      int                     `json:"index" yaml:"index"`
	Visible    int                     `json:"visible" yaml:"visible"`
	Cursor     int                     `json:"cursor" yaml:"cursor"`
	Shuffle    []int                   `json:"shuffle,omitempty" yaml:"shuffle,omitempty"`
	Images     []domain.ImageRecord    `json:"images" yaml:"images"`
	Generation uint64                  `json:"generation" yaml:"generation"`
}

type loadResult struct {
	generation uint64
	descriptor string
	loadID     string
	images     []domain.ImageRecord
}

// Rotator owns the rotation State and its timers. All state lives on one
// goroutine; callers talk to it through commands.
type Rotator struct {
	logger    *zap.Logger
	source    domain.ImageSource
	preloader domain.Preloader
	metrics   *metrics.Metrics

	cmds   chan func()
	loaded chan loadResult
	events chan Event

	mu              sync.Mutex
	running         bool
	stopped         bool
	cancel          context.CancelFunc
	done            chan struct{}
	wg              sync.WaitGroup
	lastDropWarning time.Time

	// owned by the run loop
	state       *State
	count       int
	descriptor  string
	interval    time.Duration
	effect      domain.TransitionEffect
	paused      bool
	loading     bool
	generation  uint64
	cancelLoad  context.CancelFunc
	visible     int
	ticker      *time.Timer
	tickC       <-chan time.Time
	reveal      *time.Timer
	revealC     <-chan time.Time
	pendingShow int
}

// NewRotator creates an idle rotator. Nothing happens until Start.
func NewRotator(
	logger *zap.Logger,
	source domain.ImageSource,
	preloader domain.Preloader,
	m *metrics.Metrics,
	rng random.Rand,
	opts Options,
) *Rotator {
	if opts.Count <= 0 {
		opts.Count = _defaultCount
	}
	if opts.Interval <= 0 {
		opts.Interval = _defaultInterval
	}
	if opts.Mode == "" {
		opts.Mode = domain.OrderSequential
	}
	if opts.Effect == "" {
		opts.Effect = domain.TransitionFade
	}

	ticker := time.NewTimer(time.Hour)
	ticker.Stop()
	reveal := time.NewTimer(time.Hour)
	reveal.Stop()

	return &Rotator{
		logger:    logger,
		source:    source,
		preloader: preloader,
		metrics:   m,
		cmds:      make(chan func()),
		loaded:    make(chan loadResult),
		events:    make(chan Event, _eventBuffer),
		done:      make(chan struct{}),
		state:     NewState(rng, opts.Mode),
		count:     opts.Count,
		interval:  opts.Interval,
		effect:    opts.Effect,
		ticker:    ticker,
		reveal:    reveal,
	}
}

// Events returns the channel the presenter consumes. It is closed by Stop.
func (r *Rotator) Events() <-chan Event {
	return r.events
}

// Start launches the run loop and returns immediately.
// A Rotator is single-use: Start after Stop returns ErrStopped.
func (r *Rotator) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrStopped
	}
	if r.running {
		return nil
	}
	r.running = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel

	r.wg.Add(1)
	go r.run(runCtx)

	r.logger.Info("Rotator started",
		zap.Duration("interval", r.interval),
		zap.String("mode", string(r.state.Mode())),
		zap.Int("count", r.count))
	return nil
}

// Stop cancels in-flight loads and timers, waits for the loop to exit and closes Events
func (r *Rotator) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.stopped = true
	r.cancel()
	r.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		close(r.events)
		r.logger.Info("Rotator stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load replaces the image set from descriptor. A newer Load supersedes any in-flight one.
func (r *Rotator) Load(ctx context.Context, descriptor string) error {
	return r.exec(ctx, func() {
		r.descriptor = descriptor
		r.startLoad()
	})
}

// Reload refetches the current descriptor
func (r *Rotator) Reload(ctx context.Context) error {
	return r.exec(ctx, r.startLoad)
}

// SetOrderMode switches between sequential and random without refetching
func (r *Rotator) SetOrderMode(ctx context.Context, mode domain.OrderMode) error {
	return r.exec(ctx, func() {
		if mode == r.state.Mode() {
			return
		}
		r.state.SetOrderMode(mode)
		r.logger.Info("Order mode changed", zap.String("mode", string(mode)))
		r.arm()
	})
}

// SetInterval changes the advance period and re-arms the timer
func (r *Rotator) SetInterval(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return errors.New("interval must be positive")
	}
	return r.exec(ctx, func() {
		if d == r.interval {
			return
		}
		r.interval = d
		r.logger.Info("Rotation interval changed", zap.Duration("interval", d))
		r.arm()
	})
}

// SetTransition selects the effect used for subsequent advances
func (r *Rotator) SetTransition(ctx context.Context, effect domain.TransitionEffect) error {
	return r.exec(ctx, func() {
		r.effect = effect
	})
}

// Next advances immediately and restarts the interval
func (r *Rotator) Next(ctx context.Context) error {
	return r.exec(ctx, func() {
		r.advance("next", r.state.Tick)
		r.arm()
	})
}

// Prev steps back immediately and restarts the interval
func (r *Rotator) Prev(ctx context.Context) error {
	return r.exec(ctx, func() {
		r.advance("prev", r.state.Prev)
		r.arm()
	})
}

// Pause disarms the timer; the current image stays
func (r *Rotator) Pause(ctx context.Context) error {
	return r.exec(ctx, func() {
		if r.paused {
			return
		}
		r.paused = true
		r.disarm()
		r.logger.Info("Rotation paused")
	})
}

// Resume re-arms the timer after Pause
func (r *Rotator) Resume(ctx context.Context) error {
	return r.exec(ctx, func() {
		if !r.paused {
			return
		}
		r.paused = false
		r.arm()
		r.logger.Info("Rotation resumed")
	})
}

// Snapshot returns a copy of the current state
func (r *Rotator) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := r.exec(ctx, func() {
		images := make([]domain.ImageRecord, r.state.Len())
		copy(images, r.state.Images())
		snap = Snapshot{
			Descriptor: r.descriptor,
			Ready:      r.state.Len() > 0,
			Loading:    r.loading,
			Paused:     r.paused,
			Mode:       r.state.Mode(),
			Effect:     r.effect,
			Interval:   r.interval,
			Index:      r.state.Index(),
			Visible:    r.visible,
			Cursor:     r.state.Cursor(),
			Shuffle:    r.state.ShuffleOrder(),
			Images:     images,
			Generation: r.generation,
		}
	})
	return snap, err
}

// exec runs fn on the loop goroutine and waits for it to finish
func (r *Rotator) exec(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	cmd := func() {
		defer close(finished)
		fn()
	}

	select {
	case r.cmds <- cmd:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	<-finished
	return nil
}

func (r *Rotator) run(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.done)
	defer r.ticker.Stop()
	defer r.reveal.Stop()

	for {
		select {
		case <-ctx.Done():
			if r.cancelLoad != nil {
				r.cancelLoad()
			}
			r.logger.Debug("Rotator loop stopped")
			return

		case cmd := <-r.cmds:
			cmd()

		case res := <-r.loaded:
			r.finishLoad(res)

		case <-r.tickC:
			r.tickC = nil
			r.advance("tick", r.state.Tick)
			r.arm()

		case <-r.revealC:
			r.revealC = nil
			r.visible = r.pendingShow
		}
	}
}

// startLoad supersedes any in-flight load and fetches r.descriptor off-loop
func (r *Rotator) startLoad() {
	if r.cancelLoad != nil {
		r.cancelLoad()
	}
	r.generation++
	r.loading = true
	r.disarm()

	gen := r.generation
	descriptor := r.descriptor
	count := r.count
	loadID := uuid.NewString()

	loadCtx, cancel := context.WithCancel(context.Background())
	r.cancelLoad = cancel

	r.logger.Info("Loading images",
		zap.String("loadId", loadID),
		zap.String("descriptor", descriptor),
		zap.Uint64("generation", gen))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		images := r.source.GetImages(loadCtx, descriptor, count)
		images = r.preloader.Preload(loadCtx, images)

		select {
		case r.loaded <- loadResult{generation: gen, descriptor: descriptor, loadID: loadID, images: images}:
		case <-r.done:
		}
	}()
}

func (r *Rotator) finishLoad(res loadResult) {
	if res.generation != r.generation {
		r.logger.Debug("Discarding superseded load",
			zap.String("loadId", res.loadID),
			zap.Uint64("generation", res.generation),
			zap.Uint64("current", r.generation))
		r.metrics.Load("superseded", len(res.images))
		return
	}

	r.cancelLoad()
	r.cancelLoad = nil
	r.loading = false

	r.state.Replace(res.images)
	r.visible = 0
	r.revealC = nil
	r.reveal.Stop()

	if r.state.Len() == 0 {
		r.logger.Warn("Repository yielded no images, rotation idle",
			zap.String("loadId", res.loadID),
			zap.String("descriptor", res.descriptor))
		r.metrics.Load("idle", 0)
		r.emit(Event{Kind: EventIdle, LoadID: res.loadID})
		return
	}

	current, _ := r.state.Current()
	r.logger.Info("Images loaded",
		zap.String("loadId", res.loadID),
		zap.Int("images", r.state.Len()),
		zap.String("first", current.Filename))
	r.metrics.Load("ready", r.state.Len())

	r.emit(Event{
		Kind:   EventLoaded,
		Image:  current,
		Index:  r.state.Index(),
		Images: r.state.Len(),
		Effect: r.effect,
		LoadID: res.loadID,
	})
	r.arm()
}

// advance applies step and announces the new image, gating visibility on the effect duration
func (r *Rotator) advance(trigger string, step func() bool) {
	if !step() {
		return
	}

	current, _ := r.state.Current()
	delay := r.effect.Duration()
	r.metrics.Rotation(trigger)

	r.logger.Debug("Advancing image",
		zap.String("trigger", trigger),
		zap.Int("index", r.state.Index()),
		zap.String("filename", current.Filename),
		zap.String("effect", string(r.effect)))

	r.pendingShow = r.state.Index()
	if delay <= 0 {
		r.revealC = nil
		r.reveal.Stop()
		r.visible = r.pendingShow
	} else {
		r.reveal.Reset(delay)
		r.revealC = r.reveal.C
	}

	r.emit(Event{
		Kind:           EventAdvanced,
		Image:          current,
		Index:          r.state.Index(),
		Images:         r.state.Len(),
		Effect:         r.effect,
		EffectiveAfter: delay,
	})
}

// arm (re)starts the interval timer when rotation can make progress
func (r *Rotator) arm() {
	r.disarm()
	if r.paused || r.loading || r.state.Len() <= 1 {
		return
	}
	r.ticker.Reset(r.interval)
	r.tickC = r.ticker.C
}

func (r *Rotator) disarm() {
	r.ticker.Stop()
	r.tickC = nil
}

// emit never blocks the loop; a lagging consumer loses events
func (r *Rotator) emit(ev Event) {
	select {
	case r.events <- ev:
	default:
		r.logChannelFullWarning()
	}
}

// logChannelFullWarning logs a rate-limited warning when the events channel is full
func (r *Rotator) logChannelFullWarning() {
	now := time.Now()
	if now.Sub(r.lastDropWarning) > 5*time.Second {
		r.logger.Warn("Events channel full, dropping rotation event",
			zap.Int("buffer_size", cap(r.events)))
		r.lastDropWarning = now
	}
}
