package engine

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/rotation"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Rotator is the part of rotation.Rotator the engine drives
type Rotator interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Events() <-chan rotation.Event
	Load(ctx context.Context, descriptor string) error
	SetOrderMode(ctx context.Context, mode domain.OrderMode) error
	SetInterval(ctx context.Context, d time.Duration) error
	SetTransition(ctx context.Context, effect domain.TransitionEffect) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// WeatherTrigger requests an out-of-cycle weather refresh
type WeatherTrigger interface {
	Trigger()
}

// Engine orchestrates the wallpaper pipeline.
// It feeds settings into the rotator, renders each image the rotator announces and sets it as wallpaper.
type Engine struct {
	logger            *zap.Logger
	cfg               domain.Config
	rotator           Rotator
	settings          domain.SettingsStore
	monitor           domain.Monitor
	fetcher           domain.Fetcher
	processor         domain.Processor
	executor          domain.Executor
	originalWallpaper string // Path to wallpaper captured at startup
	weather           WeatherTrigger

	current domain.Settings
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewEngine creates a new orchestration engine
func NewEngine(
	logger *zap.Logger,
	cfg domain.Config,
	rot Rotator,
	store domain.SettingsStore,
	mon domain.Monitor,
	fetch domain.Fetcher,
	proc domain.Processor,
	exec domain.Executor,
) *Engine {
	return &Engine{
		logger:    logger,
		cfg:       cfg,
		rotator:   rot,
		settings:  store,
		monitor:   mon,
		fetcher:   fetch,
		processor: proc,
		executor:  exec,
	}
}

// WithWeather makes weather-related settings changes trigger an immediate refresh
func (e *Engine) WithWeather(w WeatherTrigger) *Engine {
	e.weather = w
	return e
}

// Start applies the stored settings, kicks off the first load and launches the event loop.
// It returns immediately (non-blocking).
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Engine starting...")

	if e.cfg.RestoreOnExit() {
		// Try to capture current wallpaper before we start changing it
		if wallpaper, err := e.executor.GetCurrentWallpaper(ctx); err == nil {
			e.originalWallpaper = wallpaper
			e.logger.Info("Captured original wallpaper for restoration",
				zap.String("path", wallpaper))
		} else {
			e.logger.Warn("Could not capture current wallpaper, restore on exit will be disabled",
				zap.Error(err))
		}
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel

	settings, err := e.settings.Load()
	if err != nil {
		e.logger.Warn("Settings unreadable, using defaults", zap.Error(err))
		settings = domain.DefaultSettings()
	}

	if err := e.rotator.Start(loopCtx); err != nil {
		cancel()
		return err
	}
	if e.cfg.FollowScreenSaver() {
		// rotation waits for the screensaver to report itself active
		if err := e.rotator.Pause(loopCtx); err != nil {
			cancel()
			return err
		}
	}
	e.apply(loopCtx, domain.Settings{}, settings)

	changes, err := e.settings.Watch(loopCtx)
	if err != nil {
		e.logger.Warn("Settings changes will not be picked up", zap.Error(err))
	}

	var activity <-chan domain.ActivityEvent
	if e.cfg.FollowScreenSaver() {
		activity = e.monitor.Events()
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.monitor.Start(loopCtx); err != nil && loopCtx.Err() == nil {
				e.logger.Error("Screensaver monitor failed, resuming rotation", zap.Error(err))
				if err := e.rotator.Resume(loopCtx); err != nil {
					e.logger.Warn("Failed to resume rotation", zap.Error(err))
				}
			}
		}()
	}

	e.wg.Add(1)
	go e.runLoop(loopCtx, changes, activity)
	return nil
}

// runLoop reacts to rotator events, settings changes and screensaver activity
func (e *Engine) runLoop(ctx context.Context, changes <-chan domain.Settings, activity <-chan domain.ActivityEvent) {
	defer e.wg.Done()
	events := e.rotator.Events()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine loop stopped")
			return

		case ev, ok := <-events:
			if !ok {
				e.logger.Info("Rotator events channel closed")
				return
			}
			e.present(ctx, ev)

		case next, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			e.apply(ctx, e.current, next)

		case act, ok := <-activity:
			if !ok {
				activity = nil
				continue
			}
			e.follow(ctx, act)
		}
	}
}

// apply pushes the fields that differ between prev and next into the rotator
func (e *Engine) apply(ctx context.Context, prev, next domain.Settings) {
	e.current = next

	if next.Order() != prev.Order() || prev.ImageDisplayOrder == "" {
		if err := e.rotator.SetOrderMode(ctx, next.Order()); err != nil {
			e.logger.Warn("Failed to change order mode", zap.Error(err))
		}
	}
	if next.Interval() != prev.Interval() || prev.ImageChangeInterval == 0 {
		if err := e.rotator.SetInterval(ctx, next.Interval()); err != nil {
			e.logger.Warn("Failed to change interval", zap.Error(err))
		}
	}
	if next.Transition() != prev.Transition() || prev.ImageTransitionEffect == "" {
		if err := e.rotator.SetTransition(ctx, next.Transition()); err != nil {
			e.logger.Warn("Failed to change transition", zap.Error(err))
		}
	}
	if next.ImageRepository != prev.ImageRepository {
		e.logger.Info("Image repository changed",
			zap.String("from", prev.ImageRepository),
			zap.String("to", next.ImageRepository))
		if err := e.rotator.Load(ctx, next.ImageRepository); err != nil {
			e.logger.Warn("Failed to load repository", zap.Error(err))
		}
	}
	if e.weather != nil && prev.ImageRepository != "" && weatherChanged(prev, next) {
		e.weather.Trigger()
	}
}

func weatherChanged(prev, next domain.Settings) bool {
	return prev.WeatherEnabled != next.WeatherEnabled ||
		prev.WeatherLocation != next.WeatherLocation ||
		!slices.Equal(prev.WeatherCities, next.WeatherCities) ||
		prev.CurrentCityIndex != next.CurrentCityIndex ||
		prev.TemperatureUnit != next.TemperatureUnit
}

// follow pauses rotation while the screensaver is inactive
func (e *Engine) follow(ctx context.Context, act domain.ActivityEvent) {
	var err error
	if act.Active {
		err = e.rotator.Resume(ctx)
	} else {
		err = e.rotator.Pause(ctx)
	}
	if err != nil {
		e.logger.Warn("Failed to follow screensaver state",
			zap.Bool("active", act.Active),
			zap.Error(err))
	}
}

// present handles the complete pipeline for a single rotator event
func (e *Engine) present(ctx context.Context, ev rotation.Event) {
	if ev.Kind == rotation.EventIdle {
		e.showIdle(ctx, ev)
		return
	}

	if !ev.Image.Loaded {
		e.logger.Warn("Skipping image that failed to preload",
			zap.String("url", ev.Image.URL),
			zap.Int("index", ev.Index))
		return
	}

	e.logger.Info("Processing wallpaper",
		zap.String("event", string(ev.Kind)),
		zap.String("filename", ev.Image.Filename),
		zap.Int("index", ev.Index),
		zap.Int("images", ev.Images))

	// 1. Fetch image
	imgData, err := e.fetcher.Fetch(ctx, ev.Image.URL)
	if err != nil {
		e.logger.Error("Failed to fetch image", zap.String("url", ev.Image.URL), zap.Error(err))
		return
	}

	// 2. Process image and save to disk
	mode := e.cfg.GetMode()
	wallpaperPath, err := e.processor.Generate(imgData, mode)
	if err != nil {
		e.logger.Error("Failed to generate wallpaper", zap.Error(err))
		return
	}

	// 3. Set wallpaper
	if err := e.executor.SetWallpaper(ctx, wallpaperPath, ev.Effect); err != nil {
		e.logger.Error("Failed to set wallpaper", zap.Error(err))
		return
	}

	e.logger.Info("Wallpaper updated successfully",
		zap.String("path", wallpaperPath),
		zap.String("mode", mode),
		zap.String("effect", string(ev.Effect)))
}

func (e *Engine) showIdle(ctx context.Context, ev rotation.Event) {
	path, err := e.processor.DefaultBackground()
	if err != nil {
		e.logger.Error("Failed to generate default background", zap.Error(err))
		return
	}
	if err := e.executor.SetWallpaper(ctx, path, e.current.Transition()); err != nil {
		e.logger.Error("Failed to set default background", zap.Error(err))
		return
	}
	e.logger.Info("No images available, showing default background",
		zap.String("loadId", ev.LoadID),
		zap.String("path", path))
}

// Stop gracefully stops the engine and restores the original wallpaper
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...")

	if e.cancel != nil {
		e.cancel()
	}

	var err error
	if e.cfg.FollowScreenSaver() {
		err = multierr.Append(err, e.monitor.Stop(ctx))
	}
	e.wg.Wait()
	err = multierr.Append(err, e.rotator.Stop(ctx))

	// Restore original wallpaper if we captured one
	if e.originalWallpaper != "" {
		e.logger.Info("Restoring original wallpaper",
			zap.String("path", e.originalWallpaper))

		if rerr := e.executor.SetWallpaper(ctx, e.originalWallpaper, domain.TransitionNone); rerr != nil {
			e.logger.Error("Failed to restore original wallpaper", zap.Error(rerr))
			err = multierr.Append(err, rerr)
		} else {
			e.logger.Info("Original wallpaper restored successfully")
		}
	} else {
		e.logger.Info("No original wallpaper to restore")
	}

	return err
}
