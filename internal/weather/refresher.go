package weather

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/reverie/internal/domain"
	"go.uber.org/zap"
)

const _defaultRefresh = 30 * time.Minute

// SettingsLoader is the part of the settings store the refresher reads
type SettingsLoader interface {
	Load() (domain.Settings, error)
}

// Refresher polls the weather for the configured location and caches the last report
type Refresher struct {
	logger   *zap.Logger
	client   *Client
	settings SettingsLoader
	interval time.Duration

	mu      sync.RWMutex
	latest  domain.WeatherData
	ok      bool
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	wake    chan struct{}
}

// NewRefresher creates a refresher polling every interval (30 minutes when zero)
func NewRefresher(logger *zap.Logger, client *Client, settings SettingsLoader, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = _defaultRefresh
	}
	return &Refresher{
		logger:   logger,
		client:   client,
		settings: settings,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Latest returns the most recent report. ok is false when weather is disabled or never succeeded.
func (r *Refresher) Latest() (domain.WeatherData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.ok
}

// Trigger schedules an immediate refresh, e.g. after the location setting changed
func (r *Refresher) Trigger() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Start begins polling in the background
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	if !r.client.Enabled() {
		r.logger.Info("Weather disabled: no API key configured")
		return nil
	}
	r.running = true

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(loopCtx)
	return nil
}

// Stop halts polling and waits for an in-flight refresh
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresher) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		case <-r.wake:
			r.Refresh(ctx)
		}
	}
}

// Refresh fetches the weather once and updates Latest
func (r *Refresher) Refresh(ctx context.Context) {
	s, err := r.settings.Load()
	if err != nil {
		r.logger.Warn("Weather refresh using defaults, settings unreadable", zap.Error(err))
	}
	if !s.WeatherEnabled || !r.client.Enabled() {
		r.store(domain.WeatherData{}, false)
		return
	}

	city := s.WeatherLocation
	if s.CurrentCityIndex >= 0 && s.CurrentCityIndex < len(s.WeatherCities) {
		city = s.WeatherCities[s.CurrentCityIndex]
	}

	var data domain.WeatherData
	if city == "" || strings.EqualFold(city, "auto") {
		loc, lerr := r.client.GetCurrentLocation(ctx)
		if lerr != nil {
			r.logger.Warn("Could not determine location", zap.Error(lerr))
			return
		}
		data, err = r.client.GetWeatherByLocation(ctx, loc, s.TemperatureUnit)
	} else {
		data, err = r.client.GetWeatherByCity(ctx, city, s.TemperatureUnit)
	}
	if err != nil {
		// the previous report stays until a refresh succeeds
		r.logger.Warn("Weather refresh failed", zap.String("city", city), zap.Error(err))
		return
	}

	r.logger.Debug("Weather updated",
		zap.String("location", data.Location),
		zap.Float64("temperature", data.Temperature),
		zap.String("description", data.Description))
	r.store(data, true)
}

func (r *Refresher) store(data domain.WeatherData, ok bool) {
	r.mu.Lock()
	r.latest = data
	r.ok = ok
	r.mu.Unlock()
}
