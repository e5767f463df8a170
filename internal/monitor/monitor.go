//go:build linux

package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

// screenSaverService is a D-Bus screensaver implementation we know how to query
type screenSaverService struct {
	Name  string
	Path  string
	Iface string
}

// Ordered by preference; the first service present on the bus provides the initial state
var knownScreenSavers = []screenSaverService{
	{Name: "org.freedesktop.ScreenSaver", Path: "/org/freedesktop/ScreenSaver", Iface: "org.freedesktop.ScreenSaver"},
	{Name: "org.gnome.ScreenSaver", Path: "/org/gnome/ScreenSaver", Iface: "org.gnome.ScreenSaver"},
	{Name: "org.cinnamon.ScreenSaver", Path: "/org/cinnamon/ScreenSaver", Iface: "org.cinnamon.ScreenSaver"},
	{Name: "org.mate.ScreenSaver", Path: "/org/mate/ScreenSaver", Iface: "org.mate.ScreenSaver"},
}

// ScreenSaverMonitor reports screensaver activation via the session bus
type ScreenSaverMonitor struct {
	logger          *zap.Logger
	events          chan domain.ActivityEvent
	mu              sync.RWMutex
	running         bool
	cancel          context.CancelFunc
	conn            DBusClient // Interface for testability
	dial            func() (DBusClient, error)
	lastDropWarning time.Time      // Rate limiting for "channel full" warnings
	wg              sync.WaitGroup // Tracks active producer goroutines
	active          bool
	known           bool // whether active holds a real observation yet
}

// NewScreenSaverMonitor creates a new screensaver monitor instance
func NewScreenSaverMonitor(logger *zap.Logger) *ScreenSaverMonitor {
	return &ScreenSaverMonitor{
		logger: logger,
		events: make(chan domain.ActivityEvent, 10),
		dial: func() (DBusClient, error) {
			return NewStdDBusClient()
		},
	}
}

// Start begins monitoring and blocks until ctx is cancelled or Stop is called
func (m *ScreenSaverMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true

	monitorCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	m.logger.Info("Screensaver monitor started")

	conn, err := m.dial()
	if err != nil {
		m.logger.Error("Failed to connect to session bus", zap.Error(err))
		m.mu.Lock()
		defer m.mu.Unlock()
		m.running = false
		m.cancel = nil
		cancel()
		return fmt.Errorf("session bus connection failed: %w", err)
	}

	// Check if we were stopped while connecting to D-Bus
	select {
	case <-monitorCtx.Done():
		m.logger.Info("Monitor stopped during D-Bus connection")
		if err := conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
		return monitorCtx.Err()
	default:
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	m.wg.Add(1)
	func() {
		defer m.wg.Done()
		if err := m.detectInitialState(); err != nil {
			m.logger.Warn("Failed to read initial screensaver state", zap.Error(err))
		}
	}()

	matched := 0
	for _, svc := range knownScreenSavers {
		if err := conn.AddMatchSignal(
			dbus.WithMatchInterface(svc.Iface),
			dbus.WithMatchMember("ActiveChanged"),
		); err != nil {
			m.logger.Warn("Failed to add match signal",
				zap.String("interface", svc.Iface),
				zap.Error(err))
			continue
		}
		matched++
	}
	if matched == 0 {
		return fmt.Errorf("failed to subscribe to any screensaver signal")
	}

	m.logger.Info("D-Bus match rules added", zap.Int("services", matched))

	m.wg.Add(1)
	go m.monitorSignals(monitorCtx)

	<-monitorCtx.Done()

	m.logger.Info("Screensaver monitor stopped")
	return monitorCtx.Err()
}

// Stop gracefully stops the monitor
func (m *ScreenSaverMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()

	if !m.running {
		m.mu.Unlock()
		return nil
	}

	if m.cancel != nil {
		m.cancel()
	}

	m.running = false
	m.mu.Unlock()

	// Wait for all producer goroutines to terminate before closing channel
	m.logger.Debug("Waiting for monitoring goroutines to finish")
	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return ctx.Err()
	}

	close(m.events)

	m.mu.Lock()
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
	}
	m.mu.Unlock()

	m.logger.Info("Screensaver monitor shutdown complete")
	return nil
}

// Events returns a read-only channel that emits screensaver activity changes
func (m *ScreenSaverMonitor) Events() <-chan domain.ActivityEvent {
	return m.events
}

// detectInitialState asks the first screensaver present on the bus whether it is active
func (m *ScreenSaverMonitor) detectInitialState() error {
	names, err := m.conn.ListNames()
	if err != nil {
		return fmt.Errorf("failed to list bus names: %w", err)
	}

	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}

	for _, svc := range knownScreenSavers {
		if !present[svc.Name] {
			continue
		}
		active, err := m.conn.GetActive(svc.Name, svc.Path, svc.Iface)
		if err != nil {
			m.logger.Warn("Screensaver did not report its state",
				zap.String("service", svc.Name),
				zap.Error(err))
			continue
		}

		m.logger.Info("Detected screensaver",
			zap.String("service", svc.Name),
			zap.Bool("active", active))
		m.publish(active, svc.Name)
		return nil
	}

	m.logger.Info("No screensaver service found on the session bus")
	return nil
}

// monitorSignals listens for D-Bus signals and processes them
func (m *ScreenSaverMonitor) monitorSignals(ctx context.Context) {
	defer m.wg.Done()

	signals := make(chan *dbus.Signal, 10)
	m.conn.Signal(signals)

	m.logger.Debug("Signal monitoring goroutine started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("Signal monitoring goroutine stopped")
			return
		case sig := <-signals:
			if sig == nil {
				continue
			}
			m.handleSignal(sig)
		}
	}
}

// handleSignal processes an ActiveChanged signal from any known screensaver
func (m *ScreenSaverMonitor) handleSignal(sig *dbus.Signal) {
	var source string
	for _, svc := range knownScreenSavers {
		if sig.Name == svc.Iface+".ActiveChanged" {
			source = svc.Name
			break
		}
	}
	if source == "" || len(sig.Body) < 1 {
		return
	}

	active, ok := sig.Body[0].(bool)
	if !ok {
		m.logger.Warn("Invalid ActiveChanged payload, ignoring",
			zap.String("type", fmt.Sprintf("%T", sig.Body[0])))
		return
	}

	m.publish(active, source)
}

// publish emits an event when the activity state actually changes
func (m *ScreenSaverMonitor) publish(active bool, source string) {
	m.mu.Lock()
	if m.known && m.active == active {
		m.mu.Unlock()
		return
	}
	m.known = true
	m.active = active
	m.mu.Unlock()

	event := domain.ActivityEvent{Active: active, Source: source}
	select {
	case m.events <- event:
		m.logger.Info("Screensaver activity changed",
			zap.String("source", source),
			zap.Bool("active", active))
	default:
		m.logChannelFullWarning()
	}
}

// logChannelFullWarning logs a warning about channel being full, but rate-limited
func (m *ScreenSaverMonitor) logChannelFullWarning() {
	m.mu.Lock()
	defer m.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()

	if now.Sub(m.lastDropWarning) >= warningInterval {
		m.logger.Warn("Events channel full, dropping screensaver event")
		m.lastDropWarning = now
	}
}
