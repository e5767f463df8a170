//go:build !linux
// +build !linux

package monitor

import (
	"context"
	"fmt"

	"github.com/genricoloni/reverie/internal/domain"
	"go.uber.org/zap"
)

// ScreenSaverMonitor stub for non-Linux platforms
type ScreenSaverMonitor struct {
	logger *zap.Logger
	events chan domain.ActivityEvent
}

// NewScreenSaverMonitor creates a stub monitor that returns an error on non-Linux platforms
func NewScreenSaverMonitor(logger *zap.Logger) *ScreenSaverMonitor {
	ch := make(chan domain.ActivityEvent)
	close(ch)
	return &ScreenSaverMonitor{logger: logger, events: ch}
}

// Start returns an error indicating screensaver monitoring is not supported on this platform
func (m *ScreenSaverMonitor) Start(ctx context.Context) error {
	return fmt.Errorf("screensaver monitoring is only supported on Linux systems")
}

// Events returns a closed channel since monitoring is not available
func (m *ScreenSaverMonitor) Events() <-chan domain.ActivityEvent {
	return m.events
}

// Stop is a no-op on non-Linux platforms
func (m *ScreenSaverMonitor) Stop(ctx context.Context) error {
	return nil
}
