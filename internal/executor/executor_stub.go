//go:build !linux && !windows && !darwin
// +build !linux,!windows,!darwin

package executor

import (
	"context"
	"fmt"

	"github.com/genricoloni/reverie/internal/domain"
	"go.uber.org/zap"
)

// StubExecutor is a placeholder for unsupported platforms such as the BSDs
type StubExecutor struct {
	logger *zap.Logger
}

// NewExecutor creates a stub executor for unsupported platforms
func NewExecutor(logger *zap.Logger) (*StubExecutor, error) {
	logger.Warn("Wallpaper setting is not yet implemented for this platform")
	return &StubExecutor{logger: logger}, nil
}

// SetWallpaper returns an error indicating the platform is not supported
func (e *StubExecutor) SetWallpaper(ctx context.Context, imagePath string, effect domain.TransitionEffect) error {
	return fmt.Errorf("wallpaper setting not implemented for this platform")
}

// GetCurrentWallpaper returns an error indicating the platform is not supported
func (e *StubExecutor) GetCurrentWallpaper(ctx context.Context) (string, error) {
	return "", fmt.Errorf("wallpaper query not implemented for this platform")
}
