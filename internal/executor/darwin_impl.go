//go:build darwin
// +build darwin

package executor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/genricoloni/reverie/internal/domain"
	"go.uber.org/zap"
)

const (
	setScript = `tell application "System Events" to tell every desktop to set picture to POSIX file %q`
	getScript = `tell application "System Events" to get picture of desktop 1`
)

// DarwinExecutor sets the wallpaper through osascript
type DarwinExecutor struct {
	logger *zap.Logger
	run    func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewExecutor creates a new platform-specific wallpaper executor (macOS implementation)
func NewExecutor(logger *zap.Logger) (*DarwinExecutor, error) {
	if _, err := exec.LookPath("osascript"); err != nil {
		return nil, fmt.Errorf("osascript not found: %w", err)
	}
	logger.Info("macOS wallpaper setter initialized")
	return &DarwinExecutor{
		logger: logger,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}, nil
}

// SetWallpaper applies imagePath to every desktop. macOS animates the change itself.
func (e *DarwinExecutor) SetWallpaper(ctx context.Context, imagePath string, effect domain.TransitionEffect) error {
	out, err := e.run(ctx, "osascript", "-e", fmt.Sprintf(setScript, imagePath))
	if err != nil {
		return fmt.Errorf("failed to set wallpaper: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}
	e.logger.Debug("Wallpaper set", zap.String("path", imagePath), zap.String("effect", string(effect)))
	return nil
}

// GetCurrentWallpaper returns the picture of the main desktop
func (e *DarwinExecutor) GetCurrentWallpaper(ctx context.Context) (string, error) {
	out, err := e.run(ctx, "osascript", "-e", getScript)
	if err != nil {
		return "", fmt.Errorf("failed to query wallpaper: %w", err)
	}
	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", fmt.Errorf("no wallpaper is set")
	}
	return path, nil
}
