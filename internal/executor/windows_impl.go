//go:build windows
// +build windows

package executor

import (
	"context"
	"fmt"
	"syscall"
	"unsafe"

	"github.com/genricoloni/reverie/internal/domain"
	"go.uber.org/zap"
)

var (
	user32               = syscall.NewLazyDLL("user32.dll")
	systemParametersInfo = user32.NewProc("SystemParametersInfoW")
)

// SystemParametersInfoW actions and flags
const (
	spiGetDeskWallpaper = 0x0073
	spiSetDeskWallpaper = 0x0014
	spifUpdateIniFile   = 0x01
	spifSendChange      = 0x02

	maxPath = 260
)

// WindowsExecutor handles wallpaper setting on Windows systems.
// Windows has no animated setter, so the transition effect is ignored.
type WindowsExecutor struct {
	logger *zap.Logger
}

// NewExecutor creates a new platform-specific wallpaper executor (Windows implementation)
func NewExecutor(logger *zap.Logger) (*WindowsExecutor, error) {
	if err := systemParametersInfo.Find(); err != nil {
		return nil, fmt.Errorf("SystemParametersInfoW unavailable: %w", err)
	}
	logger.Info("Windows wallpaper setter initialized")
	return &WindowsExecutor{logger: logger}, nil
}

// SetWallpaper sets the desktop wallpaper using SystemParametersInfoW
func (e *WindowsExecutor) SetWallpaper(ctx context.Context, imagePath string, effect domain.TransitionEffect) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := syscall.UTF16PtrFromString(imagePath)
	if err != nil {
		return fmt.Errorf("invalid wallpaper path: %w", err)
	}

	ret, _, callErr := systemParametersInfo.Call(
		uintptr(spiSetDeskWallpaper),
		0,
		uintptr(unsafe.Pointer(path)),
		uintptr(spifUpdateIniFile|spifSendChange),
	)
	if ret == 0 {
		return fmt.Errorf("failed to set wallpaper: %w", callErr)
	}

	e.logger.Debug("Wallpaper set", zap.String("path", imagePath), zap.String("effect", string(effect)))
	return nil
}

// GetCurrentWallpaper asks Windows for the current wallpaper path
func (e *WindowsExecutor) GetCurrentWallpaper(ctx context.Context) (string, error) {
	buf := make([]uint16, maxPath)
	ret, _, callErr := systemParametersInfo.Call(
		uintptr(spiGetDeskWallpaper),
		uintptr(len(buf)),
		uintptr(unsafe.Pointer(&buf[0])),
		0,
	)
	if ret == 0 {
		return "", fmt.Errorf("failed to query wallpaper: %w", callErr)
	}

	path := syscall.UTF16ToString(buf)
	if path == "" {
		return "", fmt.Errorf("no wallpaper is set")
	}
	return path, nil
}
