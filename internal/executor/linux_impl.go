//go:build linux
// +build linux

package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/genricoloni/reverie/internal/domain"
	"go.uber.org/zap"
)

// WallpaperCommand represents a detected wallpaper setter command
type WallpaperCommand struct {
	Name   string
	Binary string
	Args   []string // %s will be replaced with image path
	// Animated setters accept a transition type and duration
	Animated bool
	// Query prints the current wallpaper, empty when unsupported
	Query []string
}

var (
	// Ordered list of wallpaper commands to try (highest priority first)
	wallpaperCommands = []WallpaperCommand{
		// Hyprland - swww (recommended)
		{Name: "swww", Binary: "swww", Args: []string{"img", "%s"}, Animated: true, Query: []string{"query"}},
		// Hyprland - hyprpaper
		{Name: "hyprpaper", Binary: "hyprctl", Args: []string{"hyprpaper", "wallpaper", ",%s"}, Query: []string{"hyprpaper", "listactive"}},
		// swaybg (Sway/Wayland)
		{Name: "swaybg", Binary: "swaybg", Args: []string{"-i", "%s", "-m", "fill"}},
		// GNOME (dark theme)
		{Name: "gnome", Binary: "gsettings", Args: []string{"set", "org.gnome.desktop.background", "picture-uri-dark", "file://%s"},
			Query: []string{"get", "org.gnome.desktop.background", "picture-uri-dark"}},
		// Generic X11 - feh
		{Name: "feh", Binary: "feh", Args: []string{"--bg-fill", "%s"}},
		// Generic X11 - nitrogen
		{Name: "nitrogen", Binary: "nitrogen", Args: []string{"--set-zoom-fill", "%s"}},
	}

	// swww transition types per effect
	swwwTransitions = map[domain.TransitionEffect]string{
		domain.TransitionFade:  "fade",
		domain.TransitionSlide: "left",
		domain.TransitionZoom:  "grow",
		domain.TransitionFlip:  "wave",
		domain.TransitionNone:  "none",
	}
)

// runFunc executes a command and returns its combined output
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// LinuxExecutor handles wallpaper setting on Linux systems
type LinuxExecutor struct {
	logger  *zap.Logger
	command WallpaperCommand
	run     runFunc
}

// NewExecutor creates a new platform-specific wallpaper executor (Linux implementation)
func NewExecutor(logger *zap.Logger) (*LinuxExecutor, error) {
	cmd := detectCommand(logger)
	if cmd.Binary == "" {
		return nil, fmt.Errorf("no supported wallpaper command found on this system")
	}

	logger.Info("Wallpaper setter detected",
		zap.String("name", cmd.Name),
		zap.String("binary", cmd.Binary),
		zap.Bool("animated", cmd.Animated))

	return &LinuxExecutor{
		logger:  logger,
		command: cmd,
		run:     runCommand,
	}, nil
}

// detectCommand analyzes the environment to choose the best wallpaper command
func detectCommand(logger *zap.Logger) WallpaperCommand {
	desktop := os.Getenv("XDG_CURRENT_DESKTOP")
	session := os.Getenv("XDG_SESSION_TYPE")
	wayland := os.Getenv("WAYLAND_DISPLAY")
	hyprland := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")

	logger.Debug("Detecting wallpaper command",
		zap.String("desktop", desktop),
		zap.String("session", session),
		zap.String("wayland", wayland),
		zap.String("hyprland", hyprland))

	if hyprland != "" {
		if cmd, ok := firstAvailable("swww", "hyprpaper"); ok {
			return cmd
		}
	}

	if strings.Contains(strings.ToLower(desktop), "gnome") {
		if cmd, ok := firstAvailable("gnome"); ok {
			return cmd
		}
	}

	if wayland != "" || session == "wayland" {
		if cmd, ok := firstAvailable("swww", "swaybg"); ok {
			return cmd
		}
	}

	// Fallback: try all commands in order
	for _, cmd := range wallpaperCommands {
		if commandExists(cmd.Binary) {
			logger.Info("Using fallback wallpaper command", zap.String("name", cmd.Name))
			return cmd
		}
	}

	return WallpaperCommand{} // No command found
}

// firstAvailable returns the first command among names whose binary is installed, in priority order
func firstAvailable(names ...string) (WallpaperCommand, bool) {
	for _, cmd := range wallpaperCommands {
		for _, name := range names {
			if cmd.Name == name && commandExists(cmd.Binary) {
				return cmd, true
			}
		}
	}
	return WallpaperCommand{}, false
}

// commandExists checks if a binary exists in PATH
func commandExists(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

// buildArgs fills the image path into the command template and appends transition flags
func buildArgs(cmd WallpaperCommand, imagePath string, effect domain.TransitionEffect) []string {
	args := make([]string, 0, len(cmd.Args)+4)
	for _, arg := range cmd.Args {
		args = append(args, strings.ReplaceAll(arg, "%s", imagePath))
	}

	if cmd.Animated {
		transition, ok := swwwTransitions[effect]
		if !ok {
			transition = swwwTransitions[domain.TransitionFade]
		}
		args = append(args, "--transition-type", transition)
		if d := effect.Duration(); d > 0 {
			args = append(args, "--transition-duration", strconv.FormatFloat(d.Seconds(), 'f', -1, 64))
		}
	}
	return args
}

// SetWallpaper sets the desktop wallpaper to the specified image
func (e *LinuxExecutor) SetWallpaper(ctx context.Context, imagePath string, effect domain.TransitionEffect) error {
	args := buildArgs(e.command, imagePath, effect)

	e.logger.Debug("Setting wallpaper",
		zap.String("command", e.command.Binary),
		zap.Strings("args", args),
		zap.String("path", imagePath))

	output, err := e.run(ctx, e.command.Binary, args...)
	if err != nil {
		return fmt.Errorf("failed to set wallpaper with %s: %w (output: %s)",
			e.command.Name, err, string(output))
	}

	e.logger.Info("Wallpaper set successfully",
		zap.String("command", e.command.Name),
		zap.String("path", imagePath),
		zap.String("effect", string(effect)))

	return nil
}

// GetCurrentWallpaper asks the active setter which image it is displaying
func (e *LinuxExecutor) GetCurrentWallpaper(ctx context.Context) (string, error) {
	if len(e.command.Query) == 0 {
		return "", fmt.Errorf("wallpaper query not supported by %s", e.command.Name)
	}

	output, err := e.run(ctx, e.command.Binary, e.command.Query...)
	if err != nil {
		return "", fmt.Errorf("failed to query wallpaper with %s: %w", e.command.Name, err)
	}

	path, err := parseQuery(e.command.Name, string(output))
	if err != nil {
		return "", err
	}
	return path, nil
}

// parseQuery extracts the first image path from a setter's query output
func parseQuery(name, output string) (string, error) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var path string
		switch name {
		case "swww":
			// eDP-1: 1920x1080, scale: 1, currently displaying: image: /path/to/img.jpg
			if _, after, ok := strings.Cut(line, "image: "); ok {
				path = after
			}
		case "hyprpaper":
			// eDP-1 = /path/to/img.jpg
			if _, after, ok := strings.Cut(line, " = "); ok {
				path = after
			}
		case "gnome":
			// 'file:///path/to/img.jpg'
			path = strings.TrimPrefix(strings.Trim(line, "'\""), "file://")
		}

		if path = strings.TrimSpace(path); path != "" {
			return path, nil
		}
	}
	return "", errors.New("no wallpaper reported")
}
