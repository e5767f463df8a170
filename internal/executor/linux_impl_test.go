//go:build linux

package executor

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/genricoloni/reverie/internal/domain"
	"go.uber.org/zap"
)

func commandNamed(t *testing.T, name string) WallpaperCommand {
	t.Helper()
	for _, cmd := range wallpaperCommands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("no command named %s", name)
	return WallpaperCommand{}
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name    string
		command string
		effect  domain.TransitionEffect
		want    []string
	}{
		{
			name:    "swww fade",
			command: "swww",
			effect:  domain.TransitionFade,
			want:    []string{"img", "/tmp/w.jpg", "--transition-type", "fade", "--transition-duration", "1"},
		},
		{
			name:    "swww slide",
			command: "swww",
			effect:  domain.TransitionSlide,
			want:    []string{"img", "/tmp/w.jpg", "--transition-type", "left", "--transition-duration", "0.5"},
		},
		{
			name:    "swww flip",
			command: "swww",
			effect:  domain.TransitionFlip,
			want:    []string{"img", "/tmp/w.jpg", "--transition-type", "wave", "--transition-duration", "0.8"},
		},
		{
			name:    "swww none",
			command: "swww",
			effect:  domain.TransitionNone,
			want:    []string{"img", "/tmp/w.jpg", "--transition-type", "none"},
		},
		{
			name:    "gnome uri",
			command: "gnome",
			effect:  domain.TransitionFade,
			want:    []string{"set", "org.gnome.desktop.background", "picture-uri-dark", "file:///tmp/w.jpg"},
		},
		{
			name:    "hyprpaper all monitors",
			command: "hyprpaper",
			effect:  domain.TransitionZoom,
			want:    []string{"hyprpaper", "wallpaper", ",/tmp/w.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildArgs(commandNamed(t, tt.command), "/tmp/w.jpg", tt.effect)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		command string
		output  string
		want    string
		wantErr bool
	}{
		{
			name:    "swww",
			command: "swww",
			output:  "eDP-1: 1920x1080, scale: 1, currently displaying: image: /home/u/pics/a.jpg\n",
			want:    "/home/u/pics/a.jpg",
		},
		{
			name:    "swww solid color",
			command: "swww",
			output:  "eDP-1: 1920x1080, scale: 1, currently displaying: color: 000000\n",
			wantErr: true,
		},
		{
			name:    "hyprpaper",
			command: "hyprpaper",
			output:  "DP-2 = /home/u/pics/b.png\nDP-3 = /home/u/pics/c.png\n",
			want:    "/home/u/pics/b.png",
		},
		{
			name:    "gnome",
			command: "gnome",
			output:  "'file:///usr/share/backgrounds/d.jpg'\n",
			want:    "/usr/share/backgrounds/d.jpg",
		},
		{
			name:    "empty",
			command: "gnome",
			output:  "\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQuery(tt.command, tt.output)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLinuxExecutor_SetWallpaper(t *testing.T) {
	var gotName string
	var gotArgs []string
	e := &LinuxExecutor{
		logger:  zap.NewNop(),
		command: commandNamed(t, "swww"),
		run: func(_ context.Context, name string, args ...string) ([]byte, error) {
			gotName, gotArgs = name, args
			return nil, nil
		},
	}

	if err := e.SetWallpaper(context.Background(), "/tmp/w.jpg", domain.TransitionZoom); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotName != "swww" {
		t.Errorf("expected swww, got %s", gotName)
	}
	want := []string{"img", "/tmp/w.jpg", "--transition-type", "grow", "--transition-duration", "1"}
	if !reflect.DeepEqual(gotArgs, want) {
		t.Errorf("expected %v, got %v", want, gotArgs)
	}
}

func TestLinuxExecutor_SetWallpaperFailure(t *testing.T) {
	e := &LinuxExecutor{
		logger:  zap.NewNop(),
		command: commandNamed(t, "feh"),
		run: func(context.Context, string, ...string) ([]byte, error) {
			return []byte("cannot open display"), errors.New("exit status 1")
		},
	}

	err := e.SetWallpaper(context.Background(), "/tmp/w.jpg", domain.TransitionFade)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "cannot open display") {
		t.Errorf("expected command output in error, got %v", err)
	}
}

func TestLinuxExecutor_GetCurrentWallpaper(t *testing.T) {
	e := &LinuxExecutor{
		logger:  zap.NewNop(),
		command: commandNamed(t, "gnome"),
		run: func(_ context.Context, _ string, args ...string) ([]byte, error) {
			if args[0] != "get" {
				t.Errorf("expected a get query, got %v", args)
			}
			return []byte("'file:///home/u/old.jpg'\n"), nil
		},
	}

	got, err := e.GetCurrentWallpaper(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/home/u/old.jpg" {
		t.Errorf("expected /home/u/old.jpg, got %s", got)
	}

	e.command = commandNamed(t, "feh")
	if _, err := e.GetCurrentWallpaper(context.Background()); err == nil {
		t.Error("expected unsupported query error for feh")
	}
}
