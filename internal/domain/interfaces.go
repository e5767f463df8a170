package domain

import "context"

//go:generate mockgen -destination=mocks/domain_mock.go -package=mocks github.com/genricoloni/reverie/internal/domain Fetcher,Processor,Executor,Preloader,ImageSource,WeatherSource

// Provider turns a repository descriptor into candidate images.
// Implementations never return errors: failures are logged and yield an empty slice.
type Provider interface {
	// Kind reports which descriptor family the provider serves
	Kind() ProviderKind

	// FetchImages returns up to count records, all with Loaded=false
	FetchImages(ctx context.Context, descriptor string, count int) []ImageRecord
}

// ImageSource resolves any descriptor to images, falling back to the default provider
type ImageSource interface {
	GetImages(ctx context.Context, descriptor string, count int) []ImageRecord
}

// Preloader probes images ahead of display
type Preloader interface {
	// Preload returns a copy of images with Loaded set per probe outcome.
	// Output order and length always match the input.
	Preload(ctx context.Context, images []ImageRecord) []ImageRecord

	// Probe reports whether a single image can be fetched and decoded
	Probe(ctx context.Context, url string) bool
}

// Monitor watches screensaver activity
type Monitor interface {
	// Start begins monitoring and blocks until ctx is cancelled or an error occurs
	Start(ctx context.Context) error

	// Stop gracefully stops the monitor
	Stop(ctx context.Context) error

	// Events emits an ActivityEvent whenever the screensaver state changes
	Events() <-chan ActivityEvent
}

// Processor renders fetched image bytes into a wallpaper file
type Processor interface {
	// Generate renders imgData in the given mode and returns the written file path
	Generate(imgData []byte, mode string) (string, error)

	// DefaultBackground writes the static idle background and returns its path
	DefaultBackground() (string, error)
}

// Fetcher retrieves remote or local resources
type Fetcher interface {
	// Fetch downloads or reads image data from a URL or local path
	Fetch(ctx context.Context, url string) ([]byte, error)

	// GetJSON issues a GET expecting a JSON body and returns it raw
	GetJSON(ctx context.Context, url string) ([]byte, error)
}

// Executor applies a wallpaper to the desktop
type Executor interface {
	// SetWallpaper sets the desktop wallpaper, animating with effect where supported
	SetWallpaper(ctx context.Context, imagePath string, effect TransitionEffect) error

	// GetCurrentWallpaper retrieves the path to the currently set wallpaper
	// Returns an error if the operation is not supported or fails
	GetCurrentWallpaper(ctx context.Context) (string, error)
}

// SettingsStore persists the user settings object
type SettingsStore interface {
	// Load returns stored settings merged over defaults
	Load() (Settings, error)

	// Save shallow-merges partial over the stored object and returns the merged result
	Save(partial map[string]any) (Settings, error)

	// Reset removes stored settings, reverting to defaults
	Reset() error

	// Watch emits the merged settings whenever the backing store changes
	Watch(ctx context.Context) (<-chan Settings, error)
}

// WeatherSource exposes the latest weather report, if any
type WeatherSource interface {
	Latest() (WeatherData, bool)
}

// Config defines the interface for application configuration
type Config interface {
	// GetMode returns the wallpaper render mode ("fill" or "blur")
	GetMode() string

	// GetOutputDir returns the directory for rendered wallpapers
	GetOutputDir() string

	// GetImageCount returns how many images a load requests
	GetImageCount() int

	// RestoreOnExit reports whether the original wallpaper is restored on shutdown
	RestoreOnExit() bool

	// FollowScreenSaver reports whether rotation pauses while the screensaver is inactive
	FollowScreenSaver() bool
}
