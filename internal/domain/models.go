package domain

import (
	"strings"
	"time"
)

// ImageRecord is a single candidate background produced by a provider.
type ImageRecord struct {
	// URL is the fetchable address (http(s)://, file:// or bundle://)
	URL string `json:"url" yaml:"url"`
	// Filename is a display label, not guaranteed unique
	Filename string `json:"filename" yaml:"filename"`
	// Loaded reports whether the preload probe succeeded
	Loaded bool `json:"loaded" yaml:"loaded"`
}

// ProviderKind identifies the image source family a descriptor refers to
type ProviderKind string

const (
	ProviderPicsum   ProviderKind = "picsum"
	ProviderUnsplash ProviderKind = "unsplash"
	ProviderGitHub   ProviderKind = "github"
	ProviderLocal    ProviderKind = "local"
	ProviderCustom   ProviderKind = "custom"
)

// OrderMode controls how the rotation walks the image list
type OrderMode string

const (
	// OrderSequential advances through images in list order
	OrderSequential OrderMode = "sequential"
	// OrderRandom walks a shuffled permutation, reshuffled after every pass
	OrderRandom OrderMode = "random"
)

// ParseOrderMode maps a settings value to an OrderMode, defaulting to sequential
func ParseOrderMode(s string) OrderMode {
	if strings.EqualFold(strings.TrimSpace(s), string(OrderRandom)) {
		return OrderRandom
	}
	return OrderSequential
}

// TransitionEffect is the animation used when the visible image changes
type TransitionEffect string

const (
	TransitionFade  TransitionEffect = "fade"
	TransitionSlide TransitionEffect = "slide"
	TransitionZoom  TransitionEffect = "zoom"
	TransitionFlip  TransitionEffect = "flip"
	TransitionNone  TransitionEffect = "none"
)

// ParseTransitionEffect maps a settings value to a TransitionEffect.
// Unknown values fall back to fade.
func ParseTransitionEffect(s string) TransitionEffect {
	switch e := TransitionEffect(strings.ToLower(strings.TrimSpace(s))); e {
	case TransitionFade, TransitionSlide, TransitionZoom, TransitionFlip, TransitionNone:
		return e
	default:
		return TransitionFade
	}
}

// Duration returns how long the animation runs before the new image is considered visible
func (t TransitionEffect) Duration() time.Duration {
	switch t {
	case TransitionFade, TransitionZoom:
		return time.Second
	case TransitionSlide:
		return 500 * time.Millisecond
	case TransitionFlip:
		return 800 * time.Millisecond
	default:
		return 0
	}
}

// ScreenResolution holds the display dimensions
type ScreenResolution struct {
	Width  int
	Height int
}

// ActivityEvent reports a change in screensaver activity
type ActivityEvent struct {
	Active bool
	Source string
}

// WeatherData is the subset of a weather report shown in the caption
type WeatherData struct {
	Location    string    `json:"location" yaml:"location"`
	Temperature float64   `json:"temperature" yaml:"temperature"`
	TempMin     float64   `json:"tempMin" yaml:"tempMin"`
	TempMax     float64   `json:"tempMax" yaml:"tempMax"`
	Humidity    int       `json:"humidity" yaml:"humidity"`
	Description string    `json:"description" yaml:"description"`
	Icon        string    `json:"icon" yaml:"icon"`
	Unit        string    `json:"unit" yaml:"unit"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Location is a geographic coordinate pair
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city,omitempty"`
}

// Settings is the flat, persisted user configuration object
type Settings struct {
	ImageRepository       string `json:"imageRepository" yaml:"imageRepository"`
	ImageChangeInterval   int    `json:"imageChangeInterval" yaml:"imageChangeInterval"`
	ImageTransitionEffect string `json:"imageTransitionEffect" yaml:"imageTransitionEffect"`
	ImageDisplayOrder     string `json:"imageDisplayOrder" yaml:"imageDisplayOrder"`

	WeatherEnabled   bool     `json:"weatherEnabled" yaml:"weatherEnabled"`
	WeatherLocation  string   `json:"weatherLocation" yaml:"weatherLocation"`
	WeatherCities    []string `json:"weatherCities" yaml:"weatherCities"`
	CurrentCityIndex int      `json:"currentCityIndex" yaml:"currentCityIndex"`
	ShowForecast     bool     `json:"showForecast" yaml:"showForecast"`
	ForecastDays     int      `json:"forecastDays" yaml:"forecastDays"`
	TemperatureUnit  string   `json:"temperatureUnit" yaml:"temperatureUnit"`

	TimeFormat   string `json:"timeFormat" yaml:"timeFormat"`
	ShowSeconds  bool   `json:"showSeconds" yaml:"showSeconds"`
	ShowDate     bool   `json:"showDate" yaml:"showDate"`
	DateFormat   string `json:"dateFormat" yaml:"dateFormat"`
	Language     string `json:"language" yaml:"language"`
	KeepScreenOn bool   `json:"keepScreenOn" yaml:"keepScreenOn"`
}

// DefaultSettings returns the hardcoded defaults stored settings are merged over
func DefaultSettings() Settings {
	return Settings{
		ImageRepository:       "picsum",
		ImageChangeInterval:   5,
		ImageTransitionEffect: string(TransitionFade),
		ImageDisplayOrder:     string(OrderSequential),
		WeatherEnabled:        true,
		WeatherLocation:       "auto",
		WeatherCities:         []string{"auto"},
		ShowForecast:          true,
		ForecastDays:          5,
		TemperatureUnit:       "celsius",
		TimeFormat:            "24h",
		ShowSeconds:           true,
		ShowDate:              true,
		DateFormat:            "DD/MM/YYYY",
		Language:              "en",
		KeepScreenOn:          true,
	}
}

// Interval converts ImageChangeInterval (minutes) to a duration, treating values below 1 as the default
func (s Settings) Interval() time.Duration {
	minutes := s.ImageChangeInterval
	if minutes < 1 {
		minutes = DefaultSettings().ImageChangeInterval
	}
	return time.Duration(minutes) * time.Minute
}

// Order returns the parsed display order
func (s Settings) Order() OrderMode {
	return ParseOrderMode(s.ImageDisplayOrder)
}

// Transition returns the parsed transition effect
func (s Settings) Transition() TransitionEffect {
	return ParseTransitionEffect(s.ImageTransitionEffect)
}
