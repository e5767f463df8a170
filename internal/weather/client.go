package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the OpenWeatherMap 2.5 API root
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
	// DefaultGeoURL resolves the caller's approximate location from its IP
	DefaultGeoURL = "http://ip-api.com/json/"

	_iconURLFormat = "https://openweathermap.org/img/wn/%s@2x.png"
)

// ErrNoAPIKey is returned when no OpenWeatherMap key is configured
var ErrNoAPIKey = errors.New("weather api key not configured")

// Client queries OpenWeatherMap through the shared fetcher
type Client struct {
	logger  *zap.Logger
	fetcher domain.Fetcher
	apiKey  string
	baseURL string
	geoURL  string
	now     func() time.Time
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL points the client at another weather API root
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithGeoURL points the client at another IP geolocation endpoint
func WithGeoURL(u string) Option {
	return func(c *Client) { c.geoURL = u }
}

// NewClient creates a weather client
func NewClient(logger *zap.Logger, fetcher domain.Fetcher, apiKey string, opts ...Option) *Client {
	c := &Client{
		logger:  logger,
		fetcher: fetcher,
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		geoURL:  DefaultGeoURL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// GetCurrentLocation approximates the host location from its public IP
func (c *Client) GetCurrentLocation(ctx context.Context) (domain.Location, error) {
	body, err := c.fetcher.GetJSON(ctx, c.geoURL)
	if err != nil {
		return domain.Location{}, fmt.Errorf("failed to geolocate: %w", err)
	}

	res := gjson.ParseBytes(body)
	if status := res.Get("status"); status.Exists() && status.String() != "success" {
		return domain.Location{}, fmt.Errorf("geolocation failed: %s", res.Get("message").String())
	}
	lat, lon := res.Get("lat"), res.Get("lon")
	if !lat.Exists() || !lon.Exists() {
		return domain.Location{}, errors.New("geolocation response has no coordinates")
	}

	return domain.Location{
		Latitude:  lat.Float(),
		Longitude: lon.Float(),
		City:      res.Get("city").String(),
	}, nil
}

// GetWeatherByLocation returns current conditions at a coordinate pair
func (c *Client) GetWeatherByLocation(ctx context.Context, loc domain.Location, unit string) (domain.WeatherData, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', 4, 64))
	data, err := c.current(ctx, q, unit)
	if err != nil {
		return data, err
	}
	if data.Location == "" {
		data.Location = loc.City
	}
	return data, nil
}

// GetWeatherByCity returns current conditions for a city name
func (c *Client) GetWeatherByCity(ctx context.Context, city, unit string) (domain.WeatherData, error) {
	q := url.Values{}
	q.Set("q", city)
	data, err := c.current(ctx, q, unit)
	if err != nil {
		return data, err
	}
	if data.Location == "" {
		data.Location = city
	}
	return data, nil
}

// IconURL returns the image address for an OpenWeatherMap icon code
func IconURL(code string) string {
	return fmt.Sprintf(_iconURLFormat, code)
}

func (c *Client) current(ctx context.Context, q url.Values, unit string) (domain.WeatherData, error) {
	if !c.Enabled() {
		return domain.WeatherData{}, ErrNoAPIKey
	}
	q.Set("appid", c.apiKey)
	q.Set("units", unitsParam(unit))

	endpoint := c.baseURL + "/weather?" + q.Encode()
	body, err := c.fetcher.GetJSON(ctx, endpoint)
	if err != nil {
		return domain.WeatherData{}, fmt.Errorf("failed to fetch weather: %w", err)
	}

	res := gjson.ParseBytes(body)
	stats := res.Get("main")
	if !stats.Exists() {
		return domain.WeatherData{}, fmt.Errorf("unexpected weather response: %s", res.Get("message").String())
	}

	return domain.WeatherData{
		Location:    res.Get("name").String(),
		Temperature: math.Round(stats.Get("temp").Float()),
		TempMin:     math.Round(stats.Get("temp_min").Float()),
		TempMax:     math.Round(stats.Get("temp_max").Float()),
		Humidity:    int(stats.Get("humidity").Int()),
		Description: res.Get("weather.0.description").String(),
		Icon:        res.Get("weather.0.icon").String(),
		Unit:        unitSymbol(unit),
		UpdatedAt:   c.now(),
	}, nil
}

func unitsParam(unit string) string {
	if unit == "fahrenheit" {
		return "imperial"
	}
	return "metric"
}

func unitSymbol(unit string) string {
	if unit == "fahrenheit" {
		return "°F"
	}
	return "°C"
}
