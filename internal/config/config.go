package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

const (
	appName        = "reverie"
	envPrefix      = "REVERIE"
	keyringService = "reverie"

	defaultMode = "blur"
)

// Config keys
const (
	KeyOutputDir         = "output_dir"
	KeyMode              = "mode"
	KeySettingsFile      = "settings_file"
	KeyImageCount        = "image_count"
	KeyHTTPTimeout       = "http.timeout"
	KeyHTTPRate          = "http.rate"
	KeyProbeTimeout      = "probe.timeout"
	KeyProbeConcurrency  = "probe.concurrency"
	KeyLocalDir          = "local_dir"
	KeyGitHubToken       = "github.token"
	KeyWeatherAPIKey     = "weather.api_key"
	KeyWeatherRefresh    = "weather.refresh"
	KeyAPIAddr           = "api.addr"
	KeyLogLevel          = "log.level"
	KeyLogFile           = "log.file"
	KeyFollowScreenSaver = "follow_screensaver"
	KeyRestoreOnExit     = "restore_on_exit"
)

// NewViper builds the layered configuration: defaults, then the optional YAML file, then REVERIE_* env vars.
// An empty file looks for config.yaml in the XDG config directory.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		file = os.Getenv(envPrefix + "_CONFIG")
	}
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, appName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyOutputDir, filepath.Join(xdg.CacheHome, appName))
	v.SetDefault(KeyMode, defaultMode)
	v.SetDefault(KeySettingsFile, filepath.Join(xdg.ConfigHome, appName, "settings.json"))
	v.SetDefault(KeyImageCount, 10)
	v.SetDefault(KeyHTTPTimeout, 10*time.Second)
	v.SetDefault(KeyHTTPRate, 8.0)
	v.SetDefault(KeyProbeTimeout, 10*time.Second)
	v.SetDefault(KeyProbeConcurrency, 4)
	v.SetDefault(KeyLocalDir, "")
	v.SetDefault(KeyGitHubToken, "")
	v.SetDefault(KeyWeatherAPIKey, "")
	v.SetDefault(KeyWeatherRefresh, 30*time.Minute)
	v.SetDefault(KeyAPIAddr, "127.0.0.1:7878")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyFollowScreenSaver, false)
	v.SetDefault(KeyRestoreOnExit, true)
}

// AppConfig holds application configuration
type AppConfig struct {
	logger *zap.Logger
	v      *viper.Viper
}

// NewAppConfig creates a new application configuration instance
func NewAppConfig(logger *zap.Logger, v *viper.Viper) *AppConfig {
	c := &AppConfig{logger: logger, v: v}

	logger.Info("Configuration loaded",
		zap.String("file", v.ConfigFileUsed()),
		zap.String("outputDir", c.GetOutputDir()),
		zap.String("mode", c.GetMode()),
		zap.String("settingsFile", c.SettingsFile()),
		zap.Int("imageCount", c.GetImageCount()),
		zap.Bool("followScreensaver", c.FollowScreenSaver()))

	return c
}

// GetMode returns the current wallpaper render mode
func (c *AppConfig) GetMode() string {
	if m := strings.ToLower(c.v.GetString(KeyMode)); m == "fill" || m == "blur" {
		return m
	}
	return defaultMode
}

// GetOutputDir returns the directory for rendered wallpapers
func (c *AppConfig) GetOutputDir() string {
	return expandPath(c.v.GetString(KeyOutputDir))
}

// GetImageCount returns how many images each load requests
func (c *AppConfig) GetImageCount() int {
	if n := c.v.GetInt(KeyImageCount); n > 0 {
		return n
	}
	return 10
}

func (c *AppConfig) RestoreOnExit() bool     { return c.v.GetBool(KeyRestoreOnExit) }
func (c *AppConfig) FollowScreenSaver() bool { return c.v.GetBool(KeyFollowScreenSaver) }

// SettingsFile is where the user settings object is persisted
func (c *AppConfig) SettingsFile() string {
	return expandPath(c.v.GetString(KeySettingsFile))
}

func (c *AppConfig) HTTPTimeout() time.Duration  { return c.v.GetDuration(KeyHTTPTimeout) }
func (c *AppConfig) HTTPRate() float64           { return c.v.GetFloat64(KeyHTTPRate) }
func (c *AppConfig) ProbeTimeout() time.Duration { return c.v.GetDuration(KeyProbeTimeout) }
func (c *AppConfig) ProbeConcurrency() int       { return c.v.GetInt(KeyProbeConcurrency) }
func (c *AppConfig) LocalDir() string            { return expandPath(c.v.GetString(KeyLocalDir)) }

// WeatherRefresh is how often the weather report is refreshed
func (c *AppConfig) WeatherRefresh() time.Duration {
	return c.v.GetDuration(KeyWeatherRefresh)
}

func (c *AppConfig) APIAddr() string  { return c.v.GetString(KeyAPIAddr) }
func (c *AppConfig) LogLevel() string { return c.v.GetString(KeyLogLevel) }
func (c *AppConfig) LogFile() string  { return expandPath(c.v.GetString(KeyLogFile)) }

// GitHubToken returns the token used for GitHub listings, from config/env or the OS keyring
func (c *AppConfig) GitHubToken() string {
	return c.secret(KeyGitHubToken, "github")
}

// WeatherAPIKey returns the OpenWeatherMap key, from config/env or the OS keyring
func (c *AppConfig) WeatherAPIKey() string {
	return c.secret(KeyWeatherAPIKey, "openweathermap")
}

func (c *AppConfig) secret(key, user string) string {
	if v := c.v.GetString(key); v != "" {
		return v
	}

	value, err := keyring.Get(keyringService, user)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			c.logger.Debug("Keyring unavailable", zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return value
}

// StoreSecret saves a secret in the OS keyring under the reverie service
func StoreSecret(user, value string) error {
	return keyring.Set(keyringService, user, value)
}

// expandPath resolves environment variables and a leading ~
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}
