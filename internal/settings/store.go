package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/genricoloni/reverie/internal/domain"
	"github.com/gofrs/flock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const _watchDebounce = 200 * time.Millisecond

// FileStore persists Settings as a flat JSON object
type FileStore struct {
	logger   *zap.Logger
	path     string
	lock     *flock.Flock
	debounce time.Duration
}

// NewFileStore creates a store backed by path. The file is created on first Save.
func NewFileStore(logger *zap.Logger, path string) *FileStore {
	return &FileStore{
		logger:   logger,
		path:     filepath.Clean(path),
		lock:     flock.New(filepath.Clean(path) + ".lock"),
		debounce: _watchDebounce,
	}
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored settings merged over defaults
func (s *FileStore) Load() (domain.Settings, error) {
	raw, err := s.readRaw()
	if err != nil {
		return domain.DefaultSettings(), err
	}
	return decode(raw)
}

// Save shallow-merges partial over the stored object, persists it and returns the merged settings.
// Keys the daemon does not know are kept as-is.
func (s *FileStore) Save(partial map[string]any) (_ domain.Settings, err error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return domain.Settings{}, fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return domain.Settings{}, fmt.Errorf("failed to lock settings: %w", err)
	}
	defer func() {
		err = multierr.Append(err, s.lock.Unlock())
	}()

	raw, err := s.readRaw()
	if err != nil {
		return domain.Settings{}, err
	}
	for key, value := range partial {
		encoded, err := json.Marshal(value)
		if err != nil {
			return domain.Settings{}, fmt.Errorf("failed to encode %q: %w", key, err)
		}
		raw[key] = encoded
	}

	merged, err := decode(raw)
	if err != nil {
		return domain.Settings{}, err
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return domain.Settings{}, fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return domain.Settings{}, err
	}

	s.logger.Info("Settings saved",
		zap.String("path", s.path),
		zap.Int("keys", len(partial)))
	return merged, nil
}

// Reset removes the stored settings so Load returns defaults
func (s *FileStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	s.logger.Info("Settings reset to defaults", zap.String("path", s.path))
	return nil
}

// Watch emits the merged settings whenever the file changes. The channel closes when ctx is done.
func (s *FileStore) Watch(ctx context.Context) (<-chan domain.Settings, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// the directory is watched since saves replace the file by rename
	if err := watcher.Add(dir); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to watch %s: %w", dir, err), watcher.Close())
	}

	out := make(chan domain.Settings, 1)
	go s.watchLoop(ctx, watcher, out)
	return out, nil
}

func (s *FileStore) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- domain.Settings) {
	defer close(out)
	defer watcher.Close()

	timer := time.NewTimer(s.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			timer.Reset(s.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Settings watcher error", zap.Error(err))

		case <-timer.C:
			current, err := s.Load()
			if err != nil {
				s.logger.Warn("Ignoring unreadable settings change", zap.Error(err))
				continue
			}
			select {
			case out <- current:
			case <-ctx.Done():
				return
			}
		}
	}
}

// readRaw returns the stored object keyed by field. A missing file is an empty object.
func (s *FileStore) readRaw() (map[string]json.RawMessage, error) {
	raw := map[string]json.RawMessage{}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", s.path, err)
	}
	return raw, nil
}

func decode(raw map[string]json.RawMessage) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	data, err := json.Marshal(raw)
	if err != nil {
		return settings, fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return domain.DefaultSettings(), fmt.Errorf("invalid settings: %w", err)
	}
	return Normalize(settings), nil
}

// Normalize clamps out-of-range values back to their defaults
func Normalize(s domain.Settings) domain.Settings {
	defaults := domain.DefaultSettings()
	if s.ImageChangeInterval < 1 {
		s.ImageChangeInterval = defaults.ImageChangeInterval
	}
	if s.ImageRepository == "" {
		s.ImageRepository = defaults.ImageRepository
	}
	s.ImageDisplayOrder = string(s.Order())
	s.ImageTransitionEffect = string(s.Transition())
	if len(s.WeatherCities) == 0 {
		s.WeatherCities = defaults.WeatherCities
	}
	if s.CurrentCityIndex < 0 || s.CurrentCityIndex >= len(s.WeatherCities) {
		s.CurrentCityIndex = 0
	}
	if s.ForecastDays < 1 {
		s.ForecastDays = defaults.ForecastDays
	}
	return s
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	err = multierr.Append(err, tmp.Close())
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
