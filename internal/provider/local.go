package provider

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/fetcher"
	"github.com/genricoloni/reverie/internal/random"
	"go.uber.org/zap"
)

// Local serves images from an on-disk directory or from the bundled backgrounds.
// When neither yields images it delegates to the fallback provider.
type Local struct {
	logger     *zap.Logger
	bundle     fs.FS
	fallback   domain.Provider
	rng        random.Rand
	defaultDir string
}

// NewLocal creates the Local provider. bundle may be nil.
func NewLocal(logger *zap.Logger, bundle fs.FS, fallback domain.Provider, rng random.Rand) *Local {
	return &Local{logger: logger, bundle: bundle, fallback: fallback, rng: rng}
}

// WithDefaultDir makes the bare "local" keyword list dir before the bundle
func (l *Local) WithDefaultDir(dir string) *Local {
	l.defaultDir = dir
	return l
}

func (l *Local) Kind() domain.ProviderKind { return domain.ProviderLocal }

// FetchImages lists local images and delegates to the fallback provider when there are none
func (l *Local) FetchImages(ctx context.Context, descriptor string, count int) []domain.ImageRecord {
	if count <= 0 {
		return []domain.ImageRecord{}
	}

	images := l.ListImages(ctx, descriptor, count)
	if len(images) == 0 {
		l.logger.Warn("No local images found, falling back to Picsum", zap.String("descriptor", descriptor))
		return l.fallback.FetchImages(ctx, descriptor, count)
	}
	return images
}

// ListImages samples the directory named by a file://, ./ or ../ descriptor, then the bundle.
// It never falls back.
func (l *Local) ListImages(_ context.Context, descriptor string, count int) []domain.ImageRecord {
	if count <= 0 {
		return []domain.ImageRecord{}
	}

	var candidates []domain.ImageRecord
	dir := localDir(descriptor)
	if dir == "" {
		dir = l.defaultDir
	}
	if dir != "" {
		candidates = l.listDir(dir)
	}
	if len(candidates) == 0 {
		candidates = l.listBundle()
	}

	if len(candidates) == 0 {
		return []domain.ImageRecord{}
	}

	picked := random.Sample(len(candidates), count, l.rng)
	images := make([]domain.ImageRecord, 0, len(picked))
	for _, idx := range picked {
		images = append(images, candidates[idx])
	}
	return images
}

// localDir returns the filesystem directory a descriptor points at, or "" for the bundle keyword
func localDir(descriptor string) string {
	d := strings.TrimSpace(descriptor)
	switch {
	case strings.HasPrefix(strings.ToLower(d), "file://"):
		u, err := url.Parse(d)
		if err != nil {
			return ""
		}
		return u.Path
	case strings.HasPrefix(d, "./"), strings.HasPrefix(d, "../"):
		return d
	default:
		return ""
	}
}

func (l *Local) listDir(dir string) []domain.ImageRecord {
	entries, err := os.ReadDir(dir)
	if err != nil {
		l.logger.Warn("Failed to read local image directory", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}

	var images []domain.ImageRecord
	for _, entry := range entries {
		if entry.IsDir() || !isImageName(entry.Name()) {
			continue
		}
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(abs, entry.Name()))}
		images = append(images, domain.ImageRecord{URL: u.String(), Filename: entry.Name()})
	}
	return images
}

func (l *Local) listBundle() []domain.ImageRecord {
	if l.bundle == nil {
		return nil
	}
	names, err := fs.Glob(l.bundle, "*")
	if err != nil {
		l.logger.Warn("Failed to list bundled images", zap.Error(err))
		return nil
	}
	sort.Strings(names)

	var images []domain.ImageRecord
	for _, name := range names {
		if !isImageName(name) {
			continue
		}
		images = append(images, domain.ImageRecord{URL: fetcher.BundleScheme + name, Filename: name})
	}
	return images
}
