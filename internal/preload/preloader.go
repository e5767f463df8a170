// Package preload probes candidate images before they enter the rotation.
package preload

import (
	"bytes"
	"context"
	_ "image/gif"  // GIF format support
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support
	"time"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/metrics"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // WebP format support
	"golang.org/x/sync/errgroup"
)

const (
	_defaultConcurrency = 4
	_defaultTimeout     = 10 * time.Second
)

// Options bounds the probing work
type Options struct {
	Concurrency int
	Timeout     time.Duration
}

// Preloader fetches and decodes every image once, recording the outcome in ImageRecord.Loaded
type Preloader struct {
	logger  *zap.Logger
	fetcher domain.Fetcher
	metrics *metrics.Metrics
	opts    Options
}

// NewPreloader creates a preloader; zero options take defaults
func NewPreloader(logger *zap.Logger, fetcher domain.Fetcher, m *metrics.Metrics, opts Options) *Preloader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = _defaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = _defaultTimeout
	}
	return &Preloader{logger: logger, fetcher: fetcher, metrics: m, opts: opts}
}

// Preload probes all images concurrently and returns them in input order.
// Failed probes leave Loaded=false; no image is ever dropped.
func (p *Preloader) Preload(ctx context.Context, images []domain.ImageRecord) []domain.ImageRecord {
	out := make([]domain.ImageRecord, len(images))
	copy(out, images)
	if len(out) == 0 {
		return out
	}

	// probes never return errors, so the group context is only cancelled by the parent
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for i := range out {
		g.Go(func() error {
			// each goroutine writes only its own slot
			out[i].Loaded = p.Probe(gctx, out[i].URL)
			return nil
		})
	}
	_ = g.Wait()

	loaded := 0
	for _, img := range out {
		if img.Loaded {
			loaded++
		}
	}
	p.logger.Info("Preload complete", zap.Int("images", len(out)), zap.Int("loaded", loaded))
	return out
}

// Probe fetches url and checks that it decodes as an image
func (p *Preloader) Probe(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	data, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		p.logger.Debug("Preload fetch failed", zap.String("url", url), zap.Error(err))
		p.metrics.Probe(false)
		return false
	}

	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		p.logger.Debug("Preload decode failed", zap.String("url", url), zap.Error(err))
		p.metrics.Probe(false)
		return false
	}

	p.metrics.Probe(true)
	return true
}
