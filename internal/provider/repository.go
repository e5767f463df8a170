package provider

import (
	"context"
	"fmt"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/metrics"
	"go.uber.org/zap"
)

// Repository dispatches a descriptor to its provider and falls back to the default
// provider when that provider panics or returns nothing.
type Repository struct {
	logger    *zap.Logger
	providers map[domain.ProviderKind]domain.Provider
	fallback  domain.Provider
	metrics   *metrics.Metrics
}

// NewRepository creates the dispatcher. fallback also serves picsum descriptors
// unless another provider registers that kind.
func NewRepository(logger *zap.Logger, m *metrics.Metrics, fallback domain.Provider, providers ...domain.Provider) *Repository {
	r := &Repository{
		logger:    logger,
		providers: make(map[domain.ProviderKind]domain.Provider, len(providers)+1),
		fallback:  fallback,
		metrics:   m,
	}
	r.providers[fallback.Kind()] = fallback
	for _, p := range providers {
		r.providers[p.Kind()] = p
	}
	return r
}

// GetImages never fails: the worst case is an empty slice
func (r *Repository) GetImages(ctx context.Context, descriptor string, count int) []domain.ImageRecord {
	if count <= 0 {
		return []domain.ImageRecord{}
	}

	kind := Detect(descriptor)
	p, ok := r.providers[kind]
	if !ok {
		r.logger.Warn("No provider registered for kind, using fallback", zap.String("kind", string(kind)))
		p = r.fallback
	}

	r.logger.Info("Loading images from repository",
		zap.String("descriptor", descriptor),
		zap.String("kind", string(kind)),
		zap.Int("count", count))

	images, err := r.safeFetch(ctx, p, descriptor, count)
	if err != nil {
		r.logger.Error("Provider failed", zap.String("kind", string(kind)), zap.Error(err))
	}

	if len(images) > 0 || p == r.fallback {
		return images
	}

	r.logger.Info("Falling back to default provider",
		zap.String("from", string(kind)),
		zap.String("to", string(r.fallback.Kind())))
	r.metrics.Fallback()

	images, err = r.safeFetch(ctx, r.fallback, descriptor, count)
	if err != nil {
		r.logger.Error("Fallback provider failed", zap.Error(err))
	}
	return images
}

// ownLister is implemented by providers that fall back internally; ListImages skips that step
type ownLister interface {
	ListImages(ctx context.Context, descriptor string, count int) []domain.ImageRecord
}

// GetImagesDirect asks only the provider the descriptor resolves to and never falls back,
// so an empty result means the repository itself produced nothing.
func (r *Repository) GetImagesDirect(ctx context.Context, descriptor string, count int) []domain.ImageRecord {
	if count <= 0 {
		return []domain.ImageRecord{}
	}

	kind := Detect(descriptor)
	p, ok := r.providers[kind]
	if !ok {
		r.logger.Warn("No provider registered for kind", zap.String("kind", string(kind)))
		return []domain.ImageRecord{}
	}

	if l, ok := p.(ownLister); ok {
		p = listerProvider{Provider: p, lister: l}
	}
	images, err := r.safeFetch(ctx, p, descriptor, count)
	if err != nil {
		r.logger.Error("Provider failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	return images
}

// listerProvider routes FetchImages to ListImages
type listerProvider struct {
	domain.Provider
	lister ownLister
}

func (p listerProvider) FetchImages(ctx context.Context, descriptor string, count int) []domain.ImageRecord {
	return p.lister.ListImages(ctx, descriptor, count)
}

// safeFetch converts a provider panic into an error and an empty result
func (r *Repository) safeFetch(ctx context.Context, p domain.Provider, descriptor string, count int) (images []domain.ImageRecord, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.ProviderPanic(string(p.Kind()))
			images = []domain.ImageRecord{}
			err = fmt.Errorf("provider %s panicked: %v", p.Kind(), rec)
		}
	}()

	images = p.FetchImages(ctx, descriptor, count)
	if images == nil {
		images = []domain.ImageRecord{}
	}
	r.metrics.ProviderFetch(string(p.Kind()), len(images))
	return images, nil
}
