package provider

import (
	"context"
	"fmt"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/random"
	"go.uber.org/zap"
)

const (
	_picsumBaseURL = "https://picsum.photos"
	_picsumMaxID   = 1000
)

// Picsum generates templated picsum.photos URLs without any network round-trip.
// It is the universal fallback provider.
type Picsum struct {
	logger *zap.Logger
	rng    random.Rand
	res    *domain.ScreenResolution
}

// NewPicsum creates the Picsum provider. A nil resolution means 1920x1080.
func NewPicsum(logger *zap.Logger, rng random.Rand, res *domain.ScreenResolution) *Picsum {
	return &Picsum{logger: logger, rng: rng, res: resolutionOrDefault(res)}
}

func (p *Picsum) Kind() domain.ProviderKind { return domain.ProviderPicsum }

// FetchImages returns count records with ids in [1,1000], distinct while count <= 1000
func (p *Picsum) FetchImages(_ context.Context, _ string, count int) []domain.ImageRecord {
	if count <= 0 {
		return []domain.ImageRecord{}
	}

	ids := random.Sample(_picsumMaxID, count, p.rng)
	for len(ids) < count {
		ids = append(ids, p.rng.IntN(_picsumMaxID))
	}

	images := make([]domain.ImageRecord, 0, count)
	for _, idx := range ids {
		id := idx + 1
		images = append(images, domain.ImageRecord{
			URL:      fmt.Sprintf("%s/%d/%d?random=%d", _picsumBaseURL, p.res.Width, p.res.Height, id),
			Filename: fmt.Sprintf("picsum_%d.jpg", id),
		})
	}

	p.logger.Debug("Picsum images generated", zap.Int("count", len(images)))
	return images
}

func resolutionOrDefault(res *domain.ScreenResolution) *domain.ScreenResolution {
	if res == nil || res.Width <= 0 || res.Height <= 0 {
		return &domain.ScreenResolution{Width: 1920, Height: 1080}
	}
	return res
}
