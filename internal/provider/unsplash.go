package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/random"
	"go.uber.org/zap"
)

const _unsplashBaseURL = "https://source.unsplash.com"

var _unsplashTopics = []string{"nature", "landscape", "space", "abstract", "architecture"}

// Unsplash builds topic-based Unsplash Source URLs with a cache-busting signature
type Unsplash struct {
	logger *zap.Logger
	rng    random.Rand
	res    *domain.ScreenResolution
	now    func() time.Time
}

// NewUnsplash creates the Unsplash provider
func NewUnsplash(logger *zap.Logger, rng random.Rand, res *domain.ScreenResolution) *Unsplash {
	return &Unsplash{logger: logger, rng: rng, res: resolutionOrDefault(res), now: time.Now}
}

func (u *Unsplash) Kind() domain.ProviderKind { return domain.ProviderUnsplash }

// FetchImages picks a random topic per image; sig is the current unix millis plus the loop index
func (u *Unsplash) FetchImages(_ context.Context, _ string, count int) []domain.ImageRecord {
	if count <= 0 {
		return []domain.ImageRecord{}
	}

	base := u.now().UnixMilli()
	images := make([]domain.ImageRecord, 0, count)
	for i := 0; i < count; i++ {
		topic := _unsplashTopics[u.rng.IntN(len(_unsplashTopics))]
		images = append(images, domain.ImageRecord{
			URL:      fmt.Sprintf("%s/%dx%d/?%s&sig=%d", _unsplashBaseURL, u.res.Width, u.res.Height, topic, base+int64(i)),
			Filename: fmt.Sprintf("unsplash_%s_%d.jpg", topic, i),
		})
	}

	u.logger.Debug("Unsplash images generated", zap.Int("count", len(images)))
	return images
}
