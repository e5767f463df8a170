package monitor

import (
	"image"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// DefaultResolution is used when no display can be queried (headless sessions, CI)
var DefaultResolution = domain.ScreenResolution{Width: 1920, Height: 1080}

// NewScreenResolution detects the primary screen resolution at startup
func NewScreenResolution(logger *zap.Logger) *domain.ScreenResolution {
	n := screenshot.NumActiveDisplays()
	bounds := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		bounds = append(bounds, screenshot.GetDisplayBounds(i))
	}

	res, ok := primaryResolution(bounds)
	if !ok {
		logger.Warn("No usable display detected, using default resolution",
			zap.Int("width", res.Width),
			zap.Int("height", res.Height))
		return &res
	}

	logger.Info("Screen resolution detected",
		zap.Int("displays", n),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height))
	return &res
}

// primaryResolution picks the display at the origin, else the first non-empty one
func primaryResolution(bounds []image.Rectangle) (domain.ScreenResolution, bool) {
	var first *image.Rectangle
	for i := range bounds {
		b := bounds[i]
		if b.Empty() {
			continue
		}
		if b.Min == (image.Point{}) {
			return domain.ScreenResolution{Width: b.Dx(), Height: b.Dy()}, true
		}
		if first == nil {
			first = &bounds[i]
		}
	}
	if first != nil {
		return domain.ScreenResolution{Width: first.Dx(), Height: first.Dy()}, true
	}
	return DefaultResolution, false
}
