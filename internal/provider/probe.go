package provider

import (
	"context"
	"fmt"

	"github.com/genricoloni/reverie/internal/domain"
)

const _testImageCount = 3

// TestResult is the outcome of a repository reachability check
type TestResult struct {
	Success    bool                `json:"success" yaml:"success"`
	Type       domain.ProviderKind `json:"type" yaml:"type"`
	Message    string              `json:"message" yaml:"message"`
	ImageCount int                 `json:"imageCount,omitempty" yaml:"imageCount,omitempty"`
}

// DirectSource fetches from the provider a descriptor resolves to, without any fallback
type DirectSource interface {
	GetImagesDirect(ctx context.Context, descriptor string, count int) []domain.ImageRecord
}

// TestRepository fetches a few images from descriptor and probes the first one.
// Fallback images never count as success.
func TestRepository(ctx context.Context, src DirectSource, pre domain.Preloader, descriptor string) TestResult {
	kind := Detect(descriptor)

	images := src.GetImagesDirect(ctx, descriptor, _testImageCount)
	if len(images) == 0 {
		return TestResult{Type: kind, Message: "repository returned no images"}
	}

	if !pre.Probe(ctx, images[0].URL) {
		return TestResult{Type: kind, Message: "failed to load test image from repository"}
	}

	return TestResult{
		Success:    true,
		Type:       kind,
		Message:    fmt.Sprintf("repository is working, loaded %d images", len(images)),
		ImageCount: len(images),
	}
}
