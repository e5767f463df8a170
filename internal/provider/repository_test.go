package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/metrics"
	"github.com/genricoloni/reverie/internal/random"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubProvider returns fixed images or panics
type stubProvider struct {
	kind   domain.ProviderKind
	images []domain.ImageRecord
	panic  bool
	calls  int
}

func (s *stubProvider) Kind() domain.ProviderKind { return s.kind }

func (s *stubProvider) FetchImages(context.Context, string, int) []domain.ImageRecord {
	s.calls++
	if s.panic {
		panic("boom")
	}
	return s.images
}

func newPicsumFallback() *Picsum {
	return NewPicsum(zap.NewNop(), random.NewSeeded(1), nil)
}

func TestRepository_Dispatch(t *testing.T) {
	custom := &stubProvider{kind: domain.ProviderCustom, images: []domain.ImageRecord{{URL: "https://x/1.jpg", Filename: "1.jpg"}}}
	r := NewRepository(zap.NewNop(), nil, newPicsumFallback(), custom)

	images := r.GetImages(context.Background(), "https://example.com/api", 1)
	require.Len(t, images, 1)
	assert.Equal(t, "https://x/1.jpg", images[0].URL)
	assert.Equal(t, 1, custom.calls)
}

func TestRepository_FallbackOnPanic(t *testing.T) {
	custom := &stubProvider{kind: domain.ProviderCustom, panic: true}
	m := metrics.New(prometheus.NewRegistry())
	r := NewRepository(zap.NewNop(), m, newPicsumFallback(), custom)

	images := r.GetImages(context.Background(), "https://example.com/api", 3)
	require.Len(t, images, 3)
	for _, img := range images {
		assert.True(t, strings.HasPrefix(img.Filename, "picsum_"))
	}
}

func TestRepository_FallbackOnEmpty(t *testing.T) {
	custom := &stubProvider{kind: domain.ProviderCustom}
	r := NewRepository(zap.NewNop(), nil, newPicsumFallback(), custom)

	images := r.GetImages(context.Background(), "https://example.com/api", 4)
	assert.Len(t, images, 4)
}

func TestRepository_FallbackPanicsToo(t *testing.T) {
	fallback := &stubProvider{kind: domain.ProviderPicsum, panic: true}
	custom := &stubProvider{kind: domain.ProviderCustom}
	r := NewRepository(zap.NewNop(), nil, fallback, custom)

	images := r.GetImages(context.Background(), "https://example.com/api", 2)
	assert.NotNil(t, images)
	assert.Empty(t, images)
}

func TestRepository_NonPositiveCount(t *testing.T) {
	custom := &stubProvider{kind: domain.ProviderCustom}
	r := NewRepository(zap.NewNop(), nil, newPicsumFallback(), custom)

	assert.Empty(t, r.GetImages(context.Background(), "https://example.com/api", 0))
	assert.Equal(t, 0, custom.calls)
}

func TestRepository_GitHubNotFoundFallsBackToPicsum(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/nope/contents/", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer server.Close()

	gh := NewGitHub(zap.NewNop(), newTestGitHubClient(t, server), random.NewSeeded(1))
	assert.Empty(t, gh.FetchImages(context.Background(), "https://github.com/acme/nope", 5))

	r := NewRepository(zap.NewNop(), nil, newPicsumFallback(), gh)
	images := r.GetImages(context.Background(), "https://github.com/acme/nope", 5)
	require.Len(t, images, 5)
	for _, img := range images {
		assert.Regexp(t, `^https://picsum\.photos/1920/1080\?random=\d+$`, img.URL)
	}
}

func TestRepository_GetImagesDirectNeverFallsBack(t *testing.T) {
	empty := &stubProvider{kind: domain.ProviderCustom}
	r := NewRepository(zap.NewNop(), nil, newPicsumFallback(), empty)

	assert.Empty(t, r.GetImagesDirect(context.Background(), "https://example.com/api", 3))
	assert.Equal(t, 1, empty.calls)

	assert.Len(t, r.GetImagesDirect(context.Background(), "picsum", 3), 3)
}

func TestTestRepository_ReportsFailedRepositories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer server.Close()

	picsum := newPicsumFallback()
	gh := NewGitHub(zap.NewNop(), newTestGitHubClient(t, server), random.NewSeeded(1))
	local := NewLocal(zap.NewNop(), nil, picsum, random.NewSeeded(2))
	r := NewRepository(zap.NewNop(), nil, picsum, gh, local)

	tests := []struct {
		name       string
		descriptor string
		wantKind   domain.ProviderKind
	}{
		{name: "github not found", descriptor: "https://github.com/acme/nope", wantKind: domain.ProviderGitHub},
		{name: "missing local dir", descriptor: "file://" + t.TempDir() + "/absent", wantKind: domain.ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := TestRepository(context.Background(), r, stubPreloader{ok: true}, tt.descriptor)
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantKind, res.Type)
			assert.Contains(t, res.Message, "no images")
			assert.Zero(t, res.ImageCount)
		})
	}

	// the rotation path still falls back
	assert.Len(t, r.GetImages(context.Background(), "https://github.com/acme/nope", 3), 3)

	res := TestRepository(context.Background(), r, stubPreloader{ok: true}, "picsum")
	assert.True(t, res.Success)
}
