package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/metrics"
	"github.com/genricoloni/reverie/internal/provider"
	"github.com/genricoloni/reverie/internal/rotation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type fakeController struct {
	calls []string
	err   error
	snap  rotation.Snapshot
}

func (c *fakeController) Next(context.Context) error {
	c.calls = append(c.calls, "next")
	return c.err
}

func (c *fakeController) Prev(context.Context) error {
	c.calls = append(c.calls, "prev")
	return c.err
}

func (c *fakeController) Reload(context.Context) error {
	c.calls = append(c.calls, "reload")
	return c.err
}

func (c *fakeController) Snapshot(context.Context) (rotation.Snapshot, error) {
	return c.snap, c.err
}

type stubSource struct{ images []domain.ImageRecord }

func (s stubSource) GetImagesDirect(context.Context, string, int) []domain.ImageRecord {
	return s.images
}

type stubPreloader struct{ ok bool }

func (p stubPreloader) Preload(_ context.Context, images []domain.ImageRecord) []domain.ImageRecord {
	return images
}

func (p stubPreloader) Probe(context.Context, string) bool { return p.ok }

type stubWeather struct{}

func (stubWeather) Latest() (domain.WeatherData, bool) {
	return domain.WeatherData{Location: "Rome", Temperature: 21, Unit: "°C"}, true
}

func newTestServer(c *fakeController, gatherer prometheus.Gatherer) *Server {
	src := stubSource{images: []domain.ImageRecord{
		{URL: "https://img.example/a.jpg", Filename: "a.jpg"},
		{URL: "https://img.example/b.jpg", Filename: "b.jpg"},
	}}
	return NewServer(zap.NewNop(), "", c, src, stubPreloader{ok: true}, stubWeather{}, gatherer)
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Status(t *testing.T) {
	c := &fakeController{snap: rotation.Snapshot{
		Descriptor: "picsum",
		Ready:      true,
		Mode:       domain.OrderSequential,
		Index:      1,
		Images:     []domain.ImageRecord{{URL: "u0"}, {URL: "u1"}},
	}}
	h := newTestServer(c, nil).Handler()

	rec := do(t, h, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "picsum", got.Rotation.Descriptor)
	assert.Equal(t, 1, got.Rotation.Index)
	require.NotNil(t, got.Weather)
	assert.Equal(t, "Rome", got.Weather.Location)
}

func TestServer_StatusYAML(t *testing.T) {
	c := &fakeController{snap: rotation.Snapshot{Descriptor: "local", Mode: domain.OrderRandom}}
	h := newTestServer(c, nil).Handler()

	rec := do(t, h, http.MethodGet, "/status?format=yaml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))

	var got StatusResponse
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "local", got.Rotation.Descriptor)
	assert.Equal(t, domain.OrderRandom, got.Rotation.Mode)
}

func TestServer_Commands(t *testing.T) {
	c := &fakeController{}
	h := newTestServer(c, nil).Handler()

	for _, path := range []string{"/next", "/prev", "/reload"} {
		rec := do(t, h, http.MethodPost, path)
		assert.Equal(t, http.StatusAccepted, rec.Code, path)
	}
	assert.Equal(t, []string{"next", "prev", "reload"}, c.calls)

	rec := do(t, h, http.MethodGet, "/next")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_CommandAfterStop(t *testing.T) {
	c := &fakeController{err: rotation.ErrStopped}
	h := newTestServer(c, nil).Handler()

	rec := do(t, h, http.MethodPost, "/next")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "rotator stopped")

	rec = do(t, h, http.MethodGet, "/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_RepositoryTest(t *testing.T) {
	h := newTestServer(&fakeController{}, nil).Handler()

	rec := do(t, h, http.MethodGet, "/repository/test?descriptor=picsum")
	require.Equal(t, http.StatusOK, rec.Code)

	var got provider.TestResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.True(t, got.Success)
	assert.Equal(t, domain.ProviderPicsum, got.Type)
	assert.Equal(t, 2, got.ImageCount)

	rec = do(t, h, http.MethodGet, "/repository/test")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RepositoryInfo(t *testing.T) {
	h := newTestServer(&fakeController{}, nil).Handler()

	tests := []struct {
		descriptor string
		wantType   domain.ProviderKind
		wantValid  bool
	}{
		{descriptor: "https://github.com/acme/walls", wantType: domain.ProviderGitHub, wantValid: true},
		{descriptor: "https://github.com/acme", wantType: domain.ProviderGitHub, wantValid: false},
		{descriptor: "unsplash", wantType: domain.ProviderUnsplash, wantValid: true},
	}
	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/repository/info?descriptor="+tt.descriptor)
			require.Equal(t, http.StatusOK, rec.Code)

			var got RepositoryInfoResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantType, got.Info.Type)
			assert.Equal(t, tt.wantValid, got.Validation.Valid)
		})
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Fallback()

	h := newTestServer(&fakeController{}, reg).Handler()

	rec := do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "reverie_"), "expected reverie metrics in exposition")
}

func TestServer_StartStop(t *testing.T) {
	s := NewServer(zap.NewNop(), "127.0.0.1:0", &fakeController{}, stubSource{}, stubPreloader{}, nil, nil)
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx), "second stop is a no-op")

	disabled := NewServer(zap.NewNop(), "", &fakeController{}, stubSource{}, stubPreloader{}, nil, nil)
	require.NoError(t, disabled.Start(context.Background()))
	require.NoError(t, disabled.Stop(ctx))
}
