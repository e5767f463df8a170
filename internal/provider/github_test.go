package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/genricoloni/reverie/internal/random"
	"github.com/google/go-github/v63/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseGitHubDescriptor(t *testing.T) {
	tests := []struct {
		name       string
		descriptor string
		want       GitHubTarget
		wantErr    bool
	}{
		{
			name:       "Bare repository",
			descriptor: "https://github.com/Acme/Wallpapers",
			want:       GitHubTarget{Owner: "Acme", Repo: "Wallpapers"},
		},
		{
			name:       "Without scheme",
			descriptor: "github.com/acme/wallpapers",
			want:       GitHubTarget{Owner: "acme", Repo: "wallpapers"},
		},
		{
			name:       "Git suffix",
			descriptor: "https://github.com/acme/wallpapers.git",
			want:       GitHubTarget{Owner: "acme", Repo: "wallpapers"},
		},
		{
			name:       "Tree with nested path",
			descriptor: "https://github.com/acme/wallpapers/tree/main/images/dark",
			want:       GitHubTarget{Owner: "acme", Repo: "wallpapers", Ref: "main", Path: "images/dark"},
		},
		{
			name:       "Tree without path",
			descriptor: "https://github.com/acme/wallpapers/tree/v2",
			want:       GitHubTarget{Owner: "acme", Repo: "wallpapers", Ref: "v2"},
		},
		{
			name:       "Blob resolves to parent directory",
			descriptor: "https://github.com/acme/wallpapers/blob/3f2a1c/images/dark/night.jpg",
			want:       GitHubTarget{Owner: "acme", Repo: "wallpapers", Ref: "3f2a1c", Path: "images/dark"},
		},
		{
			name:       "Blob at repository root",
			descriptor: "https://github.com/acme/wallpapers/blob/main/night.jpg",
			want:       GitHubTarget{Owner: "acme", Repo: "wallpapers", Ref: "main"},
		},
		{
			name:       "Raw file url",
			descriptor: "https://raw.githubusercontent.com/acme/wallpapers/main/images/a.png",
			want:       GitHubTarget{Owner: "acme", Repo: "wallpapers", Ref: "main", Path: "images"},
		},
		{
			name:       "Owner only",
			descriptor: "https://github.com/acme",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGitHubDescriptor(tt.descriptor)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// newTestGitHubClient points a go-github client at server
func newTestGitHubClient(t *testing.T, server *httptest.Server) *github.Client {
	t.Helper()
	client := github.NewClient(server.Client())
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return client
}

const _listing = `[
	{"name": "a.jpg", "type": "file", "download_url": "https://raw.example/a.jpg"},
	{"name": "B.PNG", "type": "file", "download_url": "https://raw.example/B.PNG"},
	{"name": "c.webp", "type": "file", "download_url": "https://raw.example/c.webp"},
	{"name": "README.md", "type": "file", "download_url": "https://raw.example/README.md"},
	{"name": "nested.jpg", "type": "dir", "download_url": null}
]`

func TestGitHub_FetchImages(t *testing.T) {
	var gotPath, gotRef string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRef = r.URL.Query().Get("ref")
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, _listing)
	}))
	defer server.Close()

	g := NewGitHub(zap.NewNop(), newTestGitHubClient(t, server), random.NewSeeded(11))

	t.Run("Samples without replacement", func(t *testing.T) {
		images := g.FetchImages(context.Background(), "https://github.com/acme/widgets/tree/dev/photos", 2)
		require.Len(t, images, 2)
		assert.Equal(t, "/repos/acme/widgets/contents/photos", gotPath)
		assert.Equal(t, "dev", gotRef)
		assert.NotEqual(t, images[0].URL, images[1].URL)
		for _, img := range images {
			assert.Contains(t, []string{"https://raw.example/a.jpg", "https://raw.example/B.PNG", "https://raw.example/c.webp"}, img.URL)
			assert.False(t, img.Loaded)
		}
	})

	t.Run("Count larger than available", func(t *testing.T) {
		images := g.FetchImages(context.Background(), "https://github.com/acme/widgets", 10)
		assert.Len(t, images, 3)
		assert.Equal(t, "/repos/acme/widgets/contents/", gotPath)
		assert.Empty(t, gotRef)
	})
}

func TestGitHub_EmptyResults(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		descriptor string
	}{
		{name: "Not found", status: http.StatusNotFound, body: `{"message":"Not Found"}`, descriptor: "https://github.com/acme/nope"},
		{name: "No images", status: http.StatusOK, body: `[{"name":"README.md","type":"file","download_url":"x"}]`, descriptor: "https://github.com/acme/docs"},
		{name: "Malformed payload", status: http.StatusOK, body: `not json`, descriptor: "https://github.com/acme/broken"},
		{name: "Malformed url", status: http.StatusOK, body: `[]`, descriptor: "https://github.com/acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			g := NewGitHub(zap.NewNop(), newTestGitHubClient(t, server), random.NewSeeded(1))
			images := g.FetchImages(context.Background(), tt.descriptor, 5)
			assert.NotNil(t, images)
			assert.Empty(t, images)
		})
	}
}

func TestNewGitHubClient_Token(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client := NewGitHubClient(server.Client(), "s3cret")
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	_, _, _, err = client.Repositories.GetContents(context.Background(), "acme", "widgets", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cret", gotAuth)
}
