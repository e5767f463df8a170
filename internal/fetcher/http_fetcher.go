package fetcher

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	_maxImageSize = 10 * 1024 * 1024 // 10 MB
	_maxJSONSize  = 5 * 1024 * 1024

	// BundleScheme prefixes references to images embedded in the binary
	BundleScheme = "bundle://"
)

// HTTPFetcher retrieves image data over HTTP(S), from file:// paths and from the bundled assets
type HTTPFetcher struct {
	logger *zap.Logger
	client *http.Client
	bundle fs.FS
}

// NewHTTPFetcher creates a new fetcher. A nil client gets the default options; a nil bundle
// makes bundle:// references fail.
func NewHTTPFetcher(logger *zap.Logger, client *http.Client, bundle fs.FS) *HTTPFetcher {
	if client == nil {
		client = NewClient(DefaultClientOptions())
	}
	return &HTTPFetcher{
		logger: logger,
		client: client,
		bundle: bundle,
	}
}

// Fetch downloads or reads image data from the given location
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	switch {
	case strings.HasPrefix(rawURL, BundleScheme):
		return f.readBundle(strings.TrimPrefix(rawURL, BundleScheme))
	case strings.HasPrefix(rawURL, "file://"):
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid file url: %w", err)
		}
		return f.readFile(u.Path)
	case !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://"):
		return nil, fmt.Errorf("unsupported url scheme: %s", RedactURL(rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s", RedactURL(rawURL))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, requestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: RedactURL(rawURL)}
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("url is not an image: %s", ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, _maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	f.logger.Debug("Image fetched successfully", zap.Int("bytes", len(data)), zap.String("url", RedactURL(rawURL)))
	return data, nil
}

// GetJSON performs a GET expecting a JSON document and returns the raw body
func (f *HTTPFetcher) GetJSON(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s", RedactURL(rawURL))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, requestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: RedactURL(rawURL)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, _maxJSONSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	f.logger.Debug("JSON fetched", zap.Int("bytes", len(data)), zap.String("url", RedactURL(rawURL)))
	return data, nil
}

func (f *HTTPFetcher) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory: %s", path)
	}
	if info.Size() > _maxImageSize {
		return nil, fmt.Errorf("file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (f *HTTPFetcher) readBundle(name string) ([]byte, error) {
	if f.bundle == nil {
		return nil, fmt.Errorf("no bundled assets available for %q", name)
	}
	data, err := fs.ReadFile(f.bundle, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundled image: %w", err)
	}
	return data, nil
}
