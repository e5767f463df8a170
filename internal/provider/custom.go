package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/fetcher"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Custom queries a user-supplied JSON endpoint listing images
type Custom struct {
	logger  *zap.Logger
	fetcher domain.Fetcher
}

// NewCustom creates the Custom provider
func NewCustom(logger *zap.Logger, fetcher domain.Fetcher) *Custom {
	return &Custom{logger: logger, fetcher: fetcher}
}

func (c *Custom) Kind() domain.ProviderKind { return domain.ProviderCustom }

// FetchImages issues GET {descriptor}?count={n}. The body must be an array or an object
// with an "images" array. Elements without a url, image or src field are skipped.
func (c *Custom) FetchImages(ctx context.Context, descriptor string, count int) []domain.ImageRecord {
	if count <= 0 {
		return []domain.ImageRecord{}
	}

	endpoint, err := withCount(descriptor, count)
	if err != nil {
		c.logger.Warn("Invalid custom API url", zap.String("descriptor", descriptor), zap.Error(err))
		return []domain.ImageRecord{}
	}

	body, err := c.fetcher.GetJSON(ctx, endpoint)
	if fetcher.IsNotFound(err) {
		c.logger.Warn("Custom API endpoint not found, check the repository url",
			zap.String("url", fetcher.RedactURL(endpoint)))
		return []domain.ImageRecord{}
	}
	if err != nil {
		c.logger.Warn("Custom API request failed", zap.String("url", fetcher.RedactURL(endpoint)), zap.Error(err))
		return []domain.ImageRecord{}
	}

	items, ok := imageList(body)
	if !ok {
		c.logger.Warn("Invalid custom API response format", zap.String("url", fetcher.RedactURL(endpoint)))
		return []domain.ImageRecord{}
	}

	images := make([]domain.ImageRecord, 0, len(items))
	for i, item := range items {
		if len(images) == count {
			break
		}
		u := firstString(item, "url", "image", "src")
		if u == "" {
			c.logger.Debug("Skipping custom API entry without url", zap.Int("index", i))
			continue
		}
		if localReference(u) {
			c.logger.Warn("Skipping custom API entry pointing at local storage", zap.Int("index", i))
			continue
		}
		name := firstString(item, "filename", "name")
		if name == "" {
			name = fmt.Sprintf("custom_%d.jpg", i+1)
		}
		images = append(images, domain.ImageRecord{URL: u, Filename: name})
	}

	c.logger.Debug("Custom API images parsed", zap.Int("entries", len(items)), zap.Int("images", len(images)))
	return images
}

// localReference reports whether u would be read from disk or the bundle instead of the network
func localReference(u string) bool {
	lower := strings.ToLower(strings.TrimSpace(u))
	return strings.HasPrefix(lower, "file:") || strings.HasPrefix(lower, fetcher.BundleScheme)
}

func withCount(descriptor string, count int) (string, error) {
	u, err := url.Parse(descriptor)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("count", strconv.Itoa(count))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func imageList(body []byte) ([]gjson.Result, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return root.Array(), true
	}
	if images := root.Get("images"); root.IsObject() && images.IsArray() {
		return images.Array(), true
	}
	return nil, false
}

func firstString(item gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := item.Get(key); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}
