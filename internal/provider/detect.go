// Package provider resolves repository descriptors into candidate background images.
package provider

import (
	"path"
	"strings"

	"github.com/genricoloni/reverie/internal/domain"
)

// Detect classifies a repository descriptor. It is total: unrecognised input maps to picsum.
func Detect(descriptor string) domain.ProviderKind {
	d := strings.ToLower(strings.TrimSpace(descriptor))

	switch {
	case strings.Contains(d, "picsum.photos") || d == "picsum":
		return domain.ProviderPicsum
	case strings.Contains(d, "unsplash"):
		return domain.ProviderUnsplash
	case strings.Contains(d, "github.com") || strings.Contains(d, "raw.githubusercontent.com"):
		return domain.ProviderGitHub
	case strings.HasPrefix(d, "file://") || strings.HasPrefix(d, "./") || strings.HasPrefix(d, "../") || d == "local":
		return domain.ProviderLocal
	case strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://"):
		return domain.ProviderCustom
	default:
		return domain.ProviderPicsum
	}
}

var _imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// isImageName reports whether name carries a supported image extension (case-insensitive)
func isImageName(name string) bool {
	return _imageExtensions[strings.ToLower(path.Ext(name))]
}
