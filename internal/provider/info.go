package provider

import (
	"fmt"
	"strings"

	"github.com/genricoloni/reverie/internal/domain"
)

// RepositoryInfo describes a provider kind for display
type RepositoryInfo struct {
	Type          domain.ProviderKind `json:"type" yaml:"type"`
	Name          string              `json:"name" yaml:"name"`
	Description   string              `json:"description" yaml:"description"`
	RequiresSetup bool                `json:"requiresSetup" yaml:"requiresSetup"`
	Limitations   string              `json:"limitations" yaml:"limitations"`
}

// ValidationResult lists the problems found in a descriptor
type ValidationResult struct {
	Valid       bool     `json:"valid" yaml:"valid"`
	Issues      []string `json:"issues" yaml:"issues"`
	Suggestions []string `json:"suggestions" yaml:"suggestions"`
}

var _repositoryInfo = map[domain.ProviderKind]RepositoryInfo{
	domain.ProviderPicsum: {
		Name:        "Picsum Photos",
		Description: "Free service serving random high quality photos",
		Limitations: "No limits for personal use",
	},
	domain.ProviderUnsplash: {
		Name:        "Unsplash Source",
		Description: "Topic-based photos from professional photographers",
		Limitations: "Requests per hour are rate limited",
	},
	domain.ProviderGitHub: {
		Name:          "GitHub Repository",
		Description:   "Images stored in your own repository",
		RequiresSetup: true,
		Limitations:   "Requires a public repository (or a token) with images in the given directory",
	},
	domain.ProviderLocal: {
		Name:          "Local Images",
		Description:   "Images bundled with the daemon or stored in a local directory",
		RequiresSetup: true,
		Limitations:   "Bundled images change only with a rebuild",
	},
	domain.ProviderCustom: {
		Name:          "Custom API",
		Description:   "Your own endpoint returning a JSON image list",
		RequiresSetup: true,
		Limitations:   "Requires an array or {\"images\": [...]} response with url, image or src fields",
	},
}

// Describe returns display information for the provider a descriptor resolves to
func Describe(descriptor string) RepositoryInfo {
	kind := Detect(descriptor)
	info := _repositoryInfo[kind]
	info.Type = kind
	return info
}

// Validate checks a descriptor for common mistakes before it is saved
func Validate(descriptor string) ValidationResult {
	res := ValidationResult{Issues: []string{}, Suggestions: []string{}}

	d := strings.TrimSpace(descriptor)
	if d == "" {
		res.Issues = append(res.Issues, "repository url must not be empty")
		res.Suggestions = append(res.Suggestions, "use one of the supported sources, for example picsum or unsplash")
		return res
	}

	switch Detect(d) {
	case domain.ProviderGitHub:
		if _, err := ParseGitHubDescriptor(d); err != nil {
			res.Issues = append(res.Issues, "invalid GitHub url")
			res.Suggestions = append(res.Suggestions, "expected format: https://github.com/username/repository")
		}
	case domain.ProviderCustom:
		if _, err := withCount(d, 1); err != nil {
			res.Issues = append(res.Issues, fmt.Sprintf("invalid custom API url: %v", err))
			res.Suggestions = append(res.Suggestions, "check the url for typos")
		}
	}

	if len(res.Issues) == 0 {
		if info := Describe(d); info.RequiresSetup {
			res.Suggestions = append(res.Suggestions, fmt.Sprintf("this repository type (%s) requires additional setup", info.Name))
		}
	}

	res.Valid = len(res.Issues) == 0
	return res
}
