package provider

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/random"
	"github.com/google/go-github/v63/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var (
	// github.com/<owner>/<repo>[/(tree|blob)/<ref>[/<path>]]
	_githubWebPattern = regexp.MustCompile(`(?i)github\.com/([^/?#]+)/([^/?#]+)(?:/(tree|blob)/([^/?#]+)(?:/([^?#]+))?)?`)
	// raw.githubusercontent.com/<owner>/<repo>/<ref>/<path>
	_githubRawPattern = regexp.MustCompile(`(?i)raw\.githubusercontent\.com/([^/?#]+)/([^/?#]+)/([^/?#]+)(?:/([^?#]+))?`)
)

// GitHubTarget is a parsed contents-listing request
type GitHubTarget struct {
	Owner string
	Repo  string
	Ref   string // empty means the default branch
	Path  string // directory inside the repository, empty for the root
}

// ParseGitHubDescriptor extracts owner, repo, ref and directory from a GitHub URL.
// File URLs (blob and raw) resolve to their parent directory.
func ParseGitHubDescriptor(descriptor string) (GitHubTarget, error) {
	d := strings.TrimSpace(descriptor)

	if m := _githubRawPattern.FindStringSubmatch(d); m != nil {
		return GitHubTarget{
			Owner: m[1],
			Repo:  m[2],
			Ref:   m[3],
			Path:  parentDir(m[4]),
		}, nil
	}

	m := _githubWebPattern.FindStringSubmatch(d)
	if m == nil {
		return GitHubTarget{}, fmt.Errorf("not a github repository url: %q", descriptor)
	}

	target := GitHubTarget{
		Owner: m[1],
		Repo:  strings.TrimSuffix(m[2], ".git"),
		Ref:   m[4],
		Path:  strings.Trim(m[5], "/"),
	}
	if strings.EqualFold(m[3], "blob") {
		target.Path = parentDir(m[5])
	}
	if target.Repo == "" {
		return GitHubTarget{}, fmt.Errorf("missing repository name in %q", descriptor)
	}
	return target, nil
}

func parentDir(p string) string {
	dir := path.Dir(strings.Trim(p, "/"))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// NewGitHubClient builds a go-github client on top of httpClient, authenticating when token is set
func NewGitHubClient(httpClient *http.Client, token string) *github.Client {
	if token == "" {
		return github.NewClient(httpClient)
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	return github.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))
}

// GitHub lists a repository directory through the contents API and samples its images
type GitHub struct {
	logger *zap.Logger
	client *github.Client
	rng    random.Rand
}

// NewGitHub creates the GitHub provider
func NewGitHub(logger *zap.Logger, client *github.Client, rng random.Rand) *GitHub {
	return &GitHub{logger: logger, client: client, rng: rng}
}

func (g *GitHub) Kind() domain.ProviderKind { return domain.ProviderGitHub }

// FetchImages samples up to count image files without replacement.
// Malformed URLs, API errors and directories without images all yield an empty result.
func (g *GitHub) FetchImages(ctx context.Context, descriptor string, count int) []domain.ImageRecord {
	if count <= 0 {
		return []domain.ImageRecord{}
	}

	target, err := ParseGitHubDescriptor(descriptor)
	if err != nil {
		g.logger.Warn("Invalid GitHub descriptor", zap.String("descriptor", descriptor), zap.Error(err))
		return []domain.ImageRecord{}
	}

	g.logger.Debug("Listing GitHub directory",
		zap.String("owner", target.Owner),
		zap.String("repo", target.Repo),
		zap.String("ref", target.Ref),
		zap.String("path", target.Path))

	var opts *github.RepositoryContentGetOptions
	if target.Ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: target.Ref}
	}

	_, entries, _, err := g.client.Repositories.GetContents(ctx, target.Owner, target.Repo, target.Path, opts)
	if err != nil {
		g.logger.Warn("GitHub contents request failed",
			zap.String("owner", target.Owner),
			zap.String("repo", target.Repo),
			zap.Error(err))
		return []domain.ImageRecord{}
	}

	var files []*github.RepositoryContent
	for _, entry := range entries {
		if entry.GetType() == "file" && isImageName(entry.GetName()) && entry.GetDownloadURL() != "" {
			files = append(files, entry)
		}
	}

	if len(files) == 0 {
		g.logger.Warn("No images found in GitHub directory",
			zap.String("repo", target.Owner+"/"+target.Repo),
			zap.String("path", target.Path),
			zap.Int("entries", len(entries)))
		return []domain.ImageRecord{}
	}

	picked := random.Sample(len(files), count, g.rng)
	images := make([]domain.ImageRecord, 0, len(picked))
	for _, idx := range picked {
		images = append(images, domain.ImageRecord{
			URL:      files[idx].GetDownloadURL(),
			Filename: files[idx].GetName(),
		})
	}

	g.logger.Info("GitHub images selected",
		zap.String("repo", target.Owner+"/"+target.Repo),
		zap.Int("available", len(files)),
		zap.Int("selected", len(images)))
	return images
}
