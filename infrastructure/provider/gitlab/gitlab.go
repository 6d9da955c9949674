package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	gl "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/mod/semver"

	"github.com/forksync/forksync/domain"
	"github.com/forksync/forksync/infrastructure/ratelimit"
)

const (
	providerName = "gitlab"
	perPage      = 100

	transportRetries = 2
)

var errClientNotInitialized = errors.New("gitlab client not initialized")

// Provider implements domain.Provider for GitLab.
type Provider struct {
	token  string
	client *gl.Client
}

// New creates a new GitLab provider with the given token.
func New(token string) domain.Provider {
	rc := retryablehttp.NewClient()
	rc.RetryMax = transportRetries
	rc.Logger = nil

	client, err := gl.NewClient(token, gl.WithHTTPClient(rc.StandardClient()))
	if err != nil {
		// Return a provider that will fail on use rather than panicking
		// at construction.
		return &Provider{token: token, client: nil}
	}
	return &Provider{
		token:  token,
		client: client,
	}
}

func (p *Provider) Name() string      { return providerName }
func (p *Provider) AuthToken() string { return p.token }

func (p *Provider) MatchesURL(rawURL string) bool {
	return strings.Contains(rawURL, "gitlab.com")
}

// ForkInfo looks up the project a fork was created from.
func (p *Provider) ForkInfo(
	ctx context.Context,
	owner, name string,
) (*domain.UpstreamInfo, error) {
	if p.client == nil {
		return nil, errClientNotInitialized
	}

	pid := owner + "/" + name
	project, resp, err := p.client.Projects.GetProject(pid, nil, gl.WithContext(ctx))
	p.observe(ctx, resp, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get project %q: %w", pid, err)
	}
	if project.ForkedFromProject == nil {
		return nil, domain.ErrNotAFork
	}

	info := &domain.UpstreamInfo{
		CloneURL: project.ForkedFromProject.HTTPURLToRepo,
		FullName: project.ForkedFromProject.PathWithNamespace,
	}

	// The fork-parent stub has no default branch; fetch the parent project.
	parent, resp, err := p.client.Projects.GetProject(
		project.ForkedFromProject.ID, nil, gl.WithContext(ctx),
	)
	p.observe(ctx, resp, err)
	if err == nil && parent.DefaultBranch != "" {
		info.DefaultBranch = parent.DefaultBranch
	}
	return info, nil
}

// LatestReleaseTag returns the highest semantic-version tag of the
// project, or an empty string when no tag parses as a version.
func (p *Provider) LatestReleaseTag(
	ctx context.Context,
	owner, name string,
) (string, error) {
	if p.client == nil {
		return "", errClientNotInitialized
	}

	pid := owner + "/" + name
	var tags []string
	opts := &gl.ListTagsOptions{
		ListOptions: gl.ListOptions{PerPage: perPage},
	}

	for {
		page, resp, err := p.client.Tags.ListTags(pid, opts, gl.WithContext(ctx))
		p.observe(ctx, resp, err)
		if err != nil {
			return "", fmt.Errorf("failed to list tags for %q: %w", pid, err)
		}
		for _, tag := range page {
			tags = append(tags, tag.Name)
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return highestSemver(tags), nil
}

// observe feeds response headers into the provider's rate limiter and,
// on an HTTP 429, lets the limiter absorb the wait.
func (p *Provider) observe(ctx context.Context, resp *gl.Response, err error) {
	limiter := ratelimit.Lookup(providerName)
	if limiter == nil || resp == nil {
		return
	}
	limiter.UpdateFromHeaders(resp.Header)

	if err != nil && resp.StatusCode == http.StatusTooManyRequests {
		_ = limiter.HandleRateLimitExceeded(ctx, resp.Header)
	}
}

// highestSemver picks the largest semantic version from raw tag names.
func highestSemver(tags []string) string {
	versions := make([]string, 0, len(tags))
	for _, tag := range tags {
		if semver.IsValid(normalize(tag)) {
			versions = append(versions, tag)
		}
	}
	if len(versions) == 0 {
		return ""
	}
	sort.Slice(versions, func(i, j int) bool {
		return semver.Compare(normalize(versions[i]), normalize(versions[j])) > 0
	})
	return versions[0]
}

func normalize(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}
