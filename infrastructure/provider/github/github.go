package github

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/mod/semver"

	"github.com/forksync/forksync/domain"
	"github.com/forksync/forksync/infrastructure/ratelimit"
)

const (
	providerName = "github"
	perPage      = 100

	// transportRetries covers idempotent GET hiccups at the HTTP layer;
	// application-level retries of whole operations live in the retry
	// package.
	transportRetries = 2
)

// Provider implements domain.Provider for GitHub.
type Provider struct {
	token  string
	client *gh.Client
}

// New creates a new GitHub provider with the given token.
func New(token string) domain.Provider {
	rc := retryablehttp.NewClient()
	rc.RetryMax = transportRetries
	rc.Logger = nil

	client := gh.NewClient(rc.StandardClient()).WithAuthToken(token)
	return &Provider{
		token:  token,
		client: client,
	}
}

func (p *Provider) Name() string      { return providerName }
func (p *Provider) AuthToken() string { return p.token }

func (p *Provider) MatchesURL(rawURL string) bool {
	return strings.Contains(rawURL, "github.com")
}

// ForkInfo looks up the fork's parent repository.
func (p *Provider) ForkInfo(
	ctx context.Context,
	owner, name string,
) (*domain.UpstreamInfo, error) {
	repo, resp, err := p.client.Repositories.Get(ctx, owner, name)
	p.observe(ctx, resp, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", owner, name, err)
	}

	parent := repo.GetParent()
	if !repo.GetFork() || parent == nil {
		return nil, domain.ErrNotAFork
	}
	return &domain.UpstreamInfo{
		CloneURL:      parent.GetCloneURL(),
		DefaultBranch: parent.GetDefaultBranch(),
		FullName:      parent.GetFullName(),
	}, nil
}

// LatestReleaseTag returns the highest semantic-version tag of the
// repository, or an empty string when no tag parses as a version.
func (p *Provider) LatestReleaseTag(
	ctx context.Context,
	owner, name string,
) (string, error) {
	var tags []string
	opts := &gh.ListOptions{PerPage: perPage}

	for {
		page, resp, err := p.client.Repositories.ListTags(ctx, owner, name, opts)
		p.observe(ctx, resp, err)
		if err != nil {
			return "", fmt.Errorf("failed to list tags for %s/%s: %w", owner, name, err)
		}
		for _, tag := range page {
			tags = append(tags, tag.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return highestSemver(tags), nil
}

// observe feeds response headers into the provider's rate limiter and,
// on a definitive quota-exceeded error, lets the limiter absorb the wait.
func (p *Provider) observe(ctx context.Context, resp *gh.Response, err error) {
	limiter := ratelimit.Lookup(providerName)
	if limiter == nil {
		return
	}
	if resp != nil {
		limiter.UpdateFromHeaders(resp.Header)
	}

	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		if resp != nil {
			_ = limiter.HandleRateLimitExceeded(ctx, resp.Header)
		}
	}
}

// highestSemver picks the largest semantic version from raw tag names.
func highestSemver(tags []string) string {
	versions := make([]string, 0, len(tags))
	for _, tag := range tags {
		v := tag
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}
		if semver.IsValid(v) {
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
