package domain

import "context"

// Provider abstracts a Git hosting service (GitHub, GitLab, etc.).
// Each implementation handles authentication, fork-parent discovery and
// release lookups for its platform, and feeds rate-limit headers from its
// API responses into the provider's rate limiter.
type Provider interface {
	// Name returns the provider identifier (e.g. "github", "gitlab").
	Name() string

	// MatchesURL returns true if the given remote URL belongs to this provider.
	MatchesURL(url string) bool

	// ForkInfo returns upstream information for a fork. It returns
	// ErrNotAFork when the repository exists but has no parent.
	ForkInfo(ctx context.Context, owner, name string) (*UpstreamInfo, error)

	// LatestReleaseTag returns the highest semantic-version tag of the
	// given repository, or an empty string when it has no tags.
	LatestReleaseTag(ctx context.Context, owner, name string) (string, error)

	// AuthToken returns the authentication token configured for this provider.
	AuthToken() string
}
