//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	testkit "github.com/rios0rios0/testkit/pkg/test"

	"github.com/forksync/forksync/domain"
)

// RepositoryBuilder helps create test repositories with a fluent interface.
type RepositoryBuilder struct {
	*testkit.BaseBuilder
	name     string
	path     string
	upstream string
	provider string
	branch   string
}

// NewRepositoryBuilder creates a new repository builder with sensible defaults.
func NewRepositoryBuilder() *RepositoryBuilder {
	return &RepositoryBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		name:        "test-repo",
		path:        "/tmp/test-repo",
		upstream:    "https://github.com/upstream-org/test-repo.git",
		provider:    "github",
		branch:      "main",
	}
}

// WithName sets the repository name.
func (b *RepositoryBuilder) WithName(name string) *RepositoryBuilder {
	b.name = name
	return b
}

// WithPath sets the local clone path.
func (b *RepositoryBuilder) WithPath(path string) *RepositoryBuilder {
	b.path = path
	return b
}

// WithUpstream sets the upstream URL.
func (b *RepositoryBuilder) WithUpstream(upstream string) *RepositoryBuilder {
	b.upstream = upstream
	return b
}

// WithProvider sets the provider name.
func (b *RepositoryBuilder) WithProvider(provider string) *RepositoryBuilder {
	b.provider = provider
	return b
}

// WithBranch sets the branch to sync.
func (b *RepositoryBuilder) WithBranch(branch string) *RepositoryBuilder {
	b.branch = branch
	return b
}

// Build creates the repository (satisfies testkit.Builder interface).
func (b *RepositoryBuilder) Build() interface{} {
	return b.BuildRepository()
}

// BuildRepository creates the repository with a concrete return type.
func (b *RepositoryBuilder) BuildRepository() domain.Repository {
	return domain.Repository{
		Name:         b.name,
		Path:         b.path,
		UpstreamURL:  b.upstream,
		ProviderName: b.provider,
		Branch:       b.branch,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *RepositoryBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.name = "test-repo"
	b.path = "/tmp/test-repo"
	b.upstream = "https://github.com/upstream-org/test-repo.git"
	b.provider = "github"
	b.branch = "main"
	return b
}

// Clone creates a deep copy of the RepositoryBuilder.
func (b *RepositoryBuilder) Clone() testkit.Builder {
	return &RepositoryBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		name:        b.name,
		path:        b.path,
		upstream:    b.upstream,
		provider:    b.provider,
		branch:      b.branch,
	}
}
