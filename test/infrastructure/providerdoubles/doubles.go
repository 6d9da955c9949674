// Package providerdoubles provides test doubles (spies, stubs, dummies) for
// domain interfaces. These are hand-crafted implementations, no mock
// frameworks.
package providerdoubles

import (
	"context"
	"strings"
	"sync"

	"github.com/forksync/forksync/domain"
)

// SpyProvider records calls and returns canned answers.
type SpyProvider struct {
	ProviderName string
	Token        string
	Upstream     *domain.UpstreamInfo
	ForkInfoErr  error
	LatestTag    string
	LatestTagErr error

	mu            sync.Mutex
	ForkInfoCalls []string // "owner/name" per call
	TagCalls      []string
}

func (s *SpyProvider) Name() string      { return s.ProviderName }
func (s *SpyProvider) AuthToken() string { return s.Token }

func (s *SpyProvider) MatchesURL(url string) bool {
	return strings.Contains(url, s.ProviderName)
}

func (s *SpyProvider) ForkInfo(
	_ context.Context,
	owner, name string,
) (*domain.UpstreamInfo, error) {
	s.mu.Lock()
	s.ForkInfoCalls = append(s.ForkInfoCalls, owner+"/"+name)
	s.mu.Unlock()

	if s.ForkInfoErr != nil {
		return nil, s.ForkInfoErr
	}
	if s.Upstream == nil {
		return nil, domain.ErrNotAFork
	}
	return s.Upstream, nil
}

func (s *SpyProvider) LatestReleaseTag(
	_ context.Context,
	owner, name string,
) (string, error) {
	s.mu.Lock()
	s.TagCalls = append(s.TagCalls, owner+"/"+name)
	s.mu.Unlock()

	return s.LatestTag, s.LatestTagErr
}

// StubOperation builds a domain.Operation returning fixed outcomes keyed
// by repository name; unknown names succeed with an empty outcome.
type StubOperation struct {
	Outcomes map[string]domain.Outcome
	Errors   map[string]error

	mu    sync.Mutex
	Calls []string
}

// Operation returns the stub as an invocable operation.
func (s *StubOperation) Operation() domain.Operation {
	return func(_ context.Context, repo domain.Repository) (domain.Outcome, error) {
		s.mu.Lock()
		s.Calls = append(s.Calls, repo.Name)
		s.mu.Unlock()

		if err, ok := s.Errors[repo.Name]; ok {
			return domain.Outcome{}, err
		}
		if outcome, ok := s.Outcomes[repo.Name]; ok {
			return outcome, nil
		}
		return domain.Outcome{Success: true}, nil
	}
}
