// Package syncer builds the per-repository "sync with upstream" operation
// that the batch layer fans out: upstream discovery, rate-limited provider
// calls, retried fetch, and a merge executed inside a stash transaction.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/forksync/forksync/domain"
	"github.com/forksync/forksync/infrastructure/gitrepo"
	"github.com/forksync/forksync/infrastructure/ratelimit"
	"github.com/forksync/forksync/infrastructure/retry"
)

// ConflictStrategy selects what happens when the upstream merge conflicts.
type ConflictStrategy string

const (
	// StrategyAbort discards the conflicted merge and reports a failure.
	// The safe default for unattended runs.
	StrategyAbort ConflictStrategy = "abort"
	// StrategyOurs resolves every conflict in favor of the local side.
	StrategyOurs ConflictStrategy = "ours"
	// StrategyTheirs resolves every conflict in favor of upstream.
	StrategyTheirs ConflictStrategy = "theirs"
	// StrategyManual leaves the merge conflicted for the user.
	StrategyManual ConflictStrategy = "manual"
)

// OperationName labels batch results produced by this syncer.
const OperationName = "sync-upstream"

// Options configures a Syncer for one run.
type Options struct {
	DryRun           bool
	Push             bool
	ConflictStrategy ConflictStrategy
	MaxAttempts      int
	Policy           retry.Policy
	// Timeout, when positive, bounds the cumulative retry time of each
	// individual network call via a timeout-aware backoff.
	Timeout time.Duration
}

// Syncer produces the sync operation for a set of configured providers.
type Syncer struct {
	providers map[string]domain.Provider
	opts      Options
}

// New creates a syncer. providers maps provider name to a configured
// instance; repositories without a matching provider still sync as long
// as their upstream URL is configured or an upstream remote exists.
func New(providers map[string]domain.Provider, opts Options) *Syncer {
	if opts.ConflictStrategy == "" {
		opts.ConflictStrategy = StrategyAbort
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Policy == nil {
		opts.Policy = retry.ExponentialBackoff{}
	}
	return &Syncer{providers: providers, opts: opts}
}

// Operation returns the closure the batch processor applies per repository.
func (s *Syncer) Operation() domain.Operation {
	return s.syncOne
}

// policy returns the retry policy for one network call. With a timeout
// configured, each call gets a fresh timeout-aware policy whose deadline
// clock starts now.
func (s *Syncer) policy() retry.Policy {
	if s.opts.Timeout > 0 {
		if base, ok := s.opts.Policy.(retry.ExponentialBackoff); ok {
			return retry.NewTimeoutAwareBackoff(base, s.opts.Timeout)
		}
	}
	return s.opts.Policy
}

func (s *Syncer) syncOne(ctx context.Context, repo domain.Repository) (domain.Outcome, error) {
	details := map[string]string{}
	outcome := domain.Outcome{Details: details}

	git := gitrepo.NewRunner(repo.Path)
	inspect, err := gitrepo.OpenInspect(repo.Path)
	if err != nil {
		return outcome, err
	}

	originURL, err := inspect.RemoteURL(gitrepo.OriginRemote)
	if err != nil {
		return outcome, err
	}
	prov := s.providerFor(repo, originURL)

	upstreamURL, branch, err := s.resolveUpstream(ctx, repo, inspect, prov, originURL)
	if err != nil {
		return outcome, err
	}
	details["upstream"] = upstreamURL

	if branch == "" {
		branch, err = git.CurrentBranch(ctx)
		if err != nil {
			return outcome, err
		}
	}
	details["branch"] = branch
	mergeRef := gitrepo.UpstreamRemote + "/" + branch

	if s.opts.DryRun {
		outcome.Success = true
		outcome.Message = fmt.Sprintf("would fetch %s and merge %s", upstreamURL, mergeRef)
		return outcome, nil
	}

	if err = retry.Do(ctx, s.policy(), s.opts.MaxAttempts, func() error {
		return git.Fetch(ctx, gitrepo.UpstreamRemote)
	}); err != nil {
		return outcome, fmt.Errorf("fetch failed: %w", err)
	}

	behind, err := git.CommitsBehind(ctx, mergeRef)
	if err != nil {
		return outcome, err
	}
	details["commits_behind"] = strconv.Itoa(behind)

	mergeErr := s.mergeUnderTransaction(ctx, git, mergeRef, details)
	if mergeErr != nil {
		return outcome, mergeErr
	}

	if s.opts.Push {
		if err = retry.Do(ctx, s.policy(), s.opts.MaxAttempts, func() error {
			return git.Push(ctx, gitrepo.OriginRemote, branch)
		}); err != nil {
			return outcome, fmt.Errorf("merged but push failed: %w", err)
		}
		details["pushed"] = "true"
	}

	s.annotateLatestTag(ctx, prov, upstreamURL, details)

	outcome.Success = true
	if behind == 0 {
		outcome.Message = "already up to date with " + mergeRef
	} else {
		outcome.Message = fmt.Sprintf("merged %d commits from %s", behind, mergeRef)
	}
	return outcome, nil
}

// resolveUpstream determines the upstream URL and branch for a repository:
// explicit config first, then an existing upstream remote, then a
// provider fork-parent lookup under the provider's rate limiter.
func (s *Syncer) resolveUpstream(
	ctx context.Context,
	repo domain.Repository,
	inspect *gitrepo.Inspect,
	prov domain.Provider,
	originURL string,
) (string, string, error) {
	branch := repo.Branch
	upstreamURL := repo.UpstreamURL

	if upstreamURL == "" {
		existing, err := inspect.RemoteURL(gitrepo.UpstreamRemote)
		if err != nil {
			return "", "", err
		}
		upstreamURL = existing
	}

	if upstreamURL == "" && prov != nil {
		owner, name, ok := ParseRemote(originURL)
		if !ok {
			return "", "", fmt.Errorf("%w: cannot parse origin URL %q", domain.ErrNoUpstream, originURL)
		}

		var info *domain.UpstreamInfo
		err := s.withProvider(ctx, prov, func() error {
			var lookupErr error
			info, lookupErr = prov.ForkInfo(ctx, owner, name)
			return lookupErr
		})
		if err != nil {
			return "", "", fmt.Errorf("upstream lookup failed: %w", err)
		}
		upstreamURL = info.CloneURL
		if branch == "" {
			branch = info.DefaultBranch
		}
		logger.Infof("[%s] discovered upstream %s", repo.Name, info.FullName)
	}

	if upstreamURL == "" {
		return "", "", domain.ErrNoUpstream
	}

	actual, err := inspect.EnsureUpstreamRemote(upstreamURL)
	if err != nil {
		return "", "", err
	}
	return actual, branch, nil
}

// mergeUnderTransaction runs the merge inside the stash transaction and
// applies the configured conflict strategy.
func (s *Syncer) mergeUnderTransaction(
	ctx context.Context,
	git *gitrepo.Runner,
	mergeRef string,
	details map[string]string,
) error {
	resolver := gitrepo.NewConflictResolver(git)
	tx := gitrepo.NewTransaction(git)

	stash, opErr := tx.Run(ctx, func(ctx context.Context) error {
		status, mergeErr := resolver.Merge(ctx, mergeRef)
		if mergeErr == nil {
			return nil
		}
		if !errors.Is(mergeErr, domain.ErrMergeConflict) {
			return mergeErr
		}

		details["conflicts"] = strconv.Itoa(len(status.Conflicts))
		return s.handleConflict(ctx, resolver, mergeErr, details)
	})

	if stash != nil {
		details["stash"] = stash.Ref
		if !stash.Dropped {
			details["stash_kept"] = "true"
		}
	}
	return opErr
}

func (s *Syncer) handleConflict(
	ctx context.Context,
	resolver *gitrepo.ConflictResolver,
	mergeErr error,
	details map[string]string,
) error {
	switch s.opts.ConflictStrategy {
	case StrategyOurs, StrategyTheirs:
		strategy := domain.ResolveStrategy(s.opts.ConflictStrategy)
		if resolveErr := resolver.Resolve(ctx, strategy); resolveErr != nil {
			// Mechanical resolution did not produce a clean tree;
			// back out so the repository is usable again.
			if abortErr := resolver.Abort(ctx); abortErr != nil {
				logger.Errorf("failed to abort after resolution failure: %v", abortErr)
			}
			return resolveErr
		}
		details["resolved_with"] = string(s.opts.ConflictStrategy)
		return nil

	case StrategyManual:
		details["resolution"] = "manual"
		return fmt.Errorf("%w: left for manual resolution", mergeErr)

	default: // StrategyAbort
		if abortErr := resolver.Abort(ctx); abortErr != nil {
			return fmt.Errorf("%w (abort also failed: %v)", mergeErr, abortErr)
		}
		details["resolution"] = "aborted"
		return mergeErr
	}
}

// annotateLatestTag best-effort records the newest upstream release tag.
func (s *Syncer) annotateLatestTag(
	ctx context.Context,
	prov domain.Provider,
	upstreamURL string,
	details map[string]string,
) {
	if prov == nil {
		return
	}
	owner, name, ok := ParseRemote(upstreamURL)
	if !ok {
		return
	}

	var tag string
	err := s.withProvider(ctx, prov, func() error {
		var tagErr error
		tag, tagErr = prov.LatestReleaseTag(ctx, owner, name)
		return tagErr
	})
	if err != nil {
		logger.Debugf("latest tag lookup for %s/%s failed: %v", owner, name, err)
		return
	}
	if tag != "" {
		details["latest_upstream_tag"] = tag
	}
}

// withProvider obtains a rate-limit permit for the provider and runs the
// call under the retry policy.
func (s *Syncer) withProvider(ctx context.Context, prov domain.Provider, call func() error) error {
	return retry.Do(ctx, s.policy(), s.opts.MaxAttempts, func() error {
		if limiter := ratelimit.Lookup(prov.Name()); limiter != nil {
			if err := limiter.WaitIfNeeded(ctx); err != nil {
				return err
			}
		}
		return call()
	})
}

// providerFor picks the provider for a repository: the configured name
// first, then a URL match against the origin remote.
func (s *Syncer) providerFor(repo domain.Repository, originURL string) domain.Provider {
	if repo.ProviderName != "" {
		return s.providers[repo.ProviderName]
	}
	if originURL == "" {
		return nil
	}
	for _, prov := range s.providers {
		if prov.MatchesURL(originURL) {
			return prov
		}
	}
	return nil
}
