package gitrepo

import (
	"context"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/forksync/forksync/domain"
)

// ConflictResolver drives a merge through its states:
// Clean -> Merging -> {Clean, Conflicted} and from Conflicted on to
// Resolved (mechanical or manual resolution) or back to Clean (abort).
type ConflictResolver struct {
	git   *Runner
	state domain.MergeState
}

// NewConflictResolver creates a resolver for the runner's repository,
// starting from the Clean state.
func NewConflictResolver(git *Runner) *ConflictResolver {
	return &ConflictResolver{git: git, state: domain.MergeStateClean}
}

// State returns the resolver's current position in the merge lifecycle.
func (c *ConflictResolver) State() domain.MergeState { return c.state }

// Status queries the repository's merge status fresh. Idempotent and
// side-effect free; it does not alter the resolver's state.
func (c *ConflictResolver) Status(ctx context.Context) (domain.MergeStatus, error) {
	return c.git.MergeStatus(ctx)
}

// Merge attempts to merge ref into the current branch. On conflict the
// state becomes Conflicted and the returned status lists the unmerged
// paths; a clean merge (or already up to date) returns to Clean.
func (c *ConflictResolver) Merge(ctx context.Context, ref string) (domain.MergeStatus, error) {
	c.state = domain.MergeStateMerging

	out, mergeErr := c.git.run(ctx, "merge", "--no-edit", ref)
	if mergeErr == nil {
		c.state = domain.MergeStateClean
		if strings.Contains(out, "Already up to date") {
			logger.Debugf("merge of %s: already up to date", ref)
		}
		return domain.MergeStatus{}, nil
	}

	status, statusErr := c.git.MergeStatus(ctx)
	if statusErr != nil {
		c.state = domain.MergeStateClean
		return status, fmt.Errorf("merge failed and status unreadable: %w", statusErr)
	}
	if status.InMerge || len(status.Conflicts) > 0 {
		c.state = domain.MergeStateConflicted
		return status, fmt.Errorf("%w: %d conflicting files", domain.ErrMergeConflict, len(status.Conflicts))
	}

	// The merge failed outright without entering a conflicted state
	// (e.g. unrelated histories, unknown ref).
	c.state = domain.MergeStateClean
	return status, mergeErr
}

// Resolve finishes a conflicted merge. ResolveOurs and ResolveTheirs
// mechanically re-stage every conflicting path from the chosen side and
// commit; ResolveManual leaves everything for the caller and the state
// stays Conflicted. After mechanical resolution the merge status is
// re-checked; residual unmerged paths keep the state Conflicted rather
// than being assumed resolved.
func (c *ConflictResolver) Resolve(ctx context.Context, strategy domain.ResolveStrategy) error {
	status, err := c.git.MergeStatus(ctx)
	if err != nil {
		return err
	}
	if !status.InMerge {
		return domain.ErrNotConflicted
	}
	c.state = domain.MergeStateConflicted

	if strategy == domain.ResolveManual {
		logger.Infof("leaving %d conflicts for manual resolution", len(status.Conflicts))
		return nil
	}

	side := "--ours"
	if strategy == domain.ResolveTheirs {
		side = "--theirs"
	}

	for _, path := range status.Conflicts {
		if _, err = c.git.run(ctx, "checkout", side, "--", path); err != nil {
			// A path deleted on the chosen side cannot be checked out;
			// resolve the entry by removing it instead.
			if _, rmErr := c.git.run(ctx, "rm", "--", path); rmErr != nil {
				return fmt.Errorf("failed to resolve %q with %s: %w", path, side, err)
			}
			continue
		}
		if _, err = c.git.run(ctx, "add", "--", path); err != nil {
			return fmt.Errorf("failed to re-stage %q: %w", path, err)
		}
	}

	after, err := c.git.MergeStatus(ctx)
	if err != nil {
		return err
	}
	if len(after.Conflicts) > 0 {
		return fmt.Errorf("%w: %d paths", domain.ErrUnresolvedConflicts, len(after.Conflicts))
	}

	if _, err = c.git.run(ctx, "commit", "--no-edit"); err != nil {
		return fmt.Errorf("failed to commit resolution: %w", err)
	}
	c.state = domain.MergeStateResolved
	logger.Infof("resolved %d conflicts using %s", len(status.Conflicts), strategy)
	return nil
}

// Abort discards the in-progress merge and returns the repository and
// the resolver to Clean.
func (c *ConflictResolver) Abort(ctx context.Context) error {
	status, err := c.git.MergeStatus(ctx)
	if err != nil {
		return err
	}
	if !status.InMerge {
		return domain.ErrNotConflicted
	}
	if _, err := c.git.run(ctx, "merge", "--abort"); err != nil {
		return fmt.Errorf("failed to abort merge: %w", err)
	}
	c.state = domain.MergeStateAborted
	return nil
}
