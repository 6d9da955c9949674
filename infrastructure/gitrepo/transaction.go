package gitrepo

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/forksync/forksync/domain"
)

// StashLabel marks stashes created by this tool so they are identifiable
// in `git stash list`.
const StashLabel = "forksync: auto-stash"

// Transaction wraps a working-tree mutation with stash-before /
// restore-after semantics. Per invocation the lifecycle is
// Clean -> (if dirty) Stashed -> Operating -> Restored or LeftStashed.
type Transaction struct {
	git *Runner
}

// NewTransaction creates a transactional executor for the runner's repository.
func NewTransaction(git *Runner) *Transaction {
	return &Transaction{git: git}
}

// Run makes op safe in the presence of uncommitted changes. If the tree
// is dirty a labeled stash is created first, and on every exit path,
// whether op succeeded or failed, a reapply is attempted. A successful
// reapply drops the now-redundant entry. When the reapply itself fails
// the stash is left in place and its ref is surfaced so the changes can
// be recovered manually.
//
// The returned record is nil when the tree was clean; otherwise its
// Applied/Dropped flags tell the caller whether manual recovery is needed.
func (t *Transaction) Run(
	ctx context.Context,
	op func(ctx context.Context) error,
) (*domain.StashRecord, error) {
	dirty, err := t.git.HasUncommittedChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect working tree: %w", err)
	}

	var stash *domain.StashRecord
	if dirty {
		stash, err = t.git.CreateStash(ctx, StashLabel)
		if err != nil {
			return nil, err
		}
		if stash != nil {
			logger.Debugf("stashed uncommitted changes as %s", stash.Ref)
		}
	}

	opErr := op(ctx)

	if stash == nil {
		return nil, opErr
	}
	return stash, t.restore(ctx, stash, opErr)
}

// restore reapplies the stash and folds any restore failure into the
// operation's error. The stash entry is dropped only after a successful
// reapply, never before.
func (t *Transaction) restore(
	ctx context.Context,
	stash *domain.StashRecord,
	opErr error,
) error {
	if applyErr := t.git.ApplyStash(ctx, stash.Ref); applyErr != nil {
		logger.Warnf(
			"could not restore stashed changes, kept in %s: %v", stash.Ref, applyErr,
		)
		if opErr != nil {
			return fmt.Errorf(
				"%w (uncommitted changes kept in %s: %v)", opErr, stash.Ref, applyErr,
			)
		}
		return fmt.Errorf(
			"operation succeeded but restoring uncommitted changes failed, kept in %s: %w",
			stash.Ref, applyErr,
		)
	}
	stash.Applied = true

	if dropErr := t.git.DropStash(ctx, stash.Ref); dropErr != nil {
		// Changes are already back in the tree; the stale entry is
		// harmless but worth mentioning.
		logger.Warnf("restored changes but could not drop %s: %v", stash.Ref, dropErr)
		return opErr
	}
	stash.Dropped = true
	return opErr
}
