package gitrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/forksync/forksync/domain"
)

// CreateStash sets aside all uncommitted changes (untracked included)
// under the given message and returns a record referencing the new entry.
// It returns nil when the working tree turned out to have nothing to stash.
func (r *Runner) CreateStash(ctx context.Context, message string) (*domain.StashRecord, error) {
	out, err := r.run(ctx, "stash", "push", "--include-untracked", "-m", message)
	if err != nil {
		return nil, fmt.Errorf("failed to create stash: %w", err)
	}
	if strings.Contains(out, "No local changes to save") {
		return nil, nil
	}

	// The entry just pushed is the newest one; resolve its positional ref
	// so callers can report it even after further stash activity.
	stashes, err := r.ListStashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("stash created but list failed: %w", err)
	}
	for _, s := range stashes {
		if strings.Contains(s.Message, message) {
			return &domain.StashRecord{Ref: s.Ref, Message: message}, nil
		}
	}
	// Fall back to the newest entry.
	if len(stashes) > 0 {
		return &domain.StashRecord{Ref: stashes[0].Ref, Message: message}, nil
	}
	return nil, nil
}

// ApplyStash reapplies the given stash entry to the working tree without
// removing it from the stash list.
func (r *Runner) ApplyStash(ctx context.Context, ref string) error {
	if _, err := r.run(ctx, "stash", "apply", ref); err != nil {
		return fmt.Errorf("failed to apply %s: %w", ref, err)
	}
	return nil
}

// DropStash removes the given entry from the stash list.
func (r *Runner) DropStash(ctx context.Context, ref string) error {
	if _, err := r.run(ctx, "stash", "drop", ref); err != nil {
		return fmt.Errorf("failed to drop %s: %w", ref, err)
	}
	return nil
}

// ListStashes returns all stash entries, newest first.
func (r *Runner) ListStashes(ctx context.Context) ([]domain.StashRecord, error) {
	out, err := r.run(ctx, "stash", "list", "--format=%gd\x1f%gs")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var stashes []domain.StashRecord
	for _, line := range strings.Split(out, "\n") {
		ref, message, found := strings.Cut(line, "\x1f")
		if !found {
			continue
		}
		stashes = append(stashes, domain.StashRecord{Ref: ref, Message: message})
	}
	return stashes, nil
}
