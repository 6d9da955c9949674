package gitrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forksync/forksync/domain"
)

// HasUncommittedChanges reports whether the working tree or index differs
// from HEAD, including untracked files.
func (r *Runner) HasUncommittedChanges(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// CurrentBranch returns the name of the checked-out branch.
func (r *Runner) CurrentBranch(ctx context.Context) (string, error) {
	return r.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// CommitsBehind counts commits reachable from ref but not from HEAD.
func (r *Runner) CommitsBehind(ctx context.Context, ref string) (int, error) {
	out, err := r.run(ctx, "rev-list", "--count", "HEAD.."+ref)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("unexpected rev-list output %q: %w", out, err)
	}
	return n, nil
}

// unmergedCodes are the porcelain XY codes of index entries that are
// unmerged on at least one side.
var unmergedCodes = map[string]bool{
	"DD": true, "AU": true, "UD": true,
	"UA": true, "DU": true, "AA": true, "UU": true,
}

// MergeStatus recomputes the repository's merge state from scratch:
// MERGE_HEAD presence plus the unmerged entries in the index. It is
// side-effect free and may be called at any time.
func (r *Runner) MergeStatus(ctx context.Context) (domain.MergeStatus, error) {
	status := domain.MergeStatus{}

	gitDir, err := r.run(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return status, err
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(r.dir, gitDir)
	}
	if _, statErr := os.Stat(filepath.Join(gitDir, "MERGE_HEAD")); statErr == nil {
		status.InMerge = true
	}

	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return status, err
	}
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		if unmergedCodes[line[:2]] {
			status.Conflicts = append(status.Conflicts, strings.TrimSpace(line[3:]))
		}
	}
	return status, nil
}
