package syncer_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forksync/forksync/domain"
	"github.com/forksync/forksync/infrastructure/retry"
	"github.com/forksync/forksync/infrastructure/syncer"
)

// initUpstream creates a local "upstream" repository with one commit on main.
func initUpstream(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := filepath.Join(t.TempDir(), "upstream")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	runGit(t, dir, "init", "-b", "main")
	configureIdentity(t, dir)
	writeFile(t, dir, "README.md", "base\n")
	commitAll(t, dir, "initial commit")
	return dir
}

// cloneFork clones the upstream into a sibling "fork" working copy.
func cloneFork(t *testing.T, upstream string) string {
	t.Helper()
	dir := filepath.Join(filepath.Dir(upstream), "fork")
	runGit(t, filepath.Dir(upstream), "clone", upstream, dir)
	configureIdentity(t, dir)
	return dir
}

func configureIdentity(t *testing.T, dir string) {
	t.Helper()
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")
	runGit(t, dir, "config", "commit.gpgsign", "false")
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func commitAll(t *testing.T, dir, message string) {
	t.Helper()
	runGit(t, dir, "add", "-A")
	runGit(t, dir, "commit", "-m", message)
}

func forkRepository(fork, upstream string) domain.Repository {
	return domain.Repository{
		Name:        "fork",
		Path:        fork,
		UpstreamURL: upstream,
		Branch:      "main",
	}
}

func newSyncer(opts syncer.Options) *syncer.Syncer {
	if opts.Policy == nil {
		opts.Policy = retry.ExponentialBackoff{BaseDelay: 10 * time.Millisecond}
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 2
	}
	return syncer.New(nil, opts)
}

func TestSyncerOperation(t *testing.T) {
	t.Parallel()

	t.Run("should merge new upstream commits into the fork", func(t *testing.T) {
		t.Parallel()

		// given
		upstream := initUpstream(t)
		fork := cloneFork(t, upstream)
		writeFile(t, upstream, "feature.txt", "new upstream work\n")
		commitAll(t, upstream, "upstream feature")

		op := newSyncer(syncer.Options{}).Operation()

		// when
		outcome, err := op(context.Background(), forkRepository(fork, upstream))

		// then
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, "1", outcome.Details["commits_behind"])
		assert.Equal(t, "new upstream work\n", readFile(t, fork, "feature.txt"))
	})

	t.Run("should report already up to date without upstream changes", func(t *testing.T) {
		t.Parallel()

		// given
		upstream := initUpstream(t)
		fork := cloneFork(t, upstream)
		op := newSyncer(syncer.Options{}).Operation()

		// when
		outcome, err := op(context.Background(), forkRepository(fork, upstream))

		// then
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Contains(t, outcome.Message, "already up to date")
		assert.Equal(t, "0", outcome.Details["commits_behind"])
	})

	t.Run("should not touch the repository in dry-run mode", func(t *testing.T) {
		t.Parallel()

		// given
		upstream := initUpstream(t)
		fork := cloneFork(t, upstream)
		writeFile(t, upstream, "feature.txt", "new upstream work\n")
		commitAll(t, upstream, "upstream feature")

		op := newSyncer(syncer.Options{DryRun: true}).Operation()

		// when
		outcome, err := op(context.Background(), forkRepository(fork, upstream))

		// then
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Contains(t, outcome.Message, "would fetch")
		assert.NoFileExists(t, filepath.Join(fork, "feature.txt"))
	})

	t.Run("should restore uncommitted changes after the merge", func(t *testing.T) {
		t.Parallel()

		// given
		upstream := initUpstream(t)
		fork := cloneFork(t, upstream)
		writeFile(t, upstream, "feature.txt", "upstream work\n")
		commitAll(t, upstream, "upstream feature")
		writeFile(t, fork, "notes.txt", "my local notes\n")

		op := newSyncer(syncer.Options{}).Operation()

		// when
		outcome, err := op(context.Background(), forkRepository(fork, upstream))

		// then
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.NotEmpty(t, outcome.Details["stash"])
		assert.Empty(t, outcome.Details["stash_kept"])
		assert.Equal(t, "my local notes\n", readFile(t, fork, "notes.txt"))
		assert.Equal(t, "upstream work\n", readFile(t, fork, "feature.txt"))
	})

	t.Run("should abort a conflicted merge by default", func(t *testing.T) {
		t.Parallel()

		// given
		upstream := initUpstream(t)
		fork := cloneFork(t, upstream)
		writeFile(t, upstream, "README.md", "upstream version\n")
		commitAll(t, upstream, "upstream change")
		writeFile(t, fork, "README.md", "fork version\n")
		commitAll(t, fork, "fork change")

		op := newSyncer(syncer.Options{}).Operation()

		// when
		outcome, err := op(context.Background(), forkRepository(fork, upstream))

		// then
		require.ErrorIs(t, err, domain.ErrMergeConflict)
		assert.Equal(t, "aborted", outcome.Details["resolution"])
		assert.Equal(t, "1", outcome.Details["conflicts"])
		assert.Equal(t, "fork version\n", readFile(t, fork, "README.md"))
	})

	t.Run("should resolve conflicts in favor of upstream with theirs", func(t *testing.T) {
		t.Parallel()

		// given
		upstream := initUpstream(t)
		fork := cloneFork(t, upstream)
		writeFile(t, upstream, "README.md", "upstream version\n")
		commitAll(t, upstream, "upstream change")
		writeFile(t, fork, "README.md", "fork version\n")
		commitAll(t, fork, "fork change")

		op := newSyncer(syncer.Options{ConflictStrategy: syncer.StrategyTheirs}).Operation()

		// when
		outcome, err := op(context.Background(), forkRepository(fork, upstream))

		// then
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, "theirs", outcome.Details["resolved_with"])
		assert.Equal(t, "upstream version\n", readFile(t, fork, "README.md"))
	})

	t.Run("should keep the local side with ours", func(t *testing.T) {
		t.Parallel()

		// given
		upstream := initUpstream(t)
		fork := cloneFork(t, upstream)
		writeFile(t, upstream, "README.md", "upstream version\n")
		commitAll(t, upstream, "upstream change")
		writeFile(t, fork, "README.md", "fork version\n")
		commitAll(t, fork, "fork change")

		op := newSyncer(syncer.Options{ConflictStrategy: syncer.StrategyOurs}).Operation()

		// when
		outcome, err := op(context.Background(), forkRepository(fork, upstream))

		// then
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, "fork version\n", readFile(t, fork, "README.md"))
	})

	t.Run("should leave a conflicted merge in place with manual", func(t *testing.T) {
		t.Parallel()

		// given
		upstream := initUpstream(t)
		fork := cloneFork(t, upstream)
		writeFile(t, upstream, "README.md", "upstream version\n")
		commitAll(t, upstream, "upstream change")
		writeFile(t, fork, "README.md", "fork version\n")
		commitAll(t, fork, "fork change")

		op := newSyncer(syncer.Options{ConflictStrategy: syncer.StrategyManual}).Operation()

		// when
		outcome, err := op(context.Background(), forkRepository(fork, upstream))

		// then
		require.ErrorIs(t, err, domain.ErrMergeConflict)
		assert.Equal(t, "manual", outcome.Details["resolution"])
		assert.Contains(t, readFile(t, fork, "README.md"), "<<<<<<<")
	})

	t.Run("should push the merged branch when enabled", func(t *testing.T) {
		t.Parallel()

		// given a bare origin so the push is accepted
		upstream := initUpstream(t)
		fork := cloneFork(t, upstream)
		origin := filepath.Join(filepath.Dir(upstream), "origin.git")
		runGit(t, filepath.Dir(upstream), "clone", "--bare", fork, origin)
		runGit(t, fork, "remote", "set-url", "origin", origin)

		writeFile(t, upstream, "feature.txt", "upstream work\n")
		commitAll(t, upstream, "upstream feature")

		op := newSyncer(syncer.Options{Push: true}).Operation()

		// when
		outcome, err := op(context.Background(), forkRepository(fork, upstream))

		// then
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, "true", outcome.Details["pushed"])
	})

	t.Run("should fail without any way to determine the upstream", func(t *testing.T) {
		t.Parallel()

		// given a plain repository with no remotes and no configured upstream
		upstream := initUpstream(t)
		repo := domain.Repository{Name: "standalone", Path: upstream}

		op := newSyncer(syncer.Options{}).Operation()

		// when
		_, err := op(context.Background(), repo)

		// then
		require.ErrorIs(t, err, domain.ErrNoUpstream)
	})
}
