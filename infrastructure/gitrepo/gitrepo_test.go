package gitrepo_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// initRepo creates a throwaway git repository with one commit on main.
func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")
	runGit(t, dir, "config", "commit.gpgsign", "false")

	writeFile(t, dir, "README.md", "initial\n")
	commitAll(t, dir, "initial commit")
	return dir
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
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

// makeConflictingBranches commits one version of README.md on main and a
// diverging version on a feature branch, leaving main checked out.
func makeConflictingBranches(t *testing.T, dir string) {
	t.Helper()
	runGit(t, dir, "checkout", "-b", "feature")
	writeFile(t, dir, "README.md", "feature version\n")
	commitAll(t, dir, "feature change")
	runGit(t, dir, "checkout", "main")
	writeFile(t, dir, "README.md", "main version\n")
	commitAll(t, dir, "main change")
}

// mergeExpectingConflict merges ref with plain git, requiring it to stop
// on a conflict.
func mergeExpectingConflict(t *testing.T, dir, ref string) {
	t.Helper()
	cmd := exec.Command("git", "merge", "--no-edit", ref)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.Error(t, err, "expected a merge conflict, got: %s", out)
}
