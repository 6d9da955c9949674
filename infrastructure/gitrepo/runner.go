// Package gitrepo is the version-control command surface: an exec-based
// git runner plus the transactional stash executor and the merge-conflict
// state machine built on top of it.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/forksync/forksync/infrastructure/retry"
)

// CommandError is a failed git invocation with its captured stderr.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf(
		"git %s: exit %d: %s",
		strings.Join(e.Args, " "), e.ExitCode, strings.TrimSpace(e.Stderr),
	)
}

// transientPatterns are stderr fragments of network-flavored git failures
// worth retrying.
var transientPatterns = []string{
	"could not resolve host",
	"connection reset",
	"connection timed out",
	"operation timed out",
	"the remote end hung up unexpectedly",
	"early eof",
	"503",
	"502",
}

// Runner executes git commands in a single repository directory.
// A repository is only ever driven by one worker at a time, so Runner
// carries no locking of its own.
type Runner struct {
	dir string
}

// NewRunner creates a runner for the repository at dir.
func NewRunner(dir string) *Runner {
	return &Runner{dir: dir}
}

// Dir returns the repository directory this runner operates on.
func (r *Runner) Dir() string { return r.dir }

// run executes git with the given arguments and returns trimmed stdout.
func (r *Runner) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debugf("running git %s in %s", strings.Join(args, " "), r.dir)

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return strings.TrimSpace(stdout.String()), &CommandError{
			Args:     args,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Fetch downloads objects and refs from the given remote. Network-flavored
// failures are marked transient so the retry layer will retry them.
func (r *Runner) Fetch(ctx context.Context, remote string) error {
	if _, err := r.run(ctx, "fetch", "--prune", remote); err != nil {
		return classifyNetworkError(err)
	}
	return nil
}

// Push publishes the given branch to the remote.
func (r *Runner) Push(ctx context.Context, remote, branch string) error {
	if _, err := r.run(ctx, "push", remote, branch); err != nil {
		return classifyNetworkError(err)
	}
	return nil
}

func classifyNetworkError(err error) error {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return err
	}
	stderr := strings.ToLower(cmdErr.Stderr)
	for _, pattern := range transientPatterns {
		if strings.Contains(stderr, pattern) {
			return retry.Transient(err)
		}
	}
	return err
}
