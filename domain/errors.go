package domain

import "errors"

var (
	// ErrNotAFork is returned when a provider lookup finds the repository
	// but it has no upstream parent.
	ErrNotAFork = errors.New("repository is not a fork")

	// ErrNoUpstream is returned when no upstream URL is configured and
	// none could be discovered.
	ErrNoUpstream = errors.New("no upstream configured or discoverable")

	// ErrMergeConflict is returned when a merge stops on conflicts.
	ErrMergeConflict = errors.New("merge resulted in conflicts")

	// ErrUnresolvedConflicts is returned when a mechanical resolution
	// left unmerged paths behind.
	ErrUnresolvedConflicts = errors.New("conflicts remain after resolution")

	// ErrNotConflicted is returned when a resolve or abort is requested
	// but no merge is in progress.
	ErrNotConflicted = errors.New("no merge in progress")
)
