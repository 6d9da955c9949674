package domain

import (
	"context"
	"time"
)

// Repository describes a single local clone to be synchronized with its
// upstream project. It is immutable once handed to the batch layer; each
// instance is owned exclusively by the worker processing it.
type Repository struct {
	Name         string
	Path         string            // Local filesystem path of the clone
	UpstreamURL  string            // Optional; discovered via the provider when empty
	ProviderName string            // "github", "gitlab", ... ; empty means offline-only
	Branch       string            // Branch to sync; defaults to the checked-out branch
	Config       map[string]string // Free-form options passed through to the operation
}

// Outcome is the structured result an operation reports for one repository.
// Success is the operation's own verdict; the batch layer never infers it
// from the absence of an error alone.
type Outcome struct {
	Success bool
	Message string
	Details map[string]string
}

// Operation is a unit of work applied to one repository by the batch layer.
type Operation func(ctx context.Context, repo Repository) (Outcome, error)

// BatchResult records the outcome of one repository within a batch.
// Exactly one is produced per submitted repository; it is never mutated
// after creation.
type BatchResult struct {
	Name      string
	Path      string
	Success   bool
	Operation string
	Message   string
	Details   map[string]string
	Duration  time.Duration
	Err       error
}

// Quota is the provider-reported request budget, taken from response headers.
type Quota struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// StashRecord references a stash entry created by the transactional
// executor. A nil record means the working tree was clean and nothing
// was stashed.
type StashRecord struct {
	Ref     string // e.g. "stash@{0}"
	Message string
	Applied bool // Reapplied to the working tree after the operation
	Dropped bool // Dropped from the stash list after a successful reapply
}

// MergeState is the position of a repository in the merge lifecycle.
type MergeState string

const (
	MergeStateClean      MergeState = "clean"
	MergeStateMerging    MergeState = "merging"
	MergeStateConflicted MergeState = "conflicted"
	MergeStateResolved   MergeState = "resolved"
	MergeStateAborted    MergeState = "aborted"
)

// MergeStatus is a point-in-time snapshot of a repository's merge state.
// It is recomputed fresh on every query and never cached.
type MergeStatus struct {
	InMerge   bool
	Conflicts []string // Paths with unmerged index entries
}

// ResolveStrategy selects how conflicted paths are resolved.
type ResolveStrategy string

const (
	ResolveOurs   ResolveStrategy = "ours"
	ResolveTheirs ResolveStrategy = "theirs"
	ResolveManual ResolveStrategy = "manual"
)

// UpstreamInfo is what a hosting provider knows about a fork's parent.
type UpstreamInfo struct {
	CloneURL      string
	DefaultBranch string
	FullName      string // e.g. "upstream-org/project"
}
