package domain

import (
	"context"
	"time"
)

// RemoteRef is one line of a remote reference listing.
type RemoteRef struct {
	Name   string // full ref name, e.g. refs/heads/main or refs/tags/v1.0^{}
	Hash   string // 40-hex commit or tag object SHA
	Peeled bool   // true for dereferenced (^{}) tag entries
}

// RemoteLister lists references advertised by a remote without cloning.
type RemoteLister interface {
	// ListRefs returns the advertised refs of url, optionally authenticated
	// with a bearer token. Peeled tag entries are included.
	ListRefs(ctx context.Context, url, token string) ([]RemoteRef, error)
}

// GitRunner is the narrow capability surface over the git tool. Any
// implementation (subprocess or native binding) satisfies the orchestrator.
type GitRunner interface {
	// Version returns the installed git version, or an error if git is absent.
	Version(ctx context.Context) (string, error)
	// CloneShallow performs a depth-1 single-branch no-checkout clone.
	CloneShallow(ctx context.Context, url, dest, branch, token string) error
	// ClonePartial performs a blob-filtered sparse depth-1 no-checkout clone.
	ClonePartial(ctx context.Context, url, dest, branch, token string) error
	// FetchCommit fetches exactly one commit at depth 1.
	FetchCommit(ctx context.Context, dir, commit, token string) error
	// Checkout checks out a commit in dir.
	Checkout(ctx context.Context, dir, commit string) error
	// SparseCheckoutSet restricts the checkout to the given path.
	SparseCheckoutSet(ctx context.Context, dir, path string) error
	// SubmoduleUpdate updates submodules recursively at depth 1.
	SubmoduleUpdate(ctx context.Context, dir string) error
	// ConfigValue reads a git configuration value, empty if unset.
	ConfigValue(ctx context.Context, key string) (string, error)
}

// Cache stores computed digests keyed by resolved repository state.
type Cache interface {
	// Get retrieves a digest, or ErrCacheMiss.
	Get(ctx context.Context, key string) (*IngestionResult, error)
	// Set stores a digest with a TTL.
	Set(ctx context.Context, key string, result *IngestionResult, ttl time.Duration) error
	// Close releases cache resources.
	Close() error
}

// TokenEstimator estimates LLM token counts. Estimation is best effort: a
// false second return means the count must be omitted, never treated as zero.
type TokenEstimator interface {
	Estimate(text string) (int, bool)
}

// Matcher is a compiled pattern set evaluated against repository-relative
// paths with gitignore wildcard semantics.
type Matcher interface {
	// Matches reports whether relPath is matched by the set, honoring
	// negated patterns that re-include previously matched paths.
	Matches(relPath string, isDir bool) bool
	// Empty reports whether the set contains no patterns.
	Empty() bool
}
