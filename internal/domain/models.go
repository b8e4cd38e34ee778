package domain

import "path/filepath"

// RefKind identifies which variant of a RefSpec is active.
type RefKind int

const (
	// RefHead selects the remote's default branch (HEAD)
	RefHead RefKind = iota
	// RefBranch selects a named branch
	RefBranch
	// RefTag selects a named tag
	RefTag
	// RefCommit selects an explicit commit SHA
	RefCommit
)

// RefSpec is a one-of reference: exactly one variant is active, decided once
// during resolution and never re-interpreted afterwards.
type RefSpec struct {
	Kind   RefKind
	Branch string
	Tag    string
	Commit string
}

// NewHeadRef returns a RefSpec pointing at the remote HEAD.
func NewHeadRef() RefSpec { return RefSpec{Kind: RefHead} }

// NewBranchRef returns a RefSpec for a named branch.
func NewBranchRef(name string) RefSpec { return RefSpec{Kind: RefBranch, Branch: name} }

// NewTagRef returns a RefSpec for a named tag.
func NewTagRef(name string) RefSpec { return RefSpec{Kind: RefTag, Tag: name} }

// NewCommitRef returns a RefSpec for an explicit commit SHA.
func NewCommitRef(sha string) RefSpec { return RefSpec{Kind: RefCommit, Commit: sha} }

// ObjectKind is the repository object addressed by a source URL.
type ObjectKind string

const (
	// KindUnset means the URL addressed the repository root
	KindUnset ObjectKind = ""
	// KindTree means the URL addressed a directory
	KindTree ObjectKind = "tree"
	// KindBlob means the URL addressed a single file
	KindBlob ObjectKind = "blob"
)

// IngestionRequest is the caller-supplied configuration for one run. It is
// immutable for the duration of the request.
type IngestionRequest struct {
	Source            string
	MaxFileSize       int64
	IncludePatterns   []string
	ExcludePatterns   []string
	Branch            string
	Tag               string
	Commit            string
	IncludeSubmodules bool
	IncludeGitignored bool
	Token             string
}

// ResolvedAddress is the canonical form of a source string. Exactly one of
// {URL, LocalPath} is meaningful; Subpath defaults to "/" for the repo root.
type ResolvedAddress struct {
	Host      string
	Owner     string
	Repo      string
	URL       string
	LocalPath string
	Slug      string
	Kind      ObjectKind
	Subpath   string
	Ref       RefSpec
	ID        string
	WorkDir   string
}

// IsRemote reports whether the address points at a remote repository.
func (a *ResolvedAddress) IsRemote() bool { return a.URL != "" }

// CloneConfig is the derived view of a ResolvedAddress consumed by the clone
// orchestrator and nothing else.
type CloneConfig struct {
	URL        string
	LocalPath  string
	Ref        RefSpec
	Subpath    string
	Blob       bool
	Submodules bool
}

// CloneView derives the CloneConfig for this address.
func (a *ResolvedAddress) CloneView() CloneConfig {
	return CloneConfig{
		URL:       a.URL,
		LocalPath: a.WorkDir,
		Ref:       a.Ref,
		Subpath:   a.Subpath,
		Blob:      a.Kind == KindBlob,
	}
}

// NodeType tags an FSNode variant.
type NodeType int

const (
	// NodeDirectory is a directory node
	NodeDirectory NodeType = iota
	// NodeFile is a regular file node
	NodeFile
	// NodeSymlink is a symbolic link node
	NodeSymlink
)

// FSNode is one entry of the materialized tree. Directory aggregates equal
// the sums over their children once traversal of the directory completes.
type FSNode struct {
	Name       string
	Type       NodeType
	Path       string // absolute path on disk
	RelPath    string // path relative to the repository root, "/"-separated
	Size       int64
	FileCount  int
	DirCount   int
	Depth      int
	LinkTarget string // symlinks only
	Content    string // files only, filled by the extractor
	Children   []*FSNode
}

// IsDir reports whether the node is a directory.
func (n *FSNode) IsDir() bool { return n.Type == NodeDirectory }

// Base returns the display name of the node, falling back to the path base
// for the root node.
func (n *FSNode) Base() string {
	if n.Name != "" {
		return n.Name
	}
	return filepath.Base(n.Path)
}

// TraversalStats accumulates totals across one whole traversal. It is shared
// by reference down the recursion and mutated by a single goroutine.
type TraversalStats struct {
	TotalFiles int
	TotalBytes int64
}

// IngestionResult holds the three output strings of a digest. It is produced
// once per request and never mutated afterwards.
type IngestionResult struct {
	Summary string `json:"summary"`
	Tree    string `json:"tree"`
	Content string `json:"content"`
}
