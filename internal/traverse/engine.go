package traverse

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"

	"github.com/quantmind-br/gitingest-go/internal/domain"
	"github.com/quantmind-br/gitingest-go/internal/utils"
)

// ExtractFunc renders one regular file into its textual representation.
// A non-fatal error keeps the returned body as degraded placeholder text;
// a fatal error drops the file from the tree.
type ExtractFunc func(path string) (string, error)

// Engine walks a materialized repository tree under hard resource budgets.
type Engine struct {
	maxFileSize   int64
	maxTotalBytes int64
	maxFiles      int
	maxDepth      int

	include       *Set
	exclude       *Set
	defaultIgnore *Set

	respectGitignore bool
	extract          ExtractFunc
	logger           *utils.Logger

	truncated    bool
	depthClipped bool
}

// EngineOptions contains options for creating an Engine.
type EngineOptions struct {
	MaxFileSize   int64
	MaxTotalBytes int64
	MaxFiles      int
	MaxDepth      int

	IncludePatterns       []string
	ExcludePatterns       []string
	DefaultIgnorePatterns []string

	RespectGitignore bool
	Extract          ExtractFunc
	Logger           *utils.Logger
}

// NewEngine creates a traversal engine.
func NewEngine(opts EngineOptions) *Engine {
	extract := opts.Extract
	if extract == nil {
		extract = func(string) (string, error) { return "", nil }
	}
	return &Engine{
		maxFileSize:      opts.MaxFileSize,
		maxTotalBytes:    opts.MaxTotalBytes,
		maxFiles:         opts.MaxFiles,
		maxDepth:         opts.MaxDepth,
		include:          Compile(opts.IncludePatterns),
		exclude:          Compile(opts.ExcludePatterns),
		defaultIgnore:    Compile(opts.DefaultIgnorePatterns),
		respectGitignore: opts.RespectGitignore,
		extract:          extract,
		logger:           opts.Logger,
	}
}

// Walk builds the tree model for root/subpath and the aggregate stats. A
// missing target path is the only error condition; limit breaches truncate.
func (e *Engine) Walk(root, subpath string) (*domain.FSNode, *domain.TraversalStats, error) {
	target := filepath.Join(root, filepath.FromSlash(strings.Trim(subpath, "/")))
	info, err := os.Lstat(target)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrPathNotFound, subpath)
	}

	stats := &domain.TraversalStats{}
	e.truncated = false
	e.depthClipped = false

	var ignorer gitignore.IgnoreMatcher
	if e.respectGitignore {
		ignorer = loadGitignore(root)
	}

	if !info.IsDir() {
		node := e.fileNode(target, relOf(root, target), 0, info, stats)
		if node == nil {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrPathNotFound, subpath)
		}
		return node, stats, nil
	}

	rootNode := &domain.FSNode{
		Name:    filepath.Base(target),
		Type:    domain.NodeDirectory,
		Path:    target,
		RelPath: relOf(root, target),
	}
	e.walkDir(rootNode, root, stats, ignorer)

	if (e.truncated || e.depthClipped) && e.logger != nil {
		e.logger.Warn().
			Int("files", stats.TotalFiles).
			Int64("bytes", stats.TotalBytes).
			Bool("depth_clipped", e.depthClipped).
			Msg("Traversal truncated by resource limits")
	}
	return rootNode, stats, nil
}

// walkDir populates dir's children recursively. Aggregates are summed on the
// way back up so directory totals always equal their children's totals.
func (e *Engine) walkDir(dir *domain.FSNode, root string, stats *domain.TraversalStats, ignorer gitignore.IgnoreMatcher) {
	// Depth clipping stops descent only; siblings of this directory still walk.
	if dir.Depth >= e.maxDepth {
		e.depthClipped = true
		return
	}

	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn().Err(err).Str("path", dir.Path).Msg("Cannot read directory")
		}
		return
	}

	for _, entry := range entries {
		if e.truncated {
			break
		}

		absPath := filepath.Join(dir.Path, entry.Name())
		relPath := joinRel(dir.RelPath, entry.Name())
		isDir := entry.IsDir()

		if e.excluded(relPath, isDir) {
			continue
		}
		if ignorer != nil && ignorer.Match(absPath, isDir) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			if stats.TotalFiles >= e.maxFiles {
				e.truncated = true
				continue
			}
			target, _ := os.Readlink(absPath)
			stats.TotalFiles++
			dir.Children = append(dir.Children, &domain.FSNode{
				Name:       entry.Name(),
				Type:       domain.NodeSymlink,
				Path:       absPath,
				RelPath:    relPath,
				Depth:      dir.Depth + 1,
				LinkTarget: target,
				FileCount:  1,
			})

		case isDir:
			child := &domain.FSNode{
				Name:    entry.Name(),
				Type:    domain.NodeDirectory,
				Path:    absPath,
				RelPath: relPath,
				Depth:   dir.Depth + 1,
			}
			e.walkDir(child, root, stats, ignorer)
			// Empty filtered directories never appear in the output.
			if len(child.Children) == 0 {
				continue
			}
			dir.Children = append(dir.Children, child)

		default:
			node := e.fileNode(absPath, relPath, dir.Depth+1, info, stats)
			if node == nil {
				continue
			}
			dir.Children = append(dir.Children, node)
		}
	}

	sortChildren(dir.Children)

	for _, child := range dir.Children {
		dir.Size += child.Size
		dir.FileCount += child.FileCount
		if child.IsDir() {
			dir.DirCount += child.DirCount + 1
		}
	}
}

// fileNode builds a file leaf, applying include filtering and size budgets.
// Returns nil when the file is filtered or a budget stops accumulation.
func (e *Engine) fileNode(absPath, relPath string, depth int, info os.FileInfo, stats *domain.TraversalStats) *domain.FSNode {
	if !e.include.Empty() && !e.include.Matches(relPath, false) {
		return nil
	}

	size := info.Size()
	// Oversize files are skipped without charging any budget.
	if size > e.maxFileSize {
		if e.logger != nil {
			e.logger.Debug().Str("path", relPath).Int64("size", size).Msg("Skipping oversize file")
		}
		return nil
	}

	if stats.TotalFiles >= e.maxFiles || stats.TotalBytes+size > e.maxTotalBytes {
		e.truncated = true
		return nil
	}
	content, err := e.extract(absPath)
	if err != nil && domain.IsFatal(err) {
		if e.logger != nil {
			e.logger.Warn().Err(err).Str("path", relPath).Msg("Skipping unreadable file")
		}
		return nil
	}

	stats.TotalFiles++
	stats.TotalBytes += size

	return &domain.FSNode{
		Name:      filepath.Base(absPath),
		Type:      domain.NodeFile,
		Path:      absPath,
		RelPath:   relPath,
		Size:      size,
		FileCount: 1,
		Depth:     depth,
		Content:   content,
	}
}

// excluded applies the merged exclude semantics: user excludes always win;
// the default ignore set can be overridden by an include pattern naming the
// same path.
func (e *Engine) excluded(relPath string, isDir bool) bool {
	if e.exclude.Matches(relPath, isDir) {
		return true
	}
	if e.defaultIgnore.Matches(relPath, isDir) {
		return e.include.Empty() || !e.include.Matches(relPath, isDir)
	}
	return false
}

// sortChildren orders children into the five display buckets: README files,
// other files, hidden files, directories, hidden directories; alphabetical
// within each bucket.
func sortChildren(children []*domain.FSNode) {
	sort.SliceStable(children, func(i, j int) bool {
		bi, bj := sortBucket(children[i]), sortBucket(children[j])
		if bi != bj {
			return bi < bj
		}
		return strings.ToLower(children[i].Name) < strings.ToLower(children[j].Name)
	})
}

func sortBucket(n *domain.FSNode) int {
	hidden := utils.IsHidden(n.Name)
	switch {
	case !n.IsDir() && strings.HasPrefix(strings.ToLower(n.Name), "readme"):
		return 0
	case !n.IsDir() && !hidden:
		return 1
	case !n.IsDir():
		return 2
	case !hidden:
		return 3
	default:
		return 4
	}
}

// multiIgnorer reports a match when any of its matchers does.
type multiIgnorer []gitignore.IgnoreMatcher

func (m multiIgnorer) Match(path string, isDir bool) bool {
	for _, im := range m {
		if im.Match(path, isDir) {
			return true
		}
	}
	return false
}

// loadGitignore loads the repository root .gitignore and .git/info/exclude,
// whichever are present.
func loadGitignore(root string) gitignore.IgnoreMatcher {
	var matchers multiIgnorer
	for _, p := range []string{
		filepath.Join(root, ".gitignore"),
		filepath.Join(root, ".git", "info", "exclude"),
	} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if m, err := gitignore.NewGitIgnore(p, root); err == nil {
			matchers = append(matchers, m)
		}
	}
	if len(matchers) == 0 {
		return nil
	}
	return matchers
}

func relOf(root, target string) string {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

func joinRel(parent, name string) string {
	if parent == "" {
		return name
	}
	return path.Join(parent, name)
}
