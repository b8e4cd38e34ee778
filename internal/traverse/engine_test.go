package traverse

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/gitingest-go/internal/domain"
)

func testEngine(t *testing.T, opts EngineOptions) *Engine {
	t.Helper()
	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = 1 << 20
	}
	if opts.MaxTotalBytes == 0 {
		opts.MaxTotalBytes = 1 << 30
	}
	if opts.MaxFiles == 0 {
		opts.MaxFiles = 1000
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = 20
	}
	if opts.Extract == nil {
		opts.Extract = func(path string) (string, error) {
			data, err := os.ReadFile(path)
			return string(data), err
		}
	}
	return NewEngine(opts)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func findChild(n *domain.FSNode, name string) *domain.FSNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestWalkAggregates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "aaaa")
	writeFile(t, root, "sub/b.txt", "bb")
	writeFile(t, root, "sub/deep/c.txt", "c")

	engine := testEngine(t, EngineOptions{})
	node, stats, err := engine.Walk(root, "/")
	require.NoError(t, err)

	assert.Equal(t, 3, node.FileCount)
	assert.Equal(t, 2, node.DirCount)
	assert.Equal(t, int64(7), node.Size)
	assert.Equal(t, 3, stats.TotalFiles)
	assert.Equal(t, int64(7), stats.TotalBytes)

	sub := findChild(node, "sub")
	require.NotNil(t, sub)
	assert.Equal(t, 2, sub.FileCount)
	assert.Equal(t, 1, sub.DirCount)
	assert.Equal(t, int64(3), sub.Size)

	// directory aggregates equal the sums over children, recursively
	var sum int64
	for _, c := range node.Children {
		sum += c.Size
	}
	assert.Equal(t, node.Size, sum)
}

func TestWalkChildOrdering(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "zeta.txt", "z")
	writeFile(t, root, "README.md", "r")
	writeFile(t, root, ".env.example", "e")
	writeFile(t, root, "alpha/x.txt", "x")
	writeFile(t, root, ".config/y.txt", "y")

	engine := testEngine(t, EngineOptions{})
	node, _, err := engine.Walk(root, "/")
	require.NoError(t, err)

	var names []string
	for _, c := range node.Children {
		names = append(names, c.Name)
	}
	// README first, then files, hidden files, dirs, hidden dirs
	assert.Equal(t, []string{"README.md", "zeta.txt", ".env.example", "alpha", ".config"}, names)
}

func TestWalkSubpathFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/guide.md", "# Guide\nbody\n")

	engine := testEngine(t, EngineOptions{})
	node, stats, err := engine.Walk(root, "/docs/guide.md")
	require.NoError(t, err)

	assert.Equal(t, domain.NodeFile, node.Type)
	assert.Equal(t, "guide.md", node.Name)
	assert.Equal(t, "# Guide\nbody\n", node.Content)
	assert.Equal(t, 1, stats.TotalFiles)
}

func TestWalkMissingSubpath(t *testing.T) {
	root := t.TempDir()

	engine := testEngine(t, EngineOptions{})
	_, _, err := engine.Walk(root, "/nope")

	assert.ErrorIs(t, err, domain.ErrPathNotFound)
}

func TestWalkOversizeFileSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.txt", "ok")
	writeFile(t, root, "big.txt", "0123456789abcdef")

	engine := testEngine(t, EngineOptions{MaxFileSize: 10})
	node, stats, err := engine.Walk(root, "/")
	require.NoError(t, err)

	assert.Nil(t, findChild(node, "big.txt"))
	assert.NotNil(t, findChild(node, "small.txt"))
	assert.Equal(t, 1, node.FileCount)
	assert.Equal(t, 1, stats.TotalFiles)
	assert.Equal(t, int64(2), stats.TotalBytes)
}

func TestWalkExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "main_test.go", "package main")
	writeFile(t, root, "logs/x.log", "x")

	engine := testEngine(t, EngineOptions{ExcludePatterns: []string{"*_test.go", "logs/"}})
	node, _, err := engine.Walk(root, "/")
	require.NoError(t, err)

	assert.NotNil(t, findChild(node, "main.go"))
	assert.Nil(t, findChild(node, "main_test.go"))
	assert.Nil(t, findChild(node, "logs"))
}

func TestWalkNoopExcludeLeavesOutputUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")
	writeFile(t, root, "b/c.txt", "c")

	plain := testEngine(t, EngineOptions{})
	base, _, err := plain.Walk(root, "/")
	require.NoError(t, err)

	noop := testEngine(t, EngineOptions{ExcludePatterns: []string{"*.nothing-matches-this"}})
	filtered, _, err := noop.Walk(root, "/")
	require.NoError(t, err)

	assert.Equal(t, base.FileCount, filtered.FileCount)
	assert.Equal(t, base.Size, filtered.Size)
	assert.Equal(t, len(base.Children), len(filtered.Children))
}

func TestWalkIncludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "readme.txt", "hello")
	writeFile(t, root, "src/util.go", "package src")

	engine := testEngine(t, EngineOptions{IncludePatterns: []string{"*.go"}})
	node, _, err := engine.Walk(root, "/")
	require.NoError(t, err)

	assert.NotNil(t, findChild(node, "main.go"))
	assert.Nil(t, findChild(node, "readme.txt"))

	src := findChild(node, "src")
	require.NotNil(t, src)
	assert.NotNil(t, findChild(src, "util.go"))
}

func TestWalkDefaultIgnoreOverriddenByInclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.min.js", "min")
	writeFile(t, root, "app.js", "plain")

	// default-ignored and no include naming it
	ignored := testEngine(t, EngineOptions{DefaultIgnorePatterns: []string{"*.min.js"}})
	node, _, err := ignored.Walk(root, "/")
	require.NoError(t, err)
	assert.Nil(t, findChild(node, "app.min.js"))

	// include pattern naming the same path wins over the default set
	included := testEngine(t, EngineOptions{
		DefaultIgnorePatterns: []string{"*.min.js"},
		IncludePatterns:       []string{"*.min.js"},
	})
	node, _, err = included.Walk(root, "/")
	require.NoError(t, err)
	assert.NotNil(t, findChild(node, "app.min.js"))
	assert.Nil(t, findChild(node, "app.js"))
}

func TestWalkRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "exclude.txt\n")
	writeFile(t, root, "include.txt", "keep me")
	writeFile(t, root, "exclude.txt", "drop me")

	respecting := testEngine(t, EngineOptions{RespectGitignore: true})
	node, _, err := respecting.Walk(root, "/")
	require.NoError(t, err)
	assert.NotNil(t, findChild(node, "include.txt"))
	assert.Nil(t, findChild(node, "exclude.txt"))

	permissive := testEngine(t, EngineOptions{RespectGitignore: false})
	node, _, err = permissive.Walk(root, "/")
	require.NoError(t, err)
	assert.NotNil(t, findChild(node, "include.txt"))
	assert.NotNil(t, findChild(node, "exclude.txt"))
}

func TestWalkRespectsInfoExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".git/info/exclude", "secret.txt\n")
	writeFile(t, root, "readme.txt", "keep me")
	writeFile(t, root, "secret.txt", "drop me")

	engine := testEngine(t, EngineOptions{
		RespectGitignore: true,
		ExcludePatterns:  []string{".git/"},
	})
	node, _, err := engine.Walk(root, "/")
	require.NoError(t, err)
	assert.NotNil(t, findChild(node, "readme.txt"))
	assert.Nil(t, findChild(node, "secret.txt"))
}

func TestWalkExtractErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.txt", "fine")
	writeFile(t, root, "degraded.txt", "x")
	writeFile(t, root, "broken.txt", "x")

	engine := testEngine(t, EngineOptions{
		Extract: func(path string) (string, error) {
			switch filepath.Base(path) {
			case "degraded.txt":
				return "[Error reading file: boom]", &domain.ContentError{Path: path, Err: errors.New("boom")}
			case "broken.txt":
				return "", errors.New("boom")
			default:
				data, err := os.ReadFile(path)
				return string(data), err
			}
		},
	})
	node, stats, err := engine.Walk(root, "/")
	require.NoError(t, err)

	// a per-file content error keeps the file with its placeholder body
	degraded := findChild(node, "degraded.txt")
	require.NotNil(t, degraded)
	assert.Equal(t, "[Error reading file: boom]", degraded.Content)

	// anything else drops the file without charging the budget
	assert.Nil(t, findChild(node, "broken.txt"))
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, int64(len("fine")+1), stats.TotalBytes)
}

func TestWalkSymlink(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "target.txt", "data")
	require.NoError(t, os.Symlink(filepath.Join(root, "target.txt"), filepath.Join(root, "link.txt")))

	engine := testEngine(t, EngineOptions{})
	node, stats, err := engine.Walk(root, "/")
	require.NoError(t, err)

	link := findChild(node, "link.txt")
	require.NotNil(t, link)
	assert.Equal(t, domain.NodeSymlink, link.Type)
	assert.NotEmpty(t, link.LinkTarget)
	assert.Empty(t, link.Content)

	// symlinks count toward the file budget
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 2, node.FileCount)
}

func TestWalkFileBudgetTruncates(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt"} {
		writeFile(t, root, name, "x")
	}

	engine := testEngine(t, EngineOptions{MaxFiles: 2})
	node, stats, err := engine.Walk(root, "/")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 2, node.FileCount)
}

func TestWalkDepthBudget(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "top.txt", "t")
	writeFile(t, root, "a/b/c/deep.txt", "d")

	engine := testEngine(t, EngineOptions{MaxDepth: 2})
	node, _, err := engine.Walk(root, "/")
	require.NoError(t, err)

	assert.NotNil(t, findChild(node, "top.txt"))
	// a/b/c is beyond the depth budget, and the emptied chain is pruned
	assert.Nil(t, findChild(node, "a"))
}

func TestWalkPrunesEmptyDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "kept.go", "package x")
	writeFile(t, root, "docs/readme.txt", "text only")

	engine := testEngine(t, EngineOptions{IncludePatterns: []string{"*.go"}})
	node, _, err := engine.Walk(root, "/")
	require.NoError(t, err)

	assert.NotNil(t, findChild(node, "kept.go"))
	assert.Nil(t, findChild(node, "docs"))
}
