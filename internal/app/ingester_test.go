package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/gitingest-go/internal/config"
	"github.com/quantmind-br/gitingest-go/internal/domain"
	"github.com/quantmind-br/gitingest-go/internal/utils"
)

func testIngester(t *testing.T) *Ingester {
	t.Helper()
	ing, err := NewIngester(IngesterOptions{
		Config: config.Default(),
		Logger: utils.NewLogger(utils.LoggerOptions{Level: "error", Format: "json"}),
	})
	require.NoError(t, err)
	return ing
}

func seedProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"README.md":   "# Demo\n",
		"main.go":     "package main\n",
		"docs/a.md":   "docs body\n",
		"sub/util.go": "package sub\n",
	}
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	}
	return root
}

func TestRunLocalDirectory(t *testing.T) {
	root := seedProject(t)
	ing := testIngester(t)

	result, err := ing.Run(context.Background(), domain.IngestionRequest{Source: root})
	require.NoError(t, err)

	assert.Contains(t, result.Summary, "Directory:")
	assert.Contains(t, result.Summary, "Files analyzed: 4")
	assert.Contains(t, result.Tree, "README.md")
	assert.Contains(t, result.Tree, "docs/")
	assert.Contains(t, result.Content, "FILE: main.go")
	assert.Contains(t, result.Content, "package main")

	// the source directory is never deleted
	_, statErr := os.Stat(root)
	assert.NoError(t, statErr)
}

func TestRunLocalDirectoryDeterministic(t *testing.T) {
	root := seedProject(t)
	ing := testIngester(t)

	a, err := ing.Run(context.Background(), domain.IngestionRequest{Source: root})
	require.NoError(t, err)
	b, err := ing.Run(context.Background(), domain.IngestionRequest{Source: root})
	require.NoError(t, err)

	assert.Equal(t, a.Tree, b.Tree)
	assert.Equal(t, a.Content, b.Content)
}

func TestRunAppliesExcludePatterns(t *testing.T) {
	root := seedProject(t)
	ing := testIngester(t)

	result, err := ing.Run(context.Background(), domain.IngestionRequest{
		Source:          root,
		ExcludePatterns: []string{"docs/"},
	})
	require.NoError(t, err)

	assert.NotContains(t, result.Content, "FILE: docs/a.md")
	assert.Contains(t, result.Content, "FILE: main.go")
}

func TestRunRespectsDefaultIgnoreSet(t *testing.T) {
	root := seedProject(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "pkg", "x.js"), []byte("junk"), 0644))

	ing := testIngester(t)
	result, err := ing.Run(context.Background(), domain.IngestionRequest{Source: root})
	require.NoError(t, err)

	assert.NotContains(t, result.Tree, "node_modules")
}

func TestRunOversizeFilesExcluded(t *testing.T) {
	root := seedProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), make([]byte, 4096), 0644))

	ing := testIngester(t)
	result, err := ing.Run(context.Background(), domain.IngestionRequest{
		Source:      root,
		MaxFileSize: 100,
	})
	require.NoError(t, err)

	assert.NotContains(t, result.Content, "FILE: big.txt")
	assert.Contains(t, result.Summary, "Files analyzed: 4")
}

func TestRunInvalidSource(t *testing.T) {
	ing := testIngester(t)

	_, err := ing.Run(context.Background(), domain.IngestionRequest{Source: "://bad"})
	assert.Error(t, err)
}
