package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/gitingest-go/internal/domain"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0644))
	return p
}

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor(ExtractorOptions{})

	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"ascii", []byte("hello world\n"), "hello world\n"},
		{"utf-8 multibyte", []byte("héllo wörld — ok\n"), "héllo wörld — ok\n"},
		{"empty", nil, EmptyFilePlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeTemp(t, "f.txt", tt.data)
			out, err := e.Extract(p)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestExtractBinary(t *testing.T) {
	e := NewExtractor(ExtractorOptions{})

	tests := []struct {
		name string
		data []byte
	}{
		{"nul bytes", []byte{0x00, 0x01, 0x02, 'a', 'b'}},
		{"invalid utf-8", []byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb, 0xfa, 0xf9, 0xf8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeTemp(t, "f.bin", tt.data)
			out, err := e.Extract(p)
			require.NoError(t, err)
			assert.Equal(t, BinaryFilePlaceholder, out)
		})
	}
}

func TestExtractTruncatedTrailingRune(t *testing.T) {
	e := NewExtractor(ExtractorOptions{})

	// 1024 bytes ending mid-way through a multi-byte rune must not be
	// classified as binary.
	data := bytes1024EndingMidRune()
	p := writeTemp(t, "f.txt", data)

	out, err := e.Extract(p)
	require.NoError(t, err)
	assert.NotEqual(t, BinaryFilePlaceholder, out)
}

func bytes1024EndingMidRune() []byte {
	data := make([]byte, 0, 1100)
	for len(data) < 1023 {
		data = append(data, 'a')
	}
	// "é" = 0xC3 0xA9; the sample boundary at 1024 splits the rune
	data = append(data, 0xC3, 0xA9, 0xC3, 0xA9)
	return data
}

func TestExtractMissingFile(t *testing.T) {
	e := NewExtractor(ExtractorOptions{})
	out, err := e.Extract(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Contains(t, out, "[Error reading file:")
	var cerr *domain.ContentError
	require.ErrorAs(t, err, &cerr)
	assert.False(t, domain.IsFatal(err))
}

func TestRenderNotebookCells(t *testing.T) {
	nb := `{
  "nbformat": 4,
  "cells": [
    {"cell_type": "markdown", "source": ["# Title\n", "text"]},
    {"cell_type": "code", "source": "print('hi')", "outputs": [
      {"output_type": "stream", "text": ["hi\n"]}
    ]},
    {"cell_type": "raw", "source": ["raw body"]}
  ]
}`
	e := NewExtractor(ExtractorOptions{})
	p := writeTemp(t, "nb.ipynb", []byte(nb))

	out, err := e.Extract(p)
	require.NoError(t, err)
	assert.Contains(t, out, "\"\"\"\n# Title\ntext\n\"\"\"")
	assert.Contains(t, out, "print('hi')")
	assert.Contains(t, out, "\"\"\"\nraw body\n\"\"\"")
	// outputs are off by default
	assert.NotContains(t, out, "# hi")
}

func TestRenderNotebookOutputs(t *testing.T) {
	nb := `{
  "nbformat": 4,
  "cells": [
    {"cell_type": "code", "source": ["1 + 1"], "outputs": [
      {"output_type": "execute_result", "data": {"text/plain": ["2"]}},
      {"output_type": "stream", "text": ["logged\n"]},
      {"output_type": "error", "ename": "ValueError", "evalue": "bad input"}
    ]}
  ]
}`
	e := NewExtractor(ExtractorOptions{IncludeNotebookOutputs: true})
	p := writeTemp(t, "nb.ipynb", []byte(nb))

	out, err := e.Extract(p)
	require.NoError(t, err)
	assert.Contains(t, out, "1 + 1")
	assert.Contains(t, out, "# 2")
	assert.Contains(t, out, "# logged")
	assert.Contains(t, out, "# ValueError: bad input")
}

func TestRenderNotebookWorksheets(t *testing.T) {
	// deprecated nbformat 3 container: cells nested in worksheets
	nb := `{
  "nbformat": 3,
  "worksheets": [
    {"cells": [{"cell_type": "code", "input": ["a = 1"]}]},
    {"cells": [{"cell_type": "markdown", "source": ["notes"]}]}
  ]
}`
	e := NewExtractor(ExtractorOptions{})
	p := writeTemp(t, "nb.ipynb", []byte(nb))

	out, err := e.Extract(p)
	require.NoError(t, err)
	assert.Contains(t, out, "a = 1")
	assert.Contains(t, out, "notes")
}

func TestRenderNotebookUnknownCellType(t *testing.T) {
	nb := `{"nbformat": 4, "cells": [{"cell_type": "mystery", "source": ["x"]}]}`
	e := NewExtractor(ExtractorOptions{})
	p := writeTemp(t, "nb.ipynb", []byte(nb))

	out, err := e.Extract(p)
	assert.True(t, strings.HasPrefix(out, "[Error processing notebook:"), out)
	assert.Contains(t, out, "unknown cell type")
	var nbErr *domain.NotebookError
	require.ErrorAs(t, err, &nbErr)
	assert.False(t, domain.IsFatal(err))
}

func TestRenderNotebookInvalidJSON(t *testing.T) {
	e := NewExtractor(ExtractorOptions{})
	p := writeTemp(t, "nb.ipynb", []byte("not json"))

	out, err := e.Extract(p)
	require.Error(t, err)
	assert.Contains(t, out, "[Error processing notebook:")
}
