// Package format renders the summary, tree, and content views of a digest.
package format

import (
	"fmt"
	"strings"

	"github.com/quantmind-br/gitingest-go/internal/domain"
	"github.com/quantmind-br/gitingest-go/internal/utils"
)

const separator = "================================================"

// Formatter renders IngestionResults from a materialized tree. Token
// estimation is best-effort: a failing estimator drops the token line, never
// the digest.
type Formatter struct {
	estimator domain.TokenEstimator
	logger    *utils.Logger
}

// FormatterOptions configures a Formatter.
type FormatterOptions struct {
	Estimator domain.TokenEstimator
	Logger    *utils.Logger
}

// NewFormatter creates a Formatter.
func NewFormatter(opts FormatterOptions) *Formatter {
	logger := opts.Logger
	if logger != nil {
		logger = logger.WithComponent("format")
	}
	return &Formatter{
		estimator: opts.Estimator,
		logger:    logger,
	}
}

// Format produces the digest for a completed traversal.
func (f *Formatter) Format(addr *domain.ResolvedAddress, root *domain.FSNode) *domain.IngestionResult {
	tree := f.renderTree(root)
	content := f.renderContent(root)
	summary := f.renderSummary(addr, root, tree+content)

	return &domain.IngestionResult{
		Summary: summary,
		Tree:    tree,
		Content: content,
	}
}

func (f *Formatter) renderSummary(addr *domain.ResolvedAddress, root *domain.FSNode, payload string) string {
	var b strings.Builder

	if addr.IsRemote() {
		fmt.Fprintf(&b, "Repository: %s/%s\n", addr.Owner, addr.Repo)
	} else {
		fmt.Fprintf(&b, "Directory: %s\n", addr.Slug)
	}

	switch {
	case addr.Ref.Tag != "":
		fmt.Fprintf(&b, "Tag: %s\n", addr.Ref.Tag)
	case addr.Ref.Branch != "" && addr.Ref.Branch != "main" && addr.Ref.Branch != "master":
		fmt.Fprintf(&b, "Branch: %s\n", addr.Ref.Branch)
	}
	if addr.Ref.Commit != "" {
		fmt.Fprintf(&b, "Commit: %s\n", addr.Ref.Commit)
	}

	if root.IsDir() {
		if addr.Subpath != "" && addr.Subpath != "/" {
			fmt.Fprintf(&b, "Subpath: %s\n", addr.Subpath)
		}
		fmt.Fprintf(&b, "Files analyzed: %d\n", root.FileCount)
	} else {
		fmt.Fprintf(&b, "File: %s\n", root.Base())
		fmt.Fprintf(&b, "Lines: %d\n", utils.CountLines(root.Content))
	}

	if count, ok := f.estimate(payload); ok {
		fmt.Fprintf(&b, "\nEstimated tokens: %s", formatTokens(count))
	}

	return b.String()
}

func (f *Formatter) estimate(text string) (int, bool) {
	if f.estimator == nil {
		return 0, false
	}
	count, ok := f.estimator.Estimate(text)
	if !ok && f.logger != nil {
		f.logger.Warn().Msg("Token estimate unavailable, omitting from summary")
	}
	return count, ok
}

func formatTokens(count int) string {
	switch {
	case count >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(count)/1_000_000)
	case count >= 1_000:
		return fmt.Sprintf("%.1fk", float64(count)/1_000)
	default:
		return fmt.Sprintf("%d", count)
	}
}

func (f *Formatter) renderTree(root *domain.FSNode) string {
	var b strings.Builder
	b.WriteString("Directory structure:\n")
	renderNode(&b, root, "", true)
	return b.String()
}

func renderNode(b *strings.Builder, node *domain.FSNode, prefix string, last bool) {
	connector := "├── "
	if last {
		connector = "└── "
	}

	name := node.Base()
	switch node.Type {
	case domain.NodeDirectory:
		name += "/"
	case domain.NodeSymlink:
		name += " -> " + node.LinkTarget
	}
	fmt.Fprintf(b, "%s%s%s\n", prefix, connector, name)

	childPrefix := prefix + "│   "
	if last {
		childPrefix = prefix + "    "
	}
	for i, child := range node.Children {
		renderNode(b, child, childPrefix, i == len(node.Children)-1)
	}
}

// renderContent concatenates file bodies depth-first, in tree order, each
// wrapped with a separator block. Symlinks contribute a header with no body.
func (f *Formatter) renderContent(root *domain.FSNode) string {
	var b strings.Builder
	writeContent(&b, root)
	return b.String()
}

func writeContent(b *strings.Builder, node *domain.FSNode) {
	switch node.Type {
	case domain.NodeFile:
		fmt.Fprintf(b, "%s\nFILE: %s\n%s\n", separator, node.RelPath, separator)
		b.WriteString(node.Content)
		b.WriteString("\n\n")
	case domain.NodeSymlink:
		fmt.Fprintf(b, "%s\nSYMLINK: %s -> %s\n%s\n\n", separator, node.RelPath, node.LinkTarget, separator)
	case domain.NodeDirectory:
		for _, child := range node.Children {
			writeContent(b, child)
		}
	}
}
