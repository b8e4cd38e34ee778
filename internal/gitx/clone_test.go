package gitx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/gitingest-go/internal/domain"
)

// fakeRunner records every git operation instead of running it.
type fakeRunner struct {
	calls      []string
	versionErr error
	cloneErr   error

	clonedBranch string
	sparsePath   string
	fetched      string
	checkedOut   string
}

func (f *fakeRunner) Version(ctx context.Context) (string, error) {
	f.calls = append(f.calls, "version")
	if f.versionErr != nil {
		return "", f.versionErr
	}
	return "git version 2.44.0", nil
}

func (f *fakeRunner) CloneShallow(ctx context.Context, url, dest, branch, token string) error {
	f.calls = append(f.calls, "clone-shallow")
	f.clonedBranch = branch
	return f.cloneErr
}

func (f *fakeRunner) ClonePartial(ctx context.Context, url, dest, branch, token string) error {
	f.calls = append(f.calls, "clone-partial")
	f.clonedBranch = branch
	return f.cloneErr
}

func (f *fakeRunner) FetchCommit(ctx context.Context, dir, commit, token string) error {
	f.calls = append(f.calls, "fetch")
	f.fetched = commit
	return nil
}

func (f *fakeRunner) Checkout(ctx context.Context, dir, commit string) error {
	f.calls = append(f.calls, "checkout")
	f.checkedOut = commit
	return nil
}

func (f *fakeRunner) SparseCheckoutSet(ctx context.Context, dir, path string) error {
	f.calls = append(f.calls, "sparse")
	f.sparsePath = path
	return nil
}

func (f *fakeRunner) SubmoduleUpdate(ctx context.Context, dir string) error {
	f.calls = append(f.calls, "submodules")
	return nil
}

func (f *fakeRunner) ConfigValue(ctx context.Context, key string) (string, error) {
	return "", nil
}

func testOrchestrator(runner *fakeRunner) *Orchestrator {
	return NewOrchestrator(OrchestratorOptions{
		Runner:   runner,
		Resolver: NewRefResolver(RefResolverOptions{Lister: &fakeLister{refs: advertisement()}}),
		Timeout:  30 * time.Second,
	})
}

func TestCloneFullRepository(t *testing.T) {
	runner := &fakeRunner{}
	o := testOrchestrator(runner)

	commit, err := o.Clone(context.Background(), domain.CloneConfig{
		URL:       "https://github.com/o/r",
		LocalPath: t.TempDir(),
		Ref:       domain.NewHeadRef(),
		Subpath:   "/",
	}, "")

	require.NoError(t, err)
	assert.Equal(t, "1111111111111111111111111111111111111111", commit)
	assert.Equal(t, []string{"version", "clone-shallow", "fetch", "checkout"}, runner.calls)
	assert.Empty(t, runner.clonedBranch)
	assert.Equal(t, commit, runner.fetched)
	assert.Equal(t, commit, runner.checkedOut)
}

func TestCloneBranch(t *testing.T) {
	runner := &fakeRunner{}
	o := testOrchestrator(runner)

	commit, err := o.Clone(context.Background(), domain.CloneConfig{
		URL:       "https://github.com/o/r",
		LocalPath: t.TempDir(),
		Ref:       domain.NewBranchRef("2.2.x"),
		Subpath:   "/",
	}, "")

	require.NoError(t, err)
	assert.Equal(t, "2222222222222222222222222222222222222222", commit)
	assert.Equal(t, "2.2.x", runner.clonedBranch)
}

func TestClonePartialForSubpath(t *testing.T) {
	runner := &fakeRunner{}
	o := testOrchestrator(runner)

	_, err := o.Clone(context.Background(), domain.CloneConfig{
		URL:       "https://github.com/o/r",
		LocalPath: t.TempDir(),
		Ref:       domain.NewHeadRef(),
		Subpath:   "/docs/guide",
	}, "")

	require.NoError(t, err)
	assert.Contains(t, runner.calls, "clone-partial")
	assert.NotContains(t, runner.calls, "clone-shallow")
	assert.Equal(t, "docs/guide", runner.sparsePath)
}

func TestCloneBlobSparsePathUsesParent(t *testing.T) {
	tests := []struct {
		name     string
		subpath  string
		expected string
	}{
		{"nested file", "/docs/guide/intro.md", "docs/guide"},
		{"top-level file", "/README.md", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			o := testOrchestrator(runner)

			_, err := o.Clone(context.Background(), domain.CloneConfig{
				URL:       "https://github.com/o/r",
				LocalPath: t.TempDir(),
				Ref:       domain.NewHeadRef(),
				Subpath:   tt.subpath,
				Blob:      true,
			}, "")

			require.NoError(t, err)
			assert.Equal(t, tt.expected, runner.sparsePath)
		})
	}
}

func TestCloneSubmodules(t *testing.T) {
	runner := &fakeRunner{}
	o := testOrchestrator(runner)

	_, err := o.Clone(context.Background(), domain.CloneConfig{
		URL:        "https://github.com/o/r",
		LocalPath:  t.TempDir(),
		Ref:        domain.NewHeadRef(),
		Subpath:    "/",
		Submodules: true,
	}, "")

	require.NoError(t, err)
	assert.Contains(t, runner.calls, "submodules")
}

func TestClonePinnedCommitSkipsResolution(t *testing.T) {
	runner := &fakeRunner{}
	o := testOrchestrator(runner)

	commit, err := o.Clone(context.Background(), domain.CloneConfig{
		URL:       "https://github.com/o/r",
		LocalPath: t.TempDir(),
		Ref:       domain.NewCommitRef("9999999999999999999999999999999999999999"),
		Subpath:   "/",
	}, "")

	require.NoError(t, err)
	assert.Equal(t, "9999999999999999999999999999999999999999", commit)
	assert.Equal(t, commit, runner.fetched)
}

func TestCloneGitAbsentIsFatal(t *testing.T) {
	runner := &fakeRunner{versionErr: domain.ErrGitNotInstalled}
	o := testOrchestrator(runner)

	_, err := o.Clone(context.Background(), domain.CloneConfig{
		URL:       "https://github.com/o/r",
		LocalPath: t.TempDir(),
		Ref:       domain.NewHeadRef(),
		Subpath:   "/",
	}, "")

	assert.ErrorIs(t, err, domain.ErrGitNotInstalled)
	assert.Equal(t, []string{"version"}, runner.calls)
}

func TestCloneMissingRepository(t *testing.T) {
	runner := &fakeRunner{}
	o := NewOrchestrator(OrchestratorOptions{
		Runner:   runner,
		Resolver: NewRefResolver(RefResolverOptions{Lister: &fakeLister{}}),
		Timeout:  time.Second,
	})

	_, err := o.Clone(context.Background(), domain.CloneConfig{
		URL:       "https://github.com/o/gone",
		LocalPath: t.TempDir(),
		Ref:       domain.NewHeadRef(),
		Subpath:   "/",
	}, "")

	var cloneErr *domain.CloneError
	assert.ErrorAs(t, err, &cloneErr)
}
