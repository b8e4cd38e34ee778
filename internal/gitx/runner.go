package gitx

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os/exec"
	"strings"

	"github.com/quantmind-br/gitingest-go/internal/domain"
	"github.com/quantmind-br/gitingest-go/internal/utils"
)

// ExecRunner implements domain.GitRunner by shelling out to the git tool.
type ExecRunner struct {
	logger *utils.Logger
}

// ExecRunnerOptions contains options for creating an ExecRunner.
type ExecRunnerOptions struct {
	Logger *utils.Logger
}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner(opts ExecRunnerOptions) *ExecRunner {
	return &ExecRunner{logger: opts.Logger}
}

var _ domain.GitRunner = (*ExecRunner)(nil)

// Version returns the installed git version.
func (r *ExecRunner) Version(ctx context.Context) (string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", domain.ErrGitNotInstalled
	}
	out, err := r.run(ctx, "", "", "--version")
	if err != nil {
		return "", domain.ErrGitNotInstalled
	}
	return strings.TrimSpace(out), nil
}

// CloneShallow performs a depth-1 single-branch no-checkout clone.
func (r *ExecRunner) CloneShallow(ctx context.Context, url, dest, branch, token string) error {
	args := []string{"clone", "--single-branch", "--depth=1", "--no-checkout"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, dest)
	_, err := r.run(ctx, "", token, args...)
	return err
}

// ClonePartial performs a blob-filtered sparse depth-1 no-checkout clone.
func (r *ExecRunner) ClonePartial(ctx context.Context, url, dest, branch, token string) error {
	args := []string{"clone", "--single-branch", "--depth=1", "--no-checkout",
		"--filter=blob:none", "--sparse"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, dest)
	_, err := r.run(ctx, "", token, args...)
	return err
}

// FetchCommit fetches exactly one commit at depth 1.
func (r *ExecRunner) FetchCommit(ctx context.Context, dir, commit, token string) error {
	_, err := r.run(ctx, dir, token, "fetch", "--depth=1", "origin", commit)
	return err
}

// Checkout checks out a commit in dir.
func (r *ExecRunner) Checkout(ctx context.Context, dir, commit string) error {
	_, err := r.run(ctx, dir, "", "checkout", commit)
	return err
}

// SparseCheckoutSet restricts the checkout to the given path.
func (r *ExecRunner) SparseCheckoutSet(ctx context.Context, dir, path string) error {
	_, err := r.run(ctx, dir, "", "sparse-checkout", "set", path)
	return err
}

// SubmoduleUpdate updates submodules recursively at depth 1.
func (r *ExecRunner) SubmoduleUpdate(ctx context.Context, dir string) error {
	_, err := r.run(ctx, dir, "", "submodule", "update", "--init", "--recursive", "--depth=1")
	return err
}

// ConfigValue reads a git configuration value. An unset key returns "".
func (r *ExecRunner) ConfigValue(ctx context.Context, key string) (string, error) {
	out, err := r.run(ctx, "", "", "config", "--get", key)
	if err != nil {
		// git config exits non-zero for unset keys
		var cloneErr *domain.CloneError
		if errors.As(err, &cloneErr) && cloneErr.Stderr == "" {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// run executes one git command, optionally scoped to dir, carrying the token
// as an http.extraHeader so the credential never touches user-level git
// configuration.
func (r *ExecRunner) run(ctx context.Context, dir, token string, args ...string) (string, error) {
	full := make([]string, 0, len(args)+4)
	if dir != "" {
		full = append(full, "-C", dir)
	}
	if token != "" {
		full = append(full, "-c", "http.extraHeader=Authorization: Basic "+basicAuthValue(token))
	}
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, "git", full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if r.logger != nil {
		r.logger.Debug().Str("args", strings.Join(args, " ")).Msg("Running git")
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", domain.ErrCloneTimeout
		}
		return "", domain.NewCloneError(commandName(args), strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}

// basicAuthValue encodes the token the way GitHub-family hosts expect it.
func basicAuthValue(token string) string {
	return base64.StdEncoding.EncodeToString([]byte("x-oauth-basic:" + token))
}

func commandName(args []string) string {
	if len(args) == 0 {
		return "git"
	}
	return args[0]
}
