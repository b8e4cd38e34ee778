package gitx

import (
	"context"
	"errors"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/quantmind-br/gitingest-go/internal/domain"
	"github.com/quantmind-br/gitingest-go/internal/utils"
)

// Orchestrator materializes the requested slice of a repository into its
// private working directory using minimal git operations.
type Orchestrator struct {
	runner   domain.GitRunner
	resolver *RefResolver
	timeout  time.Duration
	logger   *utils.Logger
}

// OrchestratorOptions contains options for creating an Orchestrator.
type OrchestratorOptions struct {
	Runner   domain.GitRunner
	Resolver *RefResolver
	Timeout  time.Duration
	Logger   *utils.Logger
}

// NewOrchestrator creates a new clone orchestrator.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	runner := opts.Runner
	if runner == nil {
		runner = NewExecRunner(ExecRunnerOptions{Logger: opts.Logger})
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = NewRefResolver(RefResolverOptions{Logger: opts.Logger})
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Orchestrator{
		runner:   runner,
		resolver: resolver,
		timeout:  timeout,
		logger:   opts.Logger,
	}
}

// Clone materializes cfg under cfg.LocalPath and returns the checked-out
// commit SHA. The whole operation runs under one hard deadline.
func (o *Orchestrator) Clone(ctx context.Context, cfg domain.CloneConfig, token string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if _, err := o.runner.Version(ctx); err != nil {
		return "", err
	}
	o.warnLongPaths(ctx)

	if !o.resolver.Exists(ctx, cfg.URL, token) {
		return "", domain.NewCloneError("ls-remote", "repository not found: "+cfg.URL, errors.New("remote check failed"))
	}

	commit := cfg.Ref.Commit
	if commit == "" {
		resolved, err := o.resolver.Resolve(ctx, cfg.URL, cfg.Ref, token)
		if err != nil {
			return "", err
		}
		commit = resolved
	}

	branch := cloneBranch(cfg.Ref)
	partial := cfg.Subpath != "/" && cfg.Subpath != ""

	var err error
	if partial {
		err = o.runner.ClonePartial(ctx, cfg.URL, cfg.LocalPath, branch, token)
	} else {
		err = o.runner.CloneShallow(ctx, cfg.URL, cfg.LocalPath, branch, token)
	}
	if err != nil {
		return "", o.timeoutOr(ctx, err)
	}

	// Pinning the exact commit after the clone guarantees correctness even
	// when the branch moved between resolution and clone.
	if err := o.runner.FetchCommit(ctx, cfg.LocalPath, commit, token); err != nil {
		return "", o.timeoutOr(ctx, err)
	}

	if partial {
		if err := o.runner.SparseCheckoutSet(ctx, cfg.LocalPath, sparsePath(cfg)); err != nil {
			return "", o.timeoutOr(ctx, err)
		}
	}

	if err := o.runner.Checkout(ctx, cfg.LocalPath, commit); err != nil {
		return "", o.timeoutOr(ctx, err)
	}

	if cfg.Submodules {
		if err := o.runner.SubmoduleUpdate(ctx, cfg.LocalPath); err != nil {
			return "", o.timeoutOr(ctx, err)
		}
	}

	if o.logger != nil {
		o.logger.Debug().Str("commit", commit).Bool("partial", partial).Msg("Repository materialized")
	}
	return commit, nil
}

// warnLongPaths warns when Windows long-path support is off. Never fatal.
func (o *Orchestrator) warnLongPaths(ctx context.Context) {
	if runtime.GOOS != "windows" || o.logger == nil {
		return
	}
	value, err := o.runner.ConfigValue(ctx, "core.longPaths")
	if err != nil || strings.EqualFold(value, "true") {
		return
	}
	o.logger.Warn().Msg("git core.longPaths is disabled; deep paths may fail to check out")
}

// timeoutOr converts context expiry into the timeout sentinel.
func (o *Orchestrator) timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrCloneTimeout
	}
	return err
}

// cloneBranch picks the --branch argument for the initial clone. Tags are
// valid clone targets; HEAD and pinned commits use the remote default.
func cloneBranch(ref domain.RefSpec) string {
	switch ref.Kind {
	case domain.RefBranch:
		return ref.Branch
	case domain.RefTag:
		return ref.Tag
	default:
		return ""
	}
}

// sparsePath is the sparse-checkout target: the subpath itself for trees, its
// parent directory for single files.
func sparsePath(cfg domain.CloneConfig) string {
	p := strings.Trim(cfg.Subpath, "/")
	if cfg.Blob {
		p = path.Dir(p)
		if p == "." {
			p = "/"
		}
	}
	return p
}
