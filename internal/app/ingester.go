// Package app wires the ingestion pipeline: resolve, pin, clone, traverse,
// format.
package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/quantmind-br/gitingest-go/internal/address"
	"github.com/quantmind-br/gitingest-go/internal/cache"
	"github.com/quantmind-br/gitingest-go/internal/config"
	"github.com/quantmind-br/gitingest-go/internal/domain"
	"github.com/quantmind-br/gitingest-go/internal/extract"
	"github.com/quantmind-br/gitingest-go/internal/format"
	"github.com/quantmind-br/gitingest-go/internal/gitx"
	"github.com/quantmind-br/gitingest-go/internal/tokens"
	"github.com/quantmind-br/gitingest-go/internal/traverse"
	"github.com/quantmind-br/gitingest-go/internal/utils"
)

// Ingester runs one ingestion request end to end and owns the lifecycle of
// the request's working directory.
type Ingester struct {
	cfg       *config.Config
	logger    *utils.Logger
	resolver  *address.Resolver
	refs      *gitx.RefResolver
	cloner    *gitx.Orchestrator
	archive   *gitx.ArchiveFetcher
	cache     domain.Cache
	estimator domain.TokenEstimator

	refreshCache bool
	progress     bool
}

// IngesterOptions contains options for creating an Ingester. Runner and
// Lister override the real git tool and remote listing, for tests.
type IngesterOptions struct {
	Config       *config.Config
	Logger       *utils.Logger
	Cache        domain.Cache
	RefreshCache bool
	Progress     bool
	Runner       domain.GitRunner
	Lister       domain.RemoteLister
}

// NewIngester creates an Ingester from configuration.
func NewIngester(opts IngesterOptions) (*Ingester, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}

	refs := gitx.NewRefResolver(gitx.RefResolverOptions{
		Lister: opts.Lister,
		Logger: logger,
	})

	hosts := cfg.Hosts
	if len(hosts) == 0 {
		hosts = config.KnownHosts
	}

	return &Ingester{
		cfg:    cfg,
		logger: logger.WithComponent("ingester"),
		resolver: address.NewResolver(address.ResolverOptions{
			Refs:   refs,
			Hosts:  hosts,
			Logger: logger,
		}),
		refs: refs,
		cloner: gitx.NewOrchestrator(gitx.OrchestratorOptions{
			Runner:   opts.Runner,
			Resolver: refs,
			Timeout:  cfg.Clone.Timeout,
			Logger:   logger,
		}),
		archive:      gitx.NewArchiveFetcher(gitx.ArchiveFetcherOptions{Logger: logger}),
		cache:        opts.Cache,
		estimator:    tokens.NewEstimator(cfg.Tokens.Encoding, logger),
		refreshCache: opts.RefreshCache,
		progress:     opts.Progress,
	}, nil
}

// Run executes one ingestion request. The working directory of a remote
// source is removed on every exit path; local sources are never deleted.
func (i *Ingester) Run(ctx context.Context, req domain.IngestionRequest) (*domain.IngestionResult, error) {
	start := time.Now()

	addr, err := i.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	if addr.IsRemote() {
		if err := i.pinCommit(ctx, addr, req.Token); err != nil {
			return nil, err
		}
		defer i.cleanup(addr)
	}

	key := cache.DigestKey(addr, &req)
	if result := i.cacheLookup(ctx, addr, key); result != nil {
		return result, nil
	}

	if addr.IsRemote() {
		if err := i.materialize(ctx, addr, req); err != nil {
			return nil, err
		}
	}

	root, stats, err := i.traverse(addr, req)
	if err != nil {
		return nil, err
	}

	result := i.render(addr, root)

	i.cacheStore(ctx, addr, key, result)

	i.logger.WithRepo(addr.Slug).Info().
		Int("files", stats.TotalFiles).
		Int64("bytes", stats.TotalBytes).
		Dur("elapsed", time.Since(start)).
		Msg("Ingestion complete")

	return result, nil
}

// render turns the traversed tree into the final digest.
func (i *Ingester) render(addr *domain.ResolvedAddress, root *domain.FSNode) *domain.IngestionResult {
	if i.progress {
		bar := utils.NewProgressBar(-1, utils.DescRendering)
		defer func() { _ = bar.Finish() }()
	}

	formatter := format.NewFormatter(format.FormatterOptions{
		Estimator: i.estimator,
		Logger:    i.logger,
	})
	return formatter.Format(addr, root)
}

// pinCommit resolves the request's ref into an exact commit before any clone
// work, so cache lookups never pay clone cost.
func (i *Ingester) pinCommit(ctx context.Context, addr *domain.ResolvedAddress, token string) error {
	if addr.Ref.Commit != "" {
		return nil
	}
	commit, err := i.refs.Resolve(ctx, addr.URL, addr.Ref, token)
	if err != nil {
		return err
	}
	addr.Ref.Commit = commit
	return nil
}

func (i *Ingester) materialize(ctx context.Context, addr *domain.ResolvedAddress, req domain.IngestionRequest) error {
	if i.progress {
		bar := utils.NewProgressBar(-1, utils.DescCloning)
		defer func() { _ = bar.Finish() }()
	}

	// Archive download at a pinned commit is cheaper than a clone, but a
	// tarball has no submodules and no subpath filtering.
	if i.cfg.Clone.PreferArchive && !req.IncludeSubmodules &&
		addr.Subpath == "/" && i.archive.Supports(addr.Host) {
		err := i.archive.Fetch(ctx, addr.Host, addr.Owner, addr.Repo, addr.Ref.Commit, req.Token, addr.WorkDir)
		if err == nil {
			return nil
		}
		i.logger.Warn().Err(err).Msg("Archive download failed, falling back to git clone")
	}

	cloneCfg := addr.CloneView()
	cloneCfg.Submodules = req.IncludeSubmodules

	commit, err := i.cloner.Clone(ctx, cloneCfg, req.Token)
	if err != nil {
		return err
	}
	addr.Ref.Commit = commit
	return nil
}

func (i *Ingester) traverse(addr *domain.ResolvedAddress, req domain.IngestionRequest) (*domain.FSNode, *domain.TraversalStats, error) {
	if i.progress {
		bar := utils.NewProgressBar(-1, utils.DescTraversing)
		defer func() { _ = bar.Finish() }()
	}

	maxFileSize := req.MaxFileSize
	if maxFileSize <= 0 {
		size, err := i.cfg.MaxFileSizeBytes()
		if err != nil {
			return nil, nil, err
		}
		maxFileSize = size
	}
	maxTotalBytes, err := i.cfg.MaxTotalBytesValue()
	if err != nil {
		return nil, nil, err
	}

	extractor := extract.NewExtractor(extract.ExtractorOptions{Logger: i.logger})
	engine := traverse.NewEngine(traverse.EngineOptions{
		MaxFileSize:           maxFileSize,
		MaxTotalBytes:         maxTotalBytes,
		MaxFiles:              i.cfg.Limits.MaxFiles,
		MaxDepth:              i.cfg.Limits.MaxDepth,
		IncludePatterns:       req.IncludePatterns,
		ExcludePatterns:       req.ExcludePatterns,
		DefaultIgnorePatterns: config.DefaultIgnorePatterns,
		RespectGitignore:      !req.IncludeGitignored,
		Extract:               extractor.Extract,
		Logger:                i.logger,
	})

	return engine.Walk(addr.WorkDir, addr.Subpath)
}

func (i *Ingester) cacheLookup(ctx context.Context, addr *domain.ResolvedAddress, key string) *domain.IngestionResult {
	if i.cache == nil || i.refreshCache || addr.Ref.Commit == "" {
		return nil
	}
	result, err := i.cache.Get(ctx, key)
	if err != nil {
		return nil
	}
	i.logger.Debug().Str("slug", addr.Slug).Str("commit", addr.Ref.Commit).Msg("Digest served from cache")
	return result
}

func (i *Ingester) cacheStore(ctx context.Context, addr *domain.ResolvedAddress, key string, result *domain.IngestionResult) {
	if i.cache == nil || addr.Ref.Commit == "" {
		return
	}
	if err := i.cache.Set(ctx, key, result, i.cfg.Cache.TTL); err != nil {
		i.logger.Warn().Err(err).Msg("Failed to store digest in cache")
	}
}

// cleanup removes the request-private working directory tree.
func (i *Ingester) cleanup(addr *domain.ResolvedAddress) {
	dir := filepath.Dir(addr.WorkDir)
	if err := os.RemoveAll(dir); err != nil {
		i.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to remove working directory")
	}
}
