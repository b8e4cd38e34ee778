package address

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/quantmind-br/gitingest-go/internal/domain"
	"github.com/quantmind-br/gitingest-go/internal/gitx"
	"github.com/quantmind-br/gitingest-go/internal/utils"
)

// commitHashRegex matches a full 40-hex-character commit SHA.
var commitHashRegex = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// hostHeuristics are host-name prefixes accepted beyond the configured
// allow-list. Self-hosted forges overwhelmingly follow these shapes.
var hostHeuristics = []string{"git.", "gitlab.", "github."}

// Resolver turns free-form source strings into canonical repository
// addresses.
type Resolver struct {
	refs   *gitx.RefResolver
	hosts  []string
	logger *utils.Logger
}

// ResolverOptions contains options for creating a Resolver.
type ResolverOptions struct {
	Refs   *gitx.RefResolver
	Hosts  []string
	Logger *utils.Logger
}

// NewResolver creates a new Resolver. Hosts are probed in the given priority
// order for host-less slugs.
func NewResolver(opts ResolverOptions) *Resolver {
	refs := opts.Refs
	if refs == nil {
		refs = gitx.NewRefResolver(gitx.RefResolverOptions{Logger: opts.Logger})
	}
	return &Resolver{refs: refs, hosts: opts.Hosts, logger: opts.Logger}
}

// Resolve produces a ResolvedAddress for the request's source string, or an
// AddressError.
func (r *Resolver) Resolve(ctx context.Context, req domain.IngestionRequest) (*domain.ResolvedAddress, error) {
	source := strings.TrimSpace(req.Source)
	if decoded, err := url.PathUnescape(source); err == nil {
		source = decoded
	}
	source = strings.TrimSuffix(source, ".git")

	if source == "" {
		return nil, domain.NewAddressError(req.Source, domain.ErrInvalidRepoURL)
	}

	if isLocalPath(source) {
		return r.resolveLocal(source, req)
	}

	var host, rest string
	switch {
	case strings.Contains(source, "://"):
		u, err := url.Parse(source)
		if err != nil {
			return nil, domain.NewAddressError(req.Source, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, domain.NewAddressError(req.Source, domain.ErrUnknownHost)
		}
		if !r.hostAllowed(u.Host) {
			return nil, domain.NewAddressError(req.Source, domain.ErrUnknownHost)
		}
		host = strings.ToLower(u.Host)
		rest = u.Path
	case dottedHost(source) != "":
		host = strings.ToLower(dottedHost(source))
		if !r.hostAllowed(host) {
			return nil, domain.NewAddressError(req.Source, domain.ErrUnknownHost)
		}
		rest = strings.TrimPrefix(source, dottedHost(source))
	default:
		probed, err := r.probeHosts(ctx, source, req.Token)
		if err != nil {
			return nil, domain.NewAddressError(req.Source, err)
		}
		host = probed
		rest = source
	}

	segments := splitSegments(rest)
	if len(segments) < 2 {
		return nil, domain.NewAddressError(req.Source, domain.ErrInvalidRepoURL)
	}
	owner := strings.ToLower(segments[0])
	repo := strings.ToLower(strings.TrimSuffix(segments[1], ".git"))

	addr := &domain.ResolvedAddress{
		Host:    host,
		Owner:   owner,
		Repo:    repo,
		URL:     "https://" + host + "/" + owner + "/" + repo,
		Slug:    owner + "-" + repo,
		Subpath: "/",
		Ref:     domain.NewHeadRef(),
	}
	addr.ID = utils.NewRequestID()
	addr.WorkDir = utils.WorkDir(addr.ID, addr.Slug)

	if err := r.applyPathRef(ctx, addr, segments[2:], req.Token); err != nil {
		return nil, err
	}
	r.applyOverrides(addr, req)

	return addr, nil
}

// resolveLocal handles pure filesystem paths: no host, no clone, traversal
// runs directly over the directory.
func (r *Resolver) resolveLocal(source string, req domain.IngestionRequest) (*domain.ResolvedAddress, error) {
	abs, err := filepath.Abs(utils.ExpandPath(source))
	if err != nil {
		return nil, domain.NewAddressError(req.Source, err)
	}

	slug := strings.Trim(filepath.ToSlash(abs), "/")
	slug = strings.ReplaceAll(slug, "/", "-")
	if slug == "" {
		slug = "root"
	}

	addr := &domain.ResolvedAddress{
		LocalPath: abs,
		Slug:      slug,
		Subpath:   "/",
		Ref:       domain.NewHeadRef(),
		ID:        utils.NewRequestID(),
	}
	// Local sources are read in place; WorkDir doubles as the traversal root
	// and must never be deleted.
	addr.WorkDir = abs
	return addr, nil
}

// applyPathRef interprets the path segments after owner/repo: object kind,
// then commit or tag/branch, then subpath.
func (r *Resolver) applyPathRef(ctx context.Context, addr *domain.ResolvedAddress, segments []string, token string) error {
	if len(segments) == 0 {
		return nil
	}

	kind := segments[0]
	switch kind {
	case "tree", "blob":
	default:
		// issues, pull and anything else degrade to the repository root
		if r.logger != nil {
			r.logger.Warn().Str("kind", kind).Msg("Unsupported URL object kind; ingesting repository root")
		}
		return nil
	}
	addr.Kind = domain.ObjectKind(kind)

	refSegments := segments[1:]
	if len(refSegments) == 0 {
		return nil
	}

	if commitHashRegex.MatchString(refSegments[0]) {
		addr.Ref = domain.NewCommitRef(strings.ToLower(refSegments[0]))
		setSubpath(addr, refSegments[1:])
		return nil
	}

	consumed, ref, err := r.matchRef(ctx, addr.URL, refSegments, token)
	if err != nil {
		return domain.NewAddressError(addr.URL, err)
	}
	addr.Ref = ref
	setSubpath(addr, refSegments[consumed:])
	return nil
}

// matchRef consumes the longest slash-joined prefix of segments that names a
// live tag, then a live branch. Tag matches win over branch matches.
func (r *Resolver) matchRef(ctx context.Context, url string, segments []string, token string) (int, domain.RefSpec, error) {
	tags, err := r.refs.Tags(ctx, url, token)
	if err != nil {
		return 0, domain.RefSpec{}, err
	}
	if n, name := longestPrefix(segments, tags); n > 0 {
		return n, domain.NewTagRef(name), nil
	}

	branches, err := r.refs.Branches(ctx, url, token)
	if err != nil {
		return 0, domain.RefSpec{}, err
	}
	if n, name := longestPrefix(segments, branches); n > 0 {
		return n, domain.NewBranchRef(name), nil
	}

	return 0, domain.RefSpec{}, domain.ErrRefNotFound
}

// applyOverrides lets explicit request refs win over URL-derived ones; tag
// beats branch when both are given.
func (r *Resolver) applyOverrides(addr *domain.ResolvedAddress, req domain.IngestionRequest) {
	switch {
	case req.Commit != "":
		addr.Ref = domain.NewCommitRef(strings.ToLower(req.Commit))
	case req.Tag != "":
		addr.Ref = domain.NewTagRef(req.Tag)
	case req.Branch != "":
		addr.Ref = domain.NewBranchRef(req.Branch)
	}
}

// probeHosts checks each known host for owner/repo. Probes run concurrently
// but the winner is picked in fixed priority order, keeping the result
// deterministic.
func (r *Resolver) probeHosts(ctx context.Context, slug, token string) (string, error) {
	parts := splitSegments(slug)
	if len(parts) < 2 {
		return "", domain.ErrInvalidRepoURL
	}
	candidate := strings.ToLower(parts[0]) + "/" + strings.ToLower(strings.TrimSuffix(parts[1], ".git"))

	alive, _ := utils.ParallelMap(ctx, r.hosts, len(r.hosts), func(ctx context.Context, host string) (bool, error) {
		return r.refs.Exists(ctx, "https://"+host+"/"+candidate, token), nil
	})

	for i, host := range r.hosts {
		if alive[i] {
			if r.logger != nil {
				r.logger.Debug().Str("host", host).Str("slug", candidate).Msg("Slug resolved to host")
			}
			return host, nil
		}
	}
	return "", domain.ErrNoRepositoryHost
}

// hostAllowed checks the allow-list and the self-hosted forge heuristics.
func (r *Resolver) hostAllowed(host string) bool {
	host = strings.ToLower(host)
	for _, known := range r.hosts {
		if host == known {
			return true
		}
	}
	for _, prefix := range hostHeuristics {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

// dottedHost returns the first path segment when it looks like a host name,
// "" otherwise.
func dottedHost(source string) string {
	first := source
	if idx := strings.Index(source, "/"); idx >= 0 {
		first = source[:idx]
	}
	if strings.Contains(first, ".") {
		return first
	}
	return ""
}

// isLocalPath reports whether source is a filesystem path rather than a URL
// or slug shape.
func isLocalPath(source string) bool {
	if strings.Contains(source, "://") {
		return false
	}
	if strings.HasPrefix(source, "/") || strings.HasPrefix(source, "./") ||
		strings.HasPrefix(source, "../") || strings.HasPrefix(source, "~") ||
		source == "." || source == ".." {
		return true
	}
	// A relative path that exists on disk wins over a slug interpretation.
	if _, err := os.Stat(source); err == nil {
		return true
	}
	return false
}

// splitSegments splits a path into its non-empty segments.
func splitSegments(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// setSubpath joins the unconsumed segments into the address subpath.
func setSubpath(addr *domain.ResolvedAddress, segments []string) {
	if len(segments) == 0 {
		return
	}
	addr.Subpath = "/" + strings.Join(segments, "/")
}

// longestPrefix finds the longest slash-joined prefix of segments contained
// in names, returning the number of consumed segments and the matched name.
func longestPrefix(segments []string, names []string) (int, string) {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	for n := len(segments); n > 0; n-- {
		candidate := strings.Join(segments[:n], "/")
		if _, ok := set[candidate]; ok {
			return n, candidate
		}
	}
	return 0, ""
}
