package gitx

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/quantmind-br/gitingest-go/internal/domain"
	"github.com/quantmind-br/gitingest-go/internal/utils"
)

const peeledSuffix = "^{}"

// GoGitLister implements domain.RemoteLister using go-git's native transport,
// so ref resolution never pays for a subprocess or a clone.
type GoGitLister struct{}

// NewGoGitLister creates a new GoGitLister.
func NewGoGitLister() *GoGitLister {
	return &GoGitLister{}
}

var _ domain.RemoteLister = (*GoGitLister)(nil)

// ListRefs returns the refs advertised by url, including peeled tag entries.
func (l *GoGitLister) ListRefs(ctx context.Context, url, token string) ([]domain.RemoteRef, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})

	opts := &git.ListOptions{PeelingOption: git.AppendPeeled}
	if token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-oauth-basic", Password: token}
	}

	refs, err := remote.ListContext(ctx, opts)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RemoteRef, 0, len(refs))
	for _, ref := range refs {
		name := ref.Name().String()
		out = append(out, domain.RemoteRef{
			Name:   strings.TrimSuffix(name, peeledSuffix),
			Hash:   ref.Hash().String(),
			Peeled: strings.HasSuffix(name, peeledSuffix),
		})
	}
	return out, nil
}

// RefResolver resolves symbolic refs into commit SHAs via lightweight remote
// introspection.
type RefResolver struct {
	lister domain.RemoteLister
	logger *utils.Logger
}

// RefResolverOptions contains options for creating a RefResolver.
type RefResolverOptions struct {
	Lister domain.RemoteLister
	Logger *utils.Logger
}

// NewRefResolver creates a new RefResolver.
func NewRefResolver(opts RefResolverOptions) *RefResolver {
	lister := opts.Lister
	if lister == nil {
		lister = NewGoGitLister()
	}
	return &RefResolver{lister: lister, logger: opts.Logger}
}

// Resolve turns a RefSpec plus repository URL into a 40-character commit SHA.
func (r *RefResolver) Resolve(ctx context.Context, url string, ref domain.RefSpec, token string) (string, error) {
	if ref.Kind == domain.RefCommit {
		return ref.Commit, nil
	}

	refs, err := r.list(ctx, url, token)
	if err != nil {
		return "", err
	}

	switch ref.Kind {
	case domain.RefBranch:
		want := "refs/heads/" + ref.Branch
		for _, line := range refs {
			if line.Name == want {
				return line.Hash, nil
			}
		}
	case domain.RefTag:
		// Annotated tags advertise both the tag object and its peeled
		// commit; the peeled line names the commit we want.
		want := "refs/tags/" + ref.Tag
		var unpeeled string
		for _, line := range refs {
			if line.Name != want {
				continue
			}
			if line.Peeled {
				return line.Hash, nil
			}
			unpeeled = line.Hash
		}
		if unpeeled != "" {
			return unpeeled, nil
		}
	default:
		for _, line := range refs {
			if line.Name == "HEAD" {
				return line.Hash, nil
			}
		}
	}

	return "", domain.ErrRefNotFound
}

// Exists reports whether url answers a ref listing at all. Used both for the
// bare-slug host probe and the pre-clone existence check.
func (r *RefResolver) Exists(ctx context.Context, url, token string) bool {
	refs, err := r.list(ctx, url, token)
	return err == nil && len(refs) > 0
}

// Branches returns the live branch names of url.
func (r *RefResolver) Branches(ctx context.Context, url, token string) ([]string, error) {
	return r.names(ctx, url, token, "refs/heads/")
}

// Tags returns the live tag names of url.
func (r *RefResolver) Tags(ctx context.Context, url, token string) ([]string, error) {
	return r.names(ctx, url, token, "refs/tags/")
}

func (r *RefResolver) names(ctx context.Context, url, token, prefix string) ([]string, error) {
	refs, err := r.list(ctx, url, token)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range refs {
		if line.Peeled || !strings.HasPrefix(line.Name, prefix) {
			continue
		}
		out = append(out, strings.TrimPrefix(line.Name, prefix))
	}
	return out, nil
}

// list wraps the lister with a short exponential backoff so one transient
// network hiccup does not fail the whole request.
func (r *RefResolver) list(ctx context.Context, url, token string) ([]domain.RemoteRef, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(200*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
	), 2), ctx)

	var refs []domain.RemoteRef
	operation := func() error {
		var err error
		refs, err = r.lister.ListRefs(ctx, url, token)
		return err
	}

	if err := backoff.Retry(operation, policy); err != nil {
		if r.logger != nil {
			r.logger.Debug().Err(err).Str("url", url).Msg("Remote ref listing failed")
		}
		return nil, err
	}
	return refs, nil
}
