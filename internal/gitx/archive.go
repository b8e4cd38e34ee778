package gitx

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/quantmind-br/gitingest-go/internal/utils"
)

// ArchiveFetcher materializes a pinned commit by downloading the host's
// tar.gz snapshot instead of cloning. It only serves github-family hosts and
// never handles submodules; callers fall back to the clone orchestrator on
// any failure.
type ArchiveFetcher struct {
	httpClient *http.Client
	logger     *utils.Logger
}

// ArchiveFetcherOptions contains options for creating an ArchiveFetcher.
type ArchiveFetcherOptions struct {
	HTTPClient *http.Client
	Logger     *utils.Logger
}

// NewArchiveFetcher creates a new ArchiveFetcher.
func NewArchiveFetcher(opts ArchiveFetcherOptions) *ArchiveFetcher {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &ArchiveFetcher{httpClient: client, logger: opts.Logger}
}

// Supports reports whether host has a tarball endpoint we know how to build.
func (f *ArchiveFetcher) Supports(host string) bool {
	switch host {
	case "github.com", "gitlab.com", "bitbucket.org", "codeberg.org":
		return true
	}
	return false
}

// Fetch downloads and extracts the snapshot of commit into destDir.
func (f *ArchiveFetcher) Fetch(ctx context.Context, host, owner, repo, commit, token, destDir string) error {
	archiveURL := f.BuildArchiveURL(host, owner, repo, commit)
	if f.logger != nil {
		f.logger.Debug().Str("archive_url", archiveURL).Msg("Downloading archive")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("archive not found (404)")
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("archive access denied (%d)", resp.StatusCode)
	default:
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	return f.ExtractTarGz(resp.Body, destDir)
}

// BuildArchiveURL builds the snapshot URL for a commit on a known host.
func (f *ArchiveFetcher) BuildArchiveURL(host, owner, repo, commit string) string {
	switch host {
	case "gitlab.com":
		return fmt.Sprintf("https://gitlab.com/%s/%s/-/archive/%s/%s-%s.tar.gz",
			owner, repo, commit, repo, commit)
	case "bitbucket.org":
		return fmt.Sprintf("https://bitbucket.org/%s/%s/get/%s.tar.gz",
			owner, repo, commit)
	case "codeberg.org":
		return fmt.Sprintf("https://codeberg.org/%s/%s/archive/%s.tar.gz",
			owner, repo, commit)
	default:
		return fmt.Sprintf("https://github.com/%s/%s/archive/%s.tar.gz",
			owner, repo, commit)
	}
}

// ExtractTarGz extracts a tar.gz stream into destDir, stripping the
// snapshot's single top-level directory.
func (f *ArchiveFetcher) ExtractTarGz(r io.Reader, destDir string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("gzip reader failed: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read failed: %w", err)
		}

		parts := strings.SplitN(header.Name, "/", 2)
		if len(parts) < 2 || parts[1] == "" {
			continue
		}
		targetPath := filepath.Join(destDir, parts[1])

		if !strings.HasPrefix(filepath.Clean(targetPath), filepath.Clean(destDir)) {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return fmt.Errorf("mkdir failed: %w", err)
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return fmt.Errorf("mkdir failed: %w", err)
			}
			if err := os.Symlink(header.Linkname, targetPath); err != nil && !os.IsExist(err) {
				return fmt.Errorf("symlink failed: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return fmt.Errorf("mkdir failed: %w", err)
			}
			file, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("create file failed: %w", err)
			}
			if _, err := io.Copy(file, tr); err != nil {
				file.Close()
				return fmt.Errorf("copy failed: %w", err)
			}
			file.Close()
		}
	}

	return nil
}
