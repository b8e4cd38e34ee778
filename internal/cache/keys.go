package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/quantmind-br/gitingest-go/internal/domain"
)

// DigestKey derives the cache key for one digest: a SHA-256 over the resolved
// repository identity, the pinned commit, the subpath, and a hash of the
// pattern sets. Two requests share an entry only when all of these match.
func DigestKey(addr *domain.ResolvedAddress, req *domain.IngestionRequest) string {
	h := sha256.New()
	h.Write([]byte(addr.Host))
	h.Write([]byte{0})
	h.Write([]byte(addr.Owner))
	h.Write([]byte{0})
	h.Write([]byte(addr.Repo))
	h.Write([]byte{0})
	h.Write([]byte(addr.Ref.Commit))
	h.Write([]byte{0})
	h.Write([]byte(addr.Subpath))
	h.Write([]byte{0})
	h.Write([]byte(patternHash(req)))
	return "digest:" + hex.EncodeToString(h.Sum(nil))
}

// patternHash summarizes every request field that changes digest output.
func patternHash(req *domain.IngestionRequest) string {
	include := append([]string(nil), req.IncludePatterns...)
	exclude := append([]string(nil), req.ExcludePatterns...)
	sort.Strings(include)
	sort.Strings(exclude)

	var b strings.Builder
	b.WriteString("include=")
	b.WriteString(strings.Join(include, ","))
	b.WriteString(";exclude=")
	b.WriteString(strings.Join(exclude, ","))
	if req.MaxFileSize > 0 {
		fmt.Fprintf(&b, ";maxsize=%d", req.MaxFileSize)
	}
	if req.IncludeSubmodules {
		b.WriteString(";submodules")
	}
	if req.IncludeGitignored {
		b.WriteString(";gitignored")
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
