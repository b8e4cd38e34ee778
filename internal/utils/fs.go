package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

var requestSeq atomic.Uint64

// NewRequestID returns a process-unique identifier for one ingestion request.
func NewRequestID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// rand failure is effectively impossible; fall back to a pid-based id
		return fallbackRequestID()
	}
	return hex.EncodeToString(buf[:])
}

// fallbackRequestID stays unique without entropy: pid, wall clock, and a
// process-wide counter.
func fallbackRequestID() string {
	return fmt.Sprintf("req-%d-%d-%d", os.Getpid(), time.Now().UnixNano(), requestSeq.Add(1))
}

// WorkDir returns the exclusive working directory for a request id. The
// directory is not created; the clone stage owns its lifecycle.
func WorkDir(id, slug string) string {
	name := slug
	if name == "" {
		name = "repo"
	}
	return filepath.Join(os.TempDir(), "gitingest", id, name)
}

// EnsureDir creates the directory dir and any missing parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// IsHidden reports whether the base name of path starts with a dot.
func IsHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	base := filepath.Base(name)
	return len(base) > 0 && base[0] == '.'
}

// CountLines counts newline-terminated lines, counting a trailing partial
// line as one.
func CountLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
