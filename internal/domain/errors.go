package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrRefNotFound indicates the requested branch/tag/commit is absent on the remote
	ErrRefNotFound = errors.New("ref not found in remote")

	// ErrCloneTimeout indicates the clone stage exceeded its deadline
	ErrCloneTimeout = errors.New("clone operation timed out")

	// ErrGitNotInstalled indicates the git tool is not available
	ErrGitNotInstalled = errors.New("git is not installed or not in PATH")

	// ErrPathNotFound indicates the target path is missing after materialization
	ErrPathNotFound = errors.New("path not found in repository")

	// ErrCacheMiss indicates a digest cache miss
	ErrCacheMiss = errors.New("cache miss")

	// ErrUnknownHost indicates the source names a host outside the allow-list
	ErrUnknownHost = errors.New("unknown domain")

	// ErrNoRepositoryHost indicates no known host answered for a bare slug
	ErrNoRepositoryHost = errors.New("could not find a valid repository host")

	// ErrInvalidRepoURL indicates the source has fewer than owner/repo segments
	ErrInvalidRepoURL = errors.New("invalid repository URL")
)

// AddressError represents a malformed or unknown source string.
type AddressError struct {
	Source string
	Err    error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("cannot resolve source %q: %v", e.Source, e.Err)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}

// NewAddressError creates a new AddressError.
func NewAddressError(source string, err error) *AddressError {
	return &AddressError{Source: source, Err: err}
}

// CloneError represents a git subprocess failure. Stderr carries the
// offending command's error output.
type CloneError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CloneError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s failed: %s", e.Command, e.Stderr)
	}
	return fmt.Sprintf("git %s failed: %v", e.Command, e.Err)
}

func (e *CloneError) Unwrap() error {
	return e.Err
}

// NewCloneError creates a new CloneError.
func NewCloneError(command, stderr string, err error) *CloneError {
	return &CloneError{Command: command, Stderr: stderr, Err: err}
}

// ContentError represents a per-file decode failure. It is local to one file
// and never aborts the request.
type ContentError struct {
	Path string
	Err  error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("cannot decode %s: %v", e.Path, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// NotebookError represents a malformed or unsupported notebook structure,
// local to one file.
type NotebookError struct {
	Path   string
	Reason string
}

func (e *NotebookError) Error() string {
	return fmt.Sprintf("invalid notebook %s: %s", e.Path, e.Reason)
}

// IsFatal reports whether an error should abort the whole request. Content
// and notebook errors degrade to placeholder text instead.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var contentErr *ContentError
	if errors.As(err, &contentErr) {
		return false
	}
	var nbErr *NotebookError
	if errors.As(err, &nbErr) {
		return false
	}
	return true
}
