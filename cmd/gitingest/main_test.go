package main

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/gitingest-go/internal/config"
	"github.com/quantmind-br/gitingest-go/internal/domain"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid url", domain.ErrInvalidRepoURL, 2},
		{"wrapped address error", domain.NewAddressError("x", domain.ErrUnknownHost), 2},
		{"no host answered", domain.ErrNoRepositoryHost, 2},
		{"ref not found", fmt.Errorf("resolve: %w", domain.ErrRefNotFound), 2},
		{"path not found", domain.ErrPathNotFound, 2},
		{"clone timeout", domain.ErrCloneTimeout, 3},
		{"generic failure", errors.New("boom"), 1},
		{"clone error", domain.NewCloneError("clone", "denied", errors.New("exit status 128")), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exitCode(tt.err))
		})
	}
}

func TestConfigInitFreshHome(t *testing.T) {
	// a home directory with no ~/.gitingest yet
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, configInitCmd.RunE(configInitCmd, nil))

	raw, err := os.ReadFile(config.ConfigFilePath())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "limits:")

	// a second init refuses to overwrite
	err = configInitCmd.RunE(configInitCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRootCommandMetadata(t *testing.T) {
	assert.Equal(t, "gitingest [source]", rootCmd.Use)
	assert.NotNil(t, rootCmd.Flags().Lookup("output"))
	assert.NotNil(t, rootCmd.Flags().Lookup("include-pattern"))
	assert.NotNil(t, rootCmd.Flags().Lookup("exclude-pattern"))
	assert.NotNil(t, rootCmd.Flags().Lookup("branch"))
	assert.NotNil(t, rootCmd.Flags().Lookup("tag"))
	assert.NotNil(t, rootCmd.Flags().Lookup("commit"))
	assert.NotNil(t, rootCmd.Flags().Lookup("token"))
}
