package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/quantmind-br/gitingest-go/internal/app"
	"github.com/quantmind-br/gitingest-go/internal/cache"
	"github.com/quantmind-br/gitingest-go/internal/config"
	"github.com/quantmind-br/gitingest-go/internal/domain"
	"github.com/quantmind-br/gitingest-go/internal/gitx"
	"github.com/quantmind-br/gitingest-go/internal/utils"
	"github.com/quantmind-br/gitingest-go/pkg/version"
)

var (
	cfgFile string
	verbose bool
	log     *utils.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy onto shell exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRepoURL),
		errors.Is(err, domain.ErrUnknownHost),
		errors.Is(err, domain.ErrNoRepositoryHost),
		errors.Is(err, domain.ErrPathNotFound),
		errors.Is(err, domain.ErrRefNotFound):
		return 2
	case errors.Is(err, domain.ErrCloneTimeout):
		return 3
	default:
		return 1
	}
}

var rootCmd = &cobra.Command{
	Use:   "gitingest [source]",
	Short: "Turn any Git repository into an LLM-friendly text digest",
	Long: `Gitingest converts a repository reference (URL, owner/repo slug, or local
path) into a single prompt-friendly digest: a summary header, an ASCII
directory tree, and the concatenated file contents.

Sources can pin a branch, tag, or commit, address a subdirectory or a single
file (/tree/... and /blob/... URLs), and filter files with gitignore-style
include/exclude patterns.`,
	Version: version.Short(),
	Args:    cobra.MaximumNArgs(1),
	RunE:    run,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.gitingest/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Output flags
	rootCmd.Flags().StringP("output", "o", "digest.txt", "Output file path (\"-\" for stdout)")
	rootCmd.Flags().Bool("json", false, "Write the digest as JSON")

	// Filtering flags
	rootCmd.Flags().StringP("max-size", "s", "10MB", "Skip files larger than this size")
	rootCmd.Flags().StringSliceP("include-pattern", "i", nil, "Only ingest files matching these patterns")
	rootCmd.Flags().StringSliceP("exclude-pattern", "e", nil, "Skip files matching these patterns")
	rootCmd.Flags().Bool("include-gitignored", false, "Ingest files matched by .gitignore")

	// Ref selection flags
	rootCmd.Flags().StringP("branch", "b", "", "Branch to ingest")
	rootCmd.Flags().String("tag", "", "Tag to ingest (wins over --branch)")
	rootCmd.Flags().String("commit", "", "Commit SHA to ingest (wins over --branch and --tag)")
	rootCmd.Flags().Bool("include-submodules", false, "Clone and ingest submodules")

	// Auth flags
	rootCmd.Flags().StringP("token", "t", "", "Access token for private repositories (defaults to $GITHUB_TOKEN)")

	// Cache flags
	rootCmd.Flags().Bool("no-cache", false, "Disable the digest cache")
	rootCmd.Flags().Bool("refresh-cache", false, "Recompute the digest even when cached")
	rootCmd.Flags().Duration("cache-ttl", config.DefaultCacheTTL, "Digest cache TTL")

	// Clone flags
	rootCmd.Flags().Duration("timeout", config.DefaultCloneTimeout, "Clone stage deadline")

	_ = viper.BindPFlag("output.path", rootCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("output.json", rootCmd.Flags().Lookup("json"))
	_ = viper.BindPFlag("limits.max_file_size", rootCmd.Flags().Lookup("max-size"))
	_ = viper.BindPFlag("cache.ttl", rootCmd.Flags().Lookup("cache-ttl"))
	_ = viper.BindPFlag("clone.timeout", rootCmd.Flags().Lookup("timeout"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logLevel := "info"
	if verbose {
		logLevel = "debug"
	}
	log = utils.NewLogger(utils.LoggerOptions{
		Level:   logLevel,
		Format:  "pretty",
		Verbose: verbose,
	})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(args) == 0 {
		return cmd.Help()
	}
	source := args[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down gracefully...")
		cancel()
	}()

	req, err := buildRequest(cmd, cfg, source)
	if err != nil {
		return err
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	refreshCache, _ := cmd.Flags().GetBool("refresh-cache")

	var digestCache domain.Cache
	if cfg.Cache.Enabled && !noCache {
		cacheDir := cfg.Cache.Directory
		if cacheDir == "" {
			cacheDir = config.CacheDir()
		}
		c, err := cache.NewBadgerCache(cache.Options{
			Directory: utils.ExpandPath(cacheDir),
			Logger:    log,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Cache unavailable, continuing without it")
		} else {
			digestCache = c
			defer c.Close()
		}
	}

	ingester, err := app.NewIngester(app.IngesterOptions{
		Config:       cfg,
		Logger:       log,
		Cache:        digestCache,
		RefreshCache: refreshCache,
		Progress:     !verbose,
	})
	if err != nil {
		return err
	}

	result, err := ingester.Run(ctx, req)
	if err != nil {
		return err
	}

	return writeDigest(cmd, cfg, result)
}

// buildRequest assembles the IngestionRequest from flags and config.
func buildRequest(cmd *cobra.Command, cfg *config.Config, source string) (domain.IngestionRequest, error) {
	maxSize, err := cfg.MaxFileSizeBytes()
	if err != nil {
		return domain.IngestionRequest{}, err
	}

	include, _ := cmd.Flags().GetStringSlice("include-pattern")
	exclude, _ := cmd.Flags().GetStringSlice("exclude-pattern")
	branch, _ := cmd.Flags().GetString("branch")
	tag, _ := cmd.Flags().GetString("tag")
	commit, _ := cmd.Flags().GetString("commit")
	submodules, _ := cmd.Flags().GetBool("include-submodules")
	gitignored, _ := cmd.Flags().GetBool("include-gitignored")

	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	return domain.IngestionRequest{
		Source:            source,
		MaxFileSize:       maxSize,
		IncludePatterns:   include,
		ExcludePatterns:   exclude,
		Branch:            branch,
		Tag:               tag,
		Commit:            commit,
		IncludeSubmodules: submodules,
		IncludeGitignored: gitignored,
		Token:             token,
	}, nil
}

// writeDigest prints the summary and writes the full digest to the chosen
// destination.
func writeDigest(cmd *cobra.Command, cfg *config.Config, result *domain.IngestionResult) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	outPath := cfg.Output.Path
	if cmd.Flags().Changed("output") {
		outPath, _ = cmd.Flags().GetString("output")
	}

	var payload []byte
	if asJSON {
		raw, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		payload = append(raw, '\n')
	} else {
		payload = []byte(result.Summary + "\n\n" + result.Tree + "\n" + result.Content)
	}

	if outPath == "-" {
		_, err := os.Stdout.Write(payload)
		return err
	}

	if err := os.WriteFile(outPath, payload, 0644); err != nil {
		return fmt.Errorf("failed to write digest: %w", err)
	}

	fmt.Println(result.Summary)
	fmt.Printf("\nDigest written to: %s\n", outPath)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ConfigFilePath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}

		if err := utils.EnsureDir(config.ConfigDir()); err != nil {
			return err
		}

		raw, err := yaml.Marshal(config.Default())
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, raw, 0644); err != nil {
			return err
		}

		fmt.Printf("Config written to: %s\n", path)
		return nil
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system dependencies",
	Long:  "Verifies that git and the local environment are ready for ingestion.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Checking system dependencies...")
		allPassed := true

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		fmt.Print("  Git installation: ")
		runner := gitx.NewExecRunner(gitx.ExecRunnerOptions{})
		if v, err := runner.Version(ctx); err == nil {
			fmt.Printf("OK (%s)\n", v)
		} else {
			fmt.Println("NOT FOUND")
			allPassed = false
		}

		fmt.Print("  Config file: ")
		if _, err := config.Load(); err != nil {
			fmt.Printf("WARN (%v)\n", err)
		} else {
			fmt.Println("OK")
		}

		fmt.Print("  Cache directory: ")
		cacheDir := utils.ExpandPath(config.CacheDir())
		if err := utils.EnsureDir(cacheDir); err == nil {
			fmt.Printf("OK (%s)\n", cacheDir)
		} else {
			fmt.Println("WARN (will be created on first use)")
		}

		fmt.Print("  Temp directory: ")
		tmp, err := os.MkdirTemp("", "gitingest-doctor-")
		if err == nil {
			os.RemoveAll(tmp)
			fmt.Println("OK")
		} else {
			fmt.Println("FAILED")
			allPassed = false
		}

		fmt.Println()
		if allPassed {
			fmt.Println("All critical checks passed!")
		} else {
			fmt.Println("Some checks failed. Please resolve the issues above.")
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
