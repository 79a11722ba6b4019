package cli

import (
	"fmt"

	"github.com/glorpus-work/pkgorigin/internal/logger"
	"github.com/glorpus-work/pkgorigin/pkg/build"
	"github.com/glorpus-work/pkgorigin/pkg/config"
	"github.com/glorpus-work/pkgorigin/pkg/fetch"
	"github.com/spf13/cobra"
)

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	var flags buildFlags

	cmd := &cobra.Command{
		Use:   "build [repo-id...]",
		Short: "Build package origin indexes from remote repositories",
		Long: `Build package origin indexes by downloading the primary catalog of
each configured repository and recording every package identity.

Without arguments, every enabled repository is built. Naming repository ids
builds only those. --baseurl with --repo-id builds a single repository that
is not in the config file at all.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, &flags)
		},
	}

	cmd.Flags().StringVarP(&flags.outputDir, "output", "o", "", "directory to write indexes to (default: index_dir from config)")
	cmd.Flags().StringVar(&flags.compression, "compress", "", "compress indexes at rest (gz, zst or xz)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "parallel repository builds (default: from config)")
	cmd.Flags().StringVar(&flags.baseURL, "baseurl", "", "build a single ad-hoc repository from this base URL")
	cmd.Flags().StringVar(&flags.repoID, "repo-id", "", "repository id for --baseurl")

	return cmd
}

type buildFlags struct {
	outputDir   string
	compression string
	concurrency int
	baseURL     string
	repoID      string
}

func runBuild(cmd *cobra.Command, args []string, flags *buildFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	switch flags.compression {
	case "", "gz", "zst", "xz":
	default:
		return fmt.Errorf("unsupported compression %q (want gz, zst or xz)", flags.compression)
	}

	var repos []*config.RepositoryConfig
	if flags.baseURL != "" {
		if flags.repoID == "" {
			return fmt.Errorf("--baseurl requires --repo-id")
		}
		if len(args) > 0 {
			return fmt.Errorf("--baseurl cannot be combined with repository id arguments")
		}
		repos, err = checkSubstitution([]*config.RepositoryConfig{{
			ID:      flags.repoID,
			BaseURL: cfg.Settings.Vars.Substitute(flags.baseURL),
			Enabled: true,
		}})
	} else {
		repos, err = selectRepositories(cfg, args)
	}
	if err != nil {
		return err
	}

	outputDir := flags.outputDir
	if outputDir == "" {
		outputDir = cfg.Settings.IndexDir
	}
	concurrency := flags.concurrency
	if concurrency <= 0 {
		concurrency = cfg.Settings.MaxConcurrentBuilds
	}

	fetcher := fetch.NewClient(cfg.Settings.HTTPTimeout, cfg.Settings.MaxRetries)
	orch := build.NewOrchestrator(fetcher, concurrency)

	results := orch.BuildAll(cmd.Context(), repos, outputDir, flags.compression)

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d repositories failed to build", failed, len(results))
	}

	logger.Success("All indexes built", logger.Fields{"repos": len(results), "dir": outputDir})
	return nil
}

// selectRepositories resolves which repositories to build. Explicit ids may
// name disabled repositories; asking for one by name counts as enabling it.
func selectRepositories(cfg *config.Config, ids []string) ([]*config.RepositoryConfig, error) {
	if len(ids) == 0 {
		repos := cfg.EnabledRepositories()
		if len(repos) == 0 {
			return nil, fmt.Errorf("no enabled repositories configured")
		}
		return checkSubstitution(repos)
	}

	repos := make([]*config.RepositoryConfig, 0, len(ids))
	for _, id := range ids {
		repo := cfg.GetRepository(id)
		if repo == nil {
			return nil, fmt.Errorf("repository %s is not configured", id)
		}
		substituted := *repo
		substituted.BaseURL = cfg.Settings.Vars.Substitute(repo.BaseURL)
		repos = append(repos, &substituted)
	}
	return checkSubstitution(repos)
}

func checkSubstitution(repos []*config.RepositoryConfig) ([]*config.RepositoryConfig, error) {
	for _, repo := range repos {
		if config.HasUnsubstitutedVars(repo.BaseURL) {
			return nil, fmt.Errorf("repository %s URL %q contains unsubstituted variables; set settings.vars in the config", repo.ID, repo.BaseURL)
		}
	}
	return repos, nil
}
