package cli

import (
	"fmt"

	"github.com/glorpus-work/pkgorigin/internal/logger"
	"github.com/glorpus-work/pkgorigin/pkg/index"
	"github.com/spf13/cobra"
)

// NewMergeCmd creates the merge command.
func NewMergeCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "merge <base-index> <update-index>",
		Short: "Merge a newer index into a cumulative base index",
		Long: `Merge an updated index into a base index for the same repository.

Packages only present in the base are retained, so the result accumulates
identities that have disappeared from the live repository. Where both indexes
know a package, the update wins. Merging indexes of different repositories is
refused.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runMerge(args[0], args[1], outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "path to write the merged index to (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runMerge(basePath, updatePath, outputPath string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	base, err := index.Load(basePath)
	if err != nil {
		return fmt.Errorf("failed to load base index: %w", err)
	}
	update, err := index.Load(updatePath)
	if err != nil {
		return fmt.Errorf("failed to load update index: %w", err)
	}

	merged, stats, err := index.Merge(base, update)
	if err != nil {
		return err
	}

	if stats.Changed > 0 {
		logger.Warn("Merge changed existing package origins", logger.Fields{
			"repo":    merged.Metadata.RepoID,
			"changed": stats.Changed,
		})
	}

	if err := merged.Store(outputPath); err != nil {
		return fmt.Errorf("failed to store merged index: %w", err)
	}

	logger.Success("Indexes merged", logger.Fields{
		"repo":        merged.Metadata.RepoID,
		"output":      outputPath,
		"packages":    merged.Metadata.PackageCount,
		"retained":    stats.Retained,
		"added":       stats.Added,
		"overwritten": stats.Overwritten,
	})
	return nil
}
