package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/glorpus-work/pkgorigin/pkg/match"
	"github.com/glorpus-work/pkgorigin/pkg/model"
	"github.com/glorpus-work/pkgorigin/pkg/rpmdb"
	"github.com/spf13/cobra"
)

type matchFlags struct {
	indexFiles    []string
	indexDir      string
	installedFrom string
	unmatchedOnly bool
	matchedOnly   bool
	format        string
}

// NewMatchCmd creates the match command.
func NewMatchCmd() *cobra.Command {
	var flags matchFlags

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Resolve installed packages to their origin repositories",
		Long: `Resolve every installed package against previously built indexes.

Runs entirely offline. Packages are matched by exact identity (name, epoch,
version, release, arch); a package no index knows is reported as unmatched.
When several indexes are given their order decides ties, so list the most
authoritative index first.

By default the local rpm database is queried. --installed-from reads a
package list captured elsewhere with:
  rpm -qa --queryformat '%{NAME}|%{EPOCH}|%{VERSION}|%{RELEASE}|%{ARCH}\n'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMatch(cmd, &flags)
		},
	}

	cmd.Flags().StringArrayVar(&flags.indexFiles, "index", nil, "index file to match against (repeatable, ordered)")
	cmd.Flags().StringVar(&flags.indexDir, "index-dir", "", "directory of index files (default: index_dir from config)")
	cmd.Flags().StringVar(&flags.installedFrom, "installed-from", "", "read the package list from a file instead of the rpm database")
	cmd.Flags().BoolVar(&flags.unmatchedOnly, "unmatched-only", false, "only show packages no index knows")
	cmd.Flags().BoolVar(&flags.matchedOnly, "matched-only", false, "only show resolved packages")
	cmd.Flags().StringVar(&flags.format, "format", "", "output format (table, csv)")

	return cmd
}

func runMatch(cmd *cobra.Command, flags *matchFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flags.unmatchedOnly && flags.matchedOnly {
		return fmt.Errorf("--unmatched-only and --matched-only are mutually exclusive")
	}
	format := flags.format
	if format == "" {
		format = cfg.Settings.OutputFormat
	}
	if format != "table" && format != "csv" {
		return fmt.Errorf("unsupported output format %q (want table or csv)", format)
	}

	matcher := match.NewMatcher()
	switch {
	case len(flags.indexFiles) > 0:
		err = matcher.LoadFiles(flags.indexFiles)
	case flags.indexDir != "":
		err = matcher.LoadDir(flags.indexDir)
	default:
		err = matcher.LoadDir(cfg.Settings.IndexDir)
	}
	if err != nil {
		return err
	}

	var source rpmdb.Source
	if flags.installedFrom != "" {
		source = &rpmdb.FileSource{Path: flags.installedFrom}
	} else {
		source = &rpmdb.RPMSource{}
	}
	installed, err := source.Installed(cmd.Context())
	if err != nil {
		return err
	}

	report := matcher.Match(installed)
	shown := filterResolutions(report.Resolutions, flags.unmatchedOnly, flags.matchedOnly)

	if format == "csv" {
		return renderCSV(shown)
	}
	renderTable(shown, report)
	return nil
}

func filterResolutions(resolutions []model.Resolution, unmatchedOnly, matchedOnly bool) []model.Resolution {
	if !unmatchedOnly && !matchedOnly {
		return resolutions
	}
	filtered := make([]model.Resolution, 0, len(resolutions))
	for _, res := range resolutions {
		if res.Matched == matchedOnly {
			filtered = append(filtered, res)
		}
	}
	return filtered
}

func renderTable(resolutions []model.Resolution, report *match.Report) {
	if len(resolutions) == 0 {
		fmt.Println("No packages to show")
	} else {
		fmt.Printf("%-45s %-12s %s\n", "PACKAGE", "STATUS", "REPOSITORY")
		fmt.Println(strings.Repeat("-", 75))
		for _, res := range resolutions {
			status := "unmatched"
			repo := "-"
			if res.Matched {
				status = "matched"
				repo = res.Repo
			}
			if res.Ambiguous {
				status = "ambiguous"
			}
			fmt.Printf("%-45s %-12s %s\n", res.Package.String(), status, repo)
		}
	}

	fmt.Printf("\n%d packages: %d matched, %d unmatched, %d ambiguous\n",
		len(report.Resolutions), report.Matched, report.Unmatched, report.Ambiguous)
}

func renderCSV(resolutions []model.Resolution) error {
	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"name", "epoch", "version", "release", "arch", "status", "repository", "index"}); err != nil {
		return err
	}
	for _, res := range resolutions {
		status := "unmatched"
		if res.Matched {
			status = "matched"
		}
		if res.Ambiguous {
			status = "ambiguous"
		}
		pkg := res.Package
		record := []string{
			pkg.Name,
			strconv.Itoa(pkg.Epoch),
			pkg.Version,
			pkg.Release,
			pkg.Arch,
			status,
			res.Repo,
			res.IndexSource,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
