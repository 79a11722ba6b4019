package index

import (
	pkgerrors "github.com/glorpus-work/pkgorigin/pkg/errors"
)

// MergeStats reports what a merge did, mostly for operator visibility.
type MergeStats struct {
	// Retained counts entries present only in the base; these survive the
	// merge untouched. This is what makes a cumulative index cumulative.
	Retained int
	// Added counts entries present only in the update.
	Added int
	// Overwritten counts keys present in both; the update's value wins.
	Overwritten int
	// Changed counts the subset of Overwritten where the repository value
	// actually differed. A non-zero Changed on a single-repository
	// cumulative index is worth an operator's attention (possible
	// packaging anomaly), but the merge still applies last-write-wins.
	Changed int
}

// Merge combines base and update into a new index without mutating either.
//
// Every key in base but not in update is retained; every key in update
// overwrites base. The rule is last-write-wins per key, which makes merge
// order-insensitive only for disjoint updates; a deployment should apply
// updates in chronological order so overwrites reflect the newest catalog.
// Entries are never removed here; shrinking a cumulative index is a
// separate, explicit compaction operation, not a merge side effect.
//
// The inputs must describe the same repository; otherwise the merge fails
// with ErrMergeConflict and the operator has to sort out the identifiers.
func Merge(base, update *Index) (*Index, MergeStats, error) {
	var stats MergeStats

	if base.Metadata.RepoID != update.Metadata.RepoID {
		return nil, stats, pkgerrors.Wrapf(pkgerrors.ErrMergeConflict,
			"base index is for repository %q but update is for %q",
			base.Metadata.RepoID, update.Metadata.RepoID)
	}

	merged := &Index{
		Metadata: Metadata{
			FormatVersion:  CurrentFormatVersion,
			RepoID:         update.Metadata.RepoID,
			BaseURL:        update.Metadata.BaseURL,
			Generated:      update.Metadata.Generated,
			SkippedRecords: update.Metadata.SkippedRecords,
		},
		Packages: make(map[string]string, len(base.Packages)+len(update.Packages)),
	}
	if merged.Metadata.BaseURL == "" {
		merged.Metadata.BaseURL = base.Metadata.BaseURL
	}

	for key, repo := range base.Packages {
		merged.Packages[key] = repo
	}
	for key, repo := range update.Packages {
		if existing, ok := merged.Packages[key]; ok {
			stats.Overwritten++
			if existing != repo {
				stats.Changed++
			}
		} else {
			stats.Added++
		}
		merged.Packages[key] = repo
	}
	stats.Retained = len(base.Packages) - stats.Overwritten

	// Recomputed, never summed: overlapping keys must not inflate it.
	merged.Metadata.PackageCount = len(merged.Packages)

	return merged, stats, nil
}
