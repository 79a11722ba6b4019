// Package build orchestrates index construction: fetch a repository's
// catalog metadata, stream the primary catalog into an index, and persist the
// result. It composes the fetch, catalog and index packages and owns the
// multi-repository concurrency.
package build

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/glorpus-work/pkgorigin/internal/logger"
	"github.com/glorpus-work/pkgorigin/pkg/catalog"
	"github.com/glorpus-work/pkgorigin/pkg/config"
	pkgerrors "github.com/glorpus-work/pkgorigin/pkg/errors"
	"github.com/glorpus-work/pkgorigin/pkg/fetch"
	"github.com/glorpus-work/pkgorigin/pkg/index"
)

// DefaultConcurrency bounds parallel repository builds when the caller does
// not say otherwise.
const DefaultConcurrency = 4

// Orchestrator builds indexes from remote repositories.
type Orchestrator struct {
	fetcher     fetch.Fetcher
	concurrency int
}

// Result is the outcome of building one repository's index. Err is set when
// that repository failed; one failing repository never aborts the others.
type Result struct {
	RepoID string
	Index  *index.Index
	Path   string
	Err    error
}

// NewOrchestrator creates an orchestrator using the given fetcher.
// concurrency <= 0 selects DefaultConcurrency.
func NewOrchestrator(fetcher fetch.Fetcher, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Orchestrator{fetcher: fetcher, concurrency: concurrency}
}

// Build constructs the index for one repository: repomd.xml names the
// primary catalog, the catalog is fetched and decompressed, and every package
// record becomes an index entry.
func (o *Orchestrator) Build(ctx context.Context, repo *config.RepositoryConfig) (*index.Index, error) {
	start := time.Now()
	logger.Info("Building index", logger.Fields{"repo": repo.ID, "url": repo.BaseURL})

	repomd, err := o.fetcher.FetchRepoMD(ctx, repo.BaseURL)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "repository %s", repo.ID)
	}
	ref, err := repomd.Primary()
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "repository %s", repo.ID)
	}

	raw, err := o.fetcher.FetchPrimary(ctx, repo.BaseURL, ref)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "repository %s", repo.ID)
	}

	reader, err := catalog.OpenReader(ref.Location.Href, bytes.NewReader(raw))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "repository %s", repo.ID)
	}
	defer func() { _ = reader.Close() }()

	idx, err := index.Build(catalog.NewParser(reader), repo.ID, repo.BaseURL)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "repository %s", repo.ID)
	}

	logger.Success("Index built", logger.Fields{
		"repo":     repo.ID,
		"packages": idx.Metadata.PackageCount,
		"skipped":  idx.Metadata.SkippedRecords,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	})
	return idx, nil
}

// BuildAll builds every repository with bounded concurrency and writes each
// index into outputDir. Results come back in the order the repositories were
// given. compression selects the at-rest encoding ("", "gz", "zst" or "xz").
func (o *Orchestrator) BuildAll(ctx context.Context, repos []*config.RepositoryConfig, outputDir, compression string) []Result {
	results := make([]Result, len(repos))
	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup

	for i, repo := range repos {
		wg.Add(1)
		go func(i int, repo *config.RepositoryConfig) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = o.buildAndStore(ctx, repo, outputDir, compression)
		}(i, repo)
	}
	wg.Wait()

	return results
}

func (o *Orchestrator) buildAndStore(ctx context.Context, repo *config.RepositoryConfig, outputDir, compression string) Result {
	result := Result{RepoID: repo.ID}

	idx, err := o.Build(ctx, repo)
	if err != nil {
		logger.Error("Index build failed", logger.Fields{"repo": repo.ID, "error": err.Error()})
		result.Err = err
		return result
	}
	result.Index = idx

	if outputDir == "" {
		return result
	}
	path := filepath.Join(outputDir, IndexFileName(repo.ID, compression))
	if err := idx.Store(path); err != nil {
		logger.Error("Index store failed", logger.Fields{"repo": repo.ID, "error": err.Error()})
		result.Err = err
		return result
	}
	result.Path = path
	return result
}

// IndexFileName returns the output file name for a repository's index.
func IndexFileName(repoID, compression string) string {
	name := repoID + ".json"
	if compression != "" {
		name += "." + compression
	}
	return name
}
