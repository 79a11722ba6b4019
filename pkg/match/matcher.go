// Package match resolves installed packages against previously built NEVRA
// indexes. Matching is a pure identity join: an installed package resolves to
// a repository only when name, epoch, version, release and arch all agree
// exactly. No version-range logic, no provides/obsoletes resolution, no
// guessing. A package the indexes do not know is reported as unmatched, which
// is an ordinary answer, not a failure.
package match

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/glorpus-work/pkgorigin/internal/logger"
	pkgerrors "github.com/glorpus-work/pkgorigin/pkg/errors"
	"github.com/glorpus-work/pkgorigin/pkg/index"
	"github.com/glorpus-work/pkgorigin/pkg/model"
)

// loadConcurrency bounds how many index files are read at once.
const loadConcurrency = 4

// Report is the outcome of matching one set of installed packages.
type Report struct {
	// Resolutions holds one entry per installed package, in input order.
	Resolutions []model.Resolution
	// Matched, Unmatched and Ambiguous partition the input. Ambiguous
	// packages are counted under Matched as well: they did resolve, to the
	// first index in load order.
	Matched   int
	Unmatched int
	Ambiguous int
}

// Matcher probes an ordered list of loaded indexes. Order is significant:
// when several indexes claim the same package identity, the earliest loaded
// index wins and the resolution is flagged ambiguous.
type Matcher struct {
	indexes []*index.Index
	sources []string
}

// NewMatcher returns a matcher with no indexes loaded.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Sources returns the index file paths in probe order.
func (m *Matcher) Sources() []string {
	return m.sources
}

// LoadFiles loads the given index files, in the given order. Files are read
// concurrently but the probe order stays exactly the argument order, so two
// runs with the same arguments resolve identically. Any unreadable or invalid
// file fails the whole load; matching against a silently incomplete index set
// would produce misleading unmatched results.
func (m *Matcher) LoadFiles(paths []string) error {
	if len(paths) == 0 {
		return pkgerrors.Wrap(pkgerrors.ErrIndexLoad, "no index files given")
	}

	loaded := make([]*index.Index, len(paths))
	errs := make([]error, len(paths))
	sem := make(chan struct{}, loadConcurrency)
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			loaded[i], errs[i] = index.Load(path)
		}(i, path)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return err
		}
		logger.Debug("Loaded index", logger.Fields{
			"path":     paths[i],
			"repo":     loaded[i].Metadata.RepoID,
			"packages": loaded[i].Metadata.PackageCount,
		})
	}

	m.indexes = append(m.indexes, loaded...)
	m.sources = append(m.sources, paths...)
	return nil
}

// LoadDir loads every index file in dir, sorted by file name so the probe
// order is reproducible across hosts and runs. Recognized extensions are
// .json and its compressed variants.
func (m *Matcher) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrIndexLoad, "cannot read index directory %s: %s", dir, err.Error())
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isIndexFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return pkgerrors.Wrapf(pkgerrors.ErrIndexLoad, "no index files in %s", dir)
	}
	sort.Strings(paths)

	return m.LoadFiles(paths)
}

func isIndexFile(name string) bool {
	for _, suffix := range []string{".json", ".json.gz", ".json.zst", ".json.xz"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Match resolves every installed package against the loaded indexes and
// returns one resolution per package, in input order.
func (m *Matcher) Match(installed []model.InstalledPackage) *Report {
	report := &Report{Resolutions: make([]model.Resolution, 0, len(installed))}

	for _, pkg := range installed {
		res := m.resolve(pkg)
		if res.Matched {
			report.Matched++
		} else {
			report.Unmatched++
		}
		if res.Ambiguous {
			report.Ambiguous++
		}
		report.Resolutions = append(report.Resolutions, res)
	}

	logger.Debug("Matching complete", logger.Fields{
		"total":     len(installed),
		"matched":   report.Matched,
		"unmatched": report.Unmatched,
		"ambiguous": report.Ambiguous,
	})
	return report
}

// resolve probes the indexes in load order. The first index containing the
// key wins; later hits only mark the resolution ambiguous when they name a
// different repository, since the same repository appearing in two index
// files is agreement, not conflict.
func (m *Matcher) resolve(pkg model.InstalledPackage) model.Resolution {
	res := model.Resolution{Package: pkg}
	key := pkg.Key()

	for i, idx := range m.indexes {
		repo, ok := idx.Lookup(key)
		if !ok {
			continue
		}
		if !res.Matched {
			res.Matched = true
			res.Repo = repo
			res.IndexSource = m.sources[i]
			continue
		}
		if repo != res.Repo {
			res.Ambiguous = true
			logger.Debug("Ambiguous package origin", logger.Fields{
				"package": pkg.String(),
				"kept":    res.Repo,
				"also":    repo,
			})
		}
	}
	return res
}
