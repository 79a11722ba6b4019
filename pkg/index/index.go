// Package index implements the NEVRA index: a compact, durable mapping from
// package identity (name|epoch|version|release|arch) to the repository it
// came from. Indexes are built once from a repository catalog, persisted as
// a single JSON document (optionally compressed at rest), transferred to the
// offline side, and treated as immutable from then on: merging produces a
// new index value, matching never mutates one.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/glorpus-work/pkgorigin/pkg/errors"
	"github.com/glorpus-work/pkgorigin/pkg/model"
	goversion "github.com/hashicorp/go-version"
	"github.com/mholt/archives"
)

const (
	// CurrentFormatVersion is the version of the index file format this
	// build reads and writes. Loading rejects files from a newer format.
	CurrentFormatVersion = "1.0"

	// InitialPackageCapacity is the initial capacity of the entries map.
	InitialPackageCapacity = 4096
)

// Metadata describes the provenance of an index.
type Metadata struct {
	FormatVersion  string    `json:"format_version"`
	RepoID         string    `json:"repo_id"`
	BaseURL        string    `json:"baseurl,omitempty"`
	Generated      time.Time `json:"generated"`
	PackageCount   int       `json:"package_count"`
	SkippedRecords int       `json:"skipped_records,omitempty"`
}

// Index maps canonical NEVRA keys to a repository identifier.
type Index struct {
	Metadata Metadata          `json:"metadata"`
	Packages map[string]string `json:"packages"`
}

// RecordSource is the stream an index is built from. catalog.Parser
// satisfies it.
type RecordSource interface {
	// Next returns the next record, io.EOF at the end of the stream.
	Next() (model.NEVRA, error)
	// Skipped returns how many malformed records were dropped so far.
	Skipped() int
}

// New creates an empty index for the given repository.
func New(repoID, baseURL string) *Index {
	return &Index{
		Metadata: Metadata{
			FormatVersion: CurrentFormatVersion,
			RepoID:        repoID,
			BaseURL:       baseURL,
			Generated:     time.Now().UTC(),
		},
		Packages: make(map[string]string, InitialPackageCapacity),
	}
}

// Build drains src into a new index for repoID. If the same NEVRA occurs
// more than once the last occurrence wins, deterministically, in catalog
// order. The skipped-record count of the source ends up in the metadata so
// a partially corrupt catalog is visible, not silent.
func Build(src RecordSource, repoID, baseURL string) (*Index, error) {
	idx := New(repoID, baseURL)
	for {
		nevra, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "building index for repository %s", repoID)
		}
		idx.Packages[nevra.Key()] = repoID
	}
	idx.Metadata.PackageCount = len(idx.Packages)
	idx.Metadata.SkippedRecords = src.Skipped()
	return idx, nil
}

// Lookup returns the repository identifier for a NEVRA key.
func (idx *Index) Lookup(key string) (string, bool) {
	repo, ok := idx.Packages[key]
	return repo, ok
}

// Store writes the index to path. The extension selects the at-rest
// encoding: .gz, .zst and .xz produce the compressed variant, anything else
// plain JSON. The write is atomic (temp file + rename) so a crashed build
// never leaves a torn index behind.
func (idx *Index) Store(path string) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal index")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory for %s", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "index-*.tmp")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := writeEncoded(tmp, path, data); err != nil {
		_ = tmp.Close()
		return pkgerrors.Wrapf(err, "failed to write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return pkgerrors.Wrapf(err, "failed to close %s", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return pkgerrors.Wrapf(err, "failed to finalize %s", path)
	}
	return nil
}

func writeEncoded(w io.Writer, path string, data []byte) error {
	compression := compressionForPath(path)
	if compression == nil {
		_, err := w.Write(data)
		return err
	}
	cw, err := compression.OpenWriter(w)
	if err != nil {
		return err
	}
	if _, err := cw.Write(data); err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}

func compressionForPath(path string) archives.Compression {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return archives.Gz{}
	case strings.HasSuffix(path, ".zst"):
		return archives.Zstd{}
	case strings.HasSuffix(path, ".xz"):
		return archives.Xz{}
	default:
		return nil
	}
}

// Load reads an index from path, transparently handling the compressed
// variant: the encoding is sniffed from the file contents, not the file
// name, so a renamed index still loads. Schema violations surface as
// ErrIndexLoad naming the path and the violated expectation.
func Load(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrIndexLoad, "cannot open index file %s: %s", path, err.Error())
	}
	defer func() { _ = file.Close() }()

	var reader io.Reader
	format, stream, err := archives.Identify(context.Background(), filepath.Base(path), file)
	switch {
	case err == nil:
		if decomp, ok := format.(archives.Decompressor); ok {
			rc, err := decomp.OpenReader(stream)
			if err != nil {
				return nil, pkgerrors.Wrapf(pkgerrors.ErrIndexLoad, "index file %s: %s", path, err.Error())
			}
			defer func() { _ = rc.Close() }()
			reader = rc
		} else {
			reader = stream
		}
	case errors.Is(err, archives.NoMatch):
		// Plain JSON document.
		reader = stream
	default:
		return nil, pkgerrors.Wrapf(pkgerrors.ErrIndexLoad, "index file %s: %s", path, err.Error())
	}

	return Parse(reader, path)
}

// Parse decodes and validates an index document from r. path is used only
// for error messages.
func Parse(r io.Reader, path string) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrIndexLoad, "cannot read index file %s: %s", path, err.Error())
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrIndexLoad, "index file %s is not valid JSON: %s", path, err.Error())
	}
	if err := idx.validate(path); err != nil {
		return nil, err
	}
	return &idx, nil
}

func (idx *Index) validate(path string) error {
	meta := idx.Metadata
	if meta.RepoID == "" {
		return pkgerrors.Wrapf(pkgerrors.ErrIndexLoad, "index file %s has no metadata.repo_id", path)
	}
	if meta.FormatVersion == "" {
		return pkgerrors.Wrapf(pkgerrors.ErrIndexLoad, "index file %s has no metadata.format_version", path)
	}
	if err := checkFormatVersion(meta.FormatVersion); err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrIndexLoad, "index file %s: %s", path, err.Error())
	}
	if idx.Packages == nil {
		idx.Packages = map[string]string{}
	}
	if meta.PackageCount != len(idx.Packages) {
		return pkgerrors.Wrapf(pkgerrors.ErrIndexLoad,
			"index file %s metadata claims %d packages but contains %d", path, meta.PackageCount, len(idx.Packages))
	}
	for key, repo := range idx.Packages {
		if _, err := model.ParseKey(key); err != nil {
			return pkgerrors.Wrapf(pkgerrors.ErrIndexLoad, "index file %s: %s", path, err.Error())
		}
		if repo == "" {
			return pkgerrors.Wrapf(pkgerrors.ErrIndexLoad, "index file %s: key %q maps to an empty repository id", path, key)
		}
	}
	return nil
}

// checkFormatVersion rejects index files written by a newer format than this
// build understands. Older versions within the same major are accepted.
func checkFormatVersion(raw string) error {
	have, err := goversion.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("format_version %q is not a version", raw)
	}
	supported := goversion.Must(goversion.NewVersion(CurrentFormatVersion))
	if have.GreaterThan(supported) {
		return fmt.Errorf("format_version %s is newer than supported %s", raw, CurrentFormatVersion)
	}
	return nil
}
