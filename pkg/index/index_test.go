package index

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	pkgerrors "github.com/glorpus-work/pkgorigin/pkg/errors"
	"github.com/glorpus-work/pkgorigin/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	records []model.NEVRA
	skipped int
	pos     int
}

func (s *sliceSource) Next() (model.NEVRA, error) {
	if s.pos >= len(s.records) {
		return model.NEVRA{}, io.EOF
	}
	n := s.records[s.pos]
	s.pos++
	return n, nil
}

func (s *sliceSource) Skipped() int { return s.skipped }

type failingSource struct{}

func (failingSource) Next() (model.NEVRA, error) {
	return model.NEVRA{}, pkgerrors.Wrap(pkgerrors.ErrParse, "catalog truncated")
}

func (failingSource) Skipped() int { return 0 }

func nevra(name, version string) model.NEVRA {
	return model.NEVRA{Name: name, Version: version, Release: "1.el9", Arch: "x86_64"}
}

func TestBuild(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		src := &sliceSource{
			records: []model.NEVRA{nevra("bash", "5.1.8"), nevra("grep", "3.6")},
			skipped: 2,
		}

		idx, err := Build(src, "baseos", "https://mirror.example.com/baseos/")
		require.NoError(t, err)

		assert.Equal(t, "baseos", idx.Metadata.RepoID)
		assert.Equal(t, CurrentFormatVersion, idx.Metadata.FormatVersion)
		assert.Equal(t, 2, idx.Metadata.PackageCount)
		assert.Equal(t, 2, idx.Metadata.SkippedRecords)
		assert.WithinDuration(t, time.Now(), idx.Metadata.Generated, 5*time.Second)

		repo, ok := idx.Lookup(nevra("bash", "5.1.8").Key())
		require.True(t, ok)
		assert.Equal(t, "baseos", repo)
	})

	t.Run("DuplicateKeyLastWins", func(t *testing.T) {
		src := &sliceSource{
			records: []model.NEVRA{nevra("bash", "5.1.8"), nevra("bash", "5.1.8")},
		}

		idx, err := Build(src, "baseos", "")
		require.NoError(t, err)
		assert.Equal(t, 1, idx.Metadata.PackageCount)
	})

	t.Run("SourceError", func(t *testing.T) {
		_, err := Build(failingSource{}, "baseos", "")
		assert.ErrorIs(t, err, pkgerrors.ErrParse)
	})
}

func TestStoreLoadRoundTrip(t *testing.T) {
	src := &sliceSource{
		records: []model.NEVRA{
			nevra("bash", "5.1.8"),
			nevra("grep", "3.6"),
			{Name: "openssl", Epoch: 1, Version: "3.0.7", Release: "27.el9", Arch: "x86_64"},
		},
		skipped: 1,
	}
	idx, err := Build(src, "baseos", "https://mirror.example.com/baseos/")
	require.NoError(t, err)

	for _, name := range []string{"index.json", "index.json.gz", "index.json.zst", "index.json.xz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, idx.Store(path))

			loaded, err := Load(path)
			require.NoError(t, err)

			assert.Equal(t, idx.Packages, loaded.Packages)
			assert.Equal(t, idx.Metadata.RepoID, loaded.Metadata.RepoID)
			assert.Equal(t, idx.Metadata.PackageCount, loaded.Metadata.PackageCount)
			assert.Equal(t, idx.Metadata.SkippedRecords, loaded.Metadata.SkippedRecords)
			assert.True(t, idx.Metadata.Generated.Equal(loaded.Metadata.Generated))
		})
	}
}

// A compressed index renamed to a bare .json extension must still load; the
// encoding is sniffed from content, not trusted from the file name.
func TestLoadDetectsCompressionDespiteName(t *testing.T) {
	dir := t.TempDir()
	idx, err := Build(&sliceSource{records: []model.NEVRA{nevra("bash", "5.1.8")}}, "baseos", "")
	require.NoError(t, err)

	gzPath := filepath.Join(dir, "index.json.gz")
	require.NoError(t, idx.Store(gzPath))

	renamed := filepath.Join(dir, "index.json")
	require.NoError(t, os.Rename(gzPath, renamed))

	loaded, err := Load(renamed)
	require.NoError(t, err)
	assert.Equal(t, idx.Packages, loaded.Packages)
}

func TestStoreIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	idx, err := Build(&sliceSource{records: []model.NEVRA{nevra("bash", "5.1.8")}}, "baseos", "")
	require.NoError(t, err)
	require.NoError(t, idx.Store(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.json", entries[0].Name())
}

func TestLoadErrors(t *testing.T) {
	writeIndex := func(t *testing.T, doc string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "index.json")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
		return path
	}

	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "NotJSON",
			doc:  "this is not an index",
		},
		{
			name: "MissingRepoID",
			doc:  `{"metadata":{"format_version":"1.0","generated":"2026-08-28T00:00:00Z","package_count":0},"packages":{}}`,
		},
		{
			name: "MissingFormatVersion",
			doc:  `{"metadata":{"repo_id":"baseos","generated":"2026-08-28T00:00:00Z","package_count":0},"packages":{}}`,
		},
		{
			name: "NewerFormatVersion",
			doc:  `{"metadata":{"format_version":"2.0","repo_id":"baseos","generated":"2026-08-28T00:00:00Z","package_count":0},"packages":{}}`,
		},
		{
			name: "GarbageFormatVersion",
			doc:  `{"metadata":{"format_version":"latest","repo_id":"baseos","generated":"2026-08-28T00:00:00Z","package_count":0},"packages":{}}`,
		},
		{
			name: "PackageCountMismatch",
			doc:  `{"metadata":{"format_version":"1.0","repo_id":"baseos","generated":"2026-08-28T00:00:00Z","package_count":7},"packages":{"bash|0|5.1.8|6.el9|x86_64":"baseos"}}`,
		},
		{
			name: "MalformedKey",
			doc:  `{"metadata":{"format_version":"1.0","repo_id":"baseos","generated":"2026-08-28T00:00:00Z","package_count":1},"packages":{"bash-5.1.8":"baseos"}}`,
		},
		{
			name: "EmptyRepoValue",
			doc:  `{"metadata":{"format_version":"1.0","repo_id":"baseos","generated":"2026-08-28T00:00:00Z","package_count":1},"packages":{"bash|0|5.1.8|6.el9|x86_64":""}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeIndex(t, tt.doc)
			_, err := Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, pkgerrors.ErrIndexLoad)
			assert.Contains(t, err.Error(), path)
		})
	}

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, pkgerrors.ErrIndexLoad)
	})

	t.Run("NilPackagesBecomesEmptyMap", func(t *testing.T) {
		path := writeIndex(t, `{"metadata":{"format_version":"1.0","repo_id":"baseos","generated":"2026-08-28T00:00:00Z","package_count":0}}`)
		idx, err := Load(path)
		require.NoError(t, err)
		require.NotNil(t, idx.Packages)
		assert.Empty(t, idx.Packages)
	})

	t.Run("OlderFormatVersionAccepted", func(t *testing.T) {
		path := writeIndex(t, `{"metadata":{"format_version":"0.9","repo_id":"baseos","generated":"2026-08-28T00:00:00Z","package_count":0},"packages":{}}`)
		_, err := Load(path)
		assert.NoError(t, err)
	})
}

func TestCheckFormatVersion(t *testing.T) {
	assert.NoError(t, checkFormatVersion("1.0"))
	assert.NoError(t, checkFormatVersion("0.5"))
	assert.Error(t, checkFormatVersion("1.1"))
	assert.Error(t, checkFormatVersion(""))
	assert.False(t, errors.Is(checkFormatVersion("9.9"), pkgerrors.ErrIndexLoad))
}
