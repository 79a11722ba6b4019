package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("MissingFileReturnsDefaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultHTTPTimeout, cfg.Settings.HTTPTimeout)
		assert.Equal(t, DefaultMaxRetries, cfg.Settings.MaxRetries)
		assert.Empty(t, cfg.Repositories)
	})

	t.Run("EmptyPathRejected", func(t *testing.T) {
		_, err := LoadConfig("")
		assert.Error(t, err)
	})

	t.Run("ParsesRepositoriesAndSettings", func(t *testing.T) {
		path := writeConfig(t, `
repositories:
  - id: rhel-9-baseos
    baseurl: https://cdn.example.com/rhel/9/baseos/x86_64/os/
    enabled: true
  - id: rhel-9-appstream
    baseurl: https://cdn.example.com/rhel/9/appstream/x86_64/os/
    enabled: false
settings:
  http_timeout: 10s
  max_retries: 5
  log_level: debug
`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Len(t, cfg.Repositories, 2)
		assert.Equal(t, 10*time.Second, cfg.Settings.HTTPTimeout)
		assert.Equal(t, 5, cfg.Settings.MaxRetries)
		assert.Equal(t, "debug", cfg.Settings.LogLevel)
		require.NotNil(t, cfg.GetRepository("rhel-9-baseos"))
		assert.Nil(t, cfg.GetRepository("unknown"))
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		path := writeConfig(t, "repositories: [\n")
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("DuplicateRepoID", func(t *testing.T) {
		path := writeConfig(t, `
repositories:
  - {id: dup, baseurl: "https://a.example.com/", enabled: true}
  - {id: dup, baseurl: "https://b.example.com/", enabled: true}
`)
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "configured twice")
	})

	t.Run("RepoWithoutID", func(t *testing.T) {
		path := writeConfig(t, `
repositories:
  - {baseurl: "https://a.example.com/", enabled: true}
`)
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "has no id")
	})
}

func TestEnabledRepositories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repositories = []*RepositoryConfig{
		{ID: "baseos", BaseURL: "https://cdn.example.com/$releasever/BaseOS/$basearch/os/", Enabled: true},
		{ID: "disabled", BaseURL: "https://cdn.example.com/other/", Enabled: false},
	}
	cfg.Settings.Vars = Vars{Releasever: "9", Basearch: "x86_64"}

	repos := cfg.EnabledRepositories()
	require.Len(t, repos, 1)
	assert.Equal(t, "https://cdn.example.com/9/BaseOS/x86_64/os/", repos[0].BaseURL)

	// The original config must stay untouched.
	assert.Contains(t, cfg.Repositories[0].BaseURL, "$releasever")
}

func TestVarsSubstitute(t *testing.T) {
	t.Run("PartialSubstitutionLeavesVariable", func(t *testing.T) {
		v := Vars{Releasever: "9"}
		url := v.Substitute("https://cdn.example.com/$releasever/$basearch/")
		assert.Equal(t, "https://cdn.example.com/9/$basearch/", url)
		assert.True(t, HasUnsubstitutedVars(url))
	})

	t.Run("FullySubstituted", func(t *testing.T) {
		v := Vars{Releasever: "9", Basearch: "aarch64"}
		url := v.Substitute("https://cdn.example.com/$releasever/$basearch/")
		assert.False(t, HasUnsubstitutedVars(url))
	})
}
