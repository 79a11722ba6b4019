package rpmdb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glorpus-work/pkgorigin/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		input := strings.Join([]string{
			"bash|(none)|5.1.8|6.el9|x86_64",
			"",
			"openssl|1|3.0.7|27.el9|x86_64",
			"coreutils|0|8.32|35.el9|noarch",
		}, "\n")

		pkgs, skipped, err := ParseList(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, pkgs, 3)
		assert.Zero(t, skipped)

		assert.Equal(t, model.NEVRA{Name: "bash", Epoch: 0, Version: "5.1.8", Release: "6.el9", Arch: "x86_64"}, pkgs[0].NEVRA)
		assert.Equal(t, "bash-5.1.8-6.el9.x86_64", pkgs[0].DisplayName)
		assert.Equal(t, 1, pkgs[1].Epoch)
		assert.Equal(t, "openssl-1:3.0.7-27.el9.x86_64", pkgs[1].DisplayName)
	})

	t.Run("SkipsMalformedLines", func(t *testing.T) {
		input := strings.Join([]string{
			"bash|(none)|5.1.8|6.el9|x86_64",
			"not a package line",
			"too|many|fields|in|this|line",
			"badepoch|x|1.0|1.el9|x86_64",
		}, "\n")

		pkgs, skipped, err := ParseList(strings.NewReader(input))
		require.NoError(t, err)
		assert.Len(t, pkgs, 1)
		assert.Equal(t, 3, skipped)
	})

	t.Run("SkipsGPGPubkeyEntries", func(t *testing.T) {
		input := strings.Join([]string{
			"gpg-pubkey|(none)|fd431d51|619a38dc|(none)",
			"bash|(none)|5.1.8|6.el9|x86_64",
		}, "\n")

		pkgs, skipped, err := ParseList(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, pkgs, 1)
		assert.Equal(t, "bash", pkgs[0].Name)
		assert.Equal(t, 1, skipped)
	})

	t.Run("Empty", func(t *testing.T) {
		pkgs, skipped, err := ParseList(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, pkgs)
		assert.Zero(t, skipped)
	})
}

func TestFileSource(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "installed.txt")
		require.NoError(t, os.WriteFile(path, []byte("bash|(none)|5.1.8|6.el9|x86_64\n"), 0o644))

		src := &FileSource{Path: path}
		pkgs, err := src.Installed(context.Background())
		require.NoError(t, err)
		require.Len(t, pkgs, 1)
		assert.Equal(t, "bash", pkgs[0].Name)
	})

	t.Run("MissingFile", func(t *testing.T) {
		src := &FileSource{Path: filepath.Join(t.TempDir(), "nope.txt")}
		_, err := src.Installed(context.Background())
		assert.Error(t, err)
	})
}

func TestRPMSourceCommandFailure(t *testing.T) {
	src := &RPMSource{RPMPath: filepath.Join(t.TempDir(), "no-such-rpm")}
	_, err := src.Installed(context.Background())
	assert.Error(t, err)
}
