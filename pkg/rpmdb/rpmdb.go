// Package rpmdb enumerates the packages installed on the local host. The
// canonical source is the rpm database, queried through the rpm binary with a
// fixed queryformat; a file with the same line format can stand in for it
// when the inventory was captured on a different machine.
package rpmdb

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/glorpus-work/pkgorigin/internal/logger"
	pkgerrors "github.com/glorpus-work/pkgorigin/pkg/errors"
	"github.com/glorpus-work/pkgorigin/pkg/model"
)

// QueryFormat is the rpm --queryformat used to enumerate the database. One
// package per line, fields separated the same way index keys are, so a line
// maps onto a NEVRA without any re-quoting. rpm prints "(none)" for an unset
// epoch; ParseEpoch folds that to 0.
const QueryFormat = `%{NAME}|%{EPOCH}|%{VERSION}|%{RELEASE}|%{ARCH}\n`

//go:generate mockgen -destination=./mocks/rpmdb.go -package=mocks . Source

// Source yields the set of installed packages to resolve.
type Source interface {
	Installed(ctx context.Context) ([]model.InstalledPackage, error)
}

// RPMSource queries the host rpm database.
type RPMSource struct {
	// RPMPath overrides the rpm binary to run. Empty means "rpm" from PATH.
	RPMPath string
}

// Installed runs `rpm -qa` and parses its output. Lines rpm emits that do not
// parse (gpg-pubkey pseudo-packages have arch "(none)", for example) are
// skipped and logged, not fatal.
func (s *RPMSource) Installed(ctx context.Context) ([]model.InstalledPackage, error) {
	binary := s.RPMPath
	if binary == "" {
		binary = "rpm"
	}

	cmd := exec.CommandContext(ctx, binary, "-qa", "--queryformat", QueryFormat)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, pkgerrors.Wrapf(err, "querying rpm database: %s", msg)
	}

	pkgs, skipped, err := ParseList(bytes.NewReader(out))
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Warn("Skipped unparseable rpm database entries", logger.Fields{"skipped": skipped})
	}
	return pkgs, nil
}

// FileSource reads a previously captured package list, one QueryFormat line
// per package. This is how an inventory taken on an air-gapped host travels
// to wherever the indexes live.
type FileSource struct {
	Path string
}

// Installed reads and parses the list file.
func (s *FileSource) Installed(_ context.Context) ([]model.InstalledPackage, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "cannot open package list %s", s.Path)
	}
	defer func() { _ = file.Close() }()

	pkgs, skipped, err := ParseList(file)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "reading package list %s", s.Path)
	}
	if skipped > 0 {
		logger.Warn("Skipped unparseable package list lines", logger.Fields{
			"path":    s.Path,
			"skipped": skipped,
		})
	}
	return pkgs, nil
}

// ParseList parses QueryFormat lines from r. Blank lines are ignored; lines
// that do not form a valid package identity are skipped and counted.
func ParseList(r io.Reader) ([]model.InstalledPackage, int, error) {
	var (
		pkgs    []model.InstalledPackage
		skipped int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		nevra, err := model.ParseKey(line)
		if err != nil {
			skipped++
			continue
		}
		// gpg-pubkey pseudo-packages carry no real architecture and can never
		// appear in a repository catalog.
		if nevra.Arch == "(none)" {
			skipped++
			continue
		}
		pkgs = append(pkgs, model.InstalledPackage{NEVRA: nevra, DisplayName: nevra.String()})
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, pkgerrors.Wrap(err, "reading package list")
	}
	return pkgs, skipped, nil
}
