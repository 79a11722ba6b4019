// Package model provides the data structures shared between the index build
// pipeline and the offline matcher: NEVRA identity tuples, installed-package
// records and match results.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// KeySeparator joins NEVRA fields in the canonical key encoding. It is not a
// legal character in any NEVRA field.
const KeySeparator = "|"

const nevraFieldCount = 5

// NEVRA uniquely identifies one package build: name, epoch, version, release
// and architecture. Equality is exact per field; no version ordering is ever
// applied. Values are treated as immutable once constructed.
type NEVRA struct {
	Name    string `json:"name"`
	Epoch   int    `json:"epoch"`
	Version string `json:"version"`
	Release string `json:"release"`
	Arch    string `json:"arch"`
}

// ParseEpoch normalizes an epoch string from catalog or RPMDB data. An
// absent, empty or "(none)" epoch means 0. Both the index builder and the
// matcher normalize through here, so epoch-omitted entries always line up.
func ParseEpoch(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "(none)" {
		return 0, nil
	}
	epoch, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("epoch %q is not a non-negative integer", raw)
	}
	if epoch < 0 {
		return 0, fmt.Errorf("epoch %q is not a non-negative integer", raw)
	}
	return epoch, nil
}

// Key returns the canonical string encoding of the tuple:
// name|epoch|version|release|arch. This is the join key of the index file
// format.
func (n NEVRA) Key() string {
	return strings.Join([]string{
		n.Name,
		strconv.Itoa(n.Epoch),
		n.Version,
		n.Release,
		n.Arch,
	}, KeySeparator)
}

// EVR returns the epoch:version-release form used in human-facing output.
// The epoch is omitted when 0, matching rpm's display convention.
func (n NEVRA) EVR() string {
	if n.Epoch != 0 {
		return fmt.Sprintf("%d:%s-%s", n.Epoch, n.Version, n.Release)
	}
	return n.Version + "-" + n.Release
}

// String returns the full name-epoch:version-release.arch form.
func (n NEVRA) String() string {
	return n.Name + "-" + n.EVR() + "." + n.Arch
}

// Validate reports whether the tuple has all mandatory fields.
func (n NEVRA) Validate() error {
	switch {
	case n.Name == "":
		return fmt.Errorf("nevra has empty name")
	case n.Version == "":
		return fmt.Errorf("nevra %s has empty version", n.Name)
	case n.Release == "":
		return fmt.Errorf("nevra %s has empty release", n.Name)
	case n.Arch == "":
		return fmt.Errorf("nevra %s has empty arch", n.Name)
	}
	for _, field := range []string{n.Name, n.Version, n.Release, n.Arch} {
		if strings.Contains(field, KeySeparator) {
			return fmt.Errorf("nevra %s contains the key separator %q", n.Name, KeySeparator)
		}
	}
	return nil
}

// ParseKey decodes a canonical key back into a NEVRA. It is the inverse of
// Key and is used to validate persisted index entries on load.
func ParseKey(key string) (NEVRA, error) {
	parts := strings.Split(key, KeySeparator)
	if len(parts) != nevraFieldCount {
		return NEVRA{}, fmt.Errorf("key %q does not have %d fields", key, nevraFieldCount)
	}
	epoch, err := ParseEpoch(parts[1])
	if err != nil {
		return NEVRA{}, fmt.Errorf("key %q: %w", key, err)
	}
	nevra := NEVRA{
		Name:    parts[0],
		Epoch:   epoch,
		Version: parts[2],
		Release: parts[3],
		Arch:    parts[4],
	}
	if err := nevra.Validate(); err != nil {
		return NEVRA{}, fmt.Errorf("key %q: %w", key, err)
	}
	return nevra, nil
}
