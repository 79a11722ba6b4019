package model

// InstalledPackage is one installed unit as reported by the installed-package
// source. DisplayName is free-form; identity for matching is the NEVRA alone.
type InstalledPackage struct {
	NEVRA
	DisplayName string `json:"display_name,omitempty"`
}

// Resolution is the outcome of matching one installed package against the
// supplied indexes. Unmatched is a valid outcome, not an error: Repo and
// IndexSource stay empty and Matched is false.
type Resolution struct {
	Package InstalledPackage `json:"package"`
	Matched bool             `json:"matched"`
	// Repo is the repository identifier the package resolved to.
	Repo string `json:"repo,omitempty"`
	// IndexSource identifies which supplied index satisfied the match.
	IndexSource string `json:"index_source,omitempty"`
	// Ambiguous is set when a later index carries the same NEVRA with a
	// different repository identifier. The first index in probe order
	// still wins; this only flags the situation.
	Ambiguous bool `json:"ambiguous,omitempty"`
}
