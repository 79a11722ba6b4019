package fetch

import (
	"encoding/xml"

	"github.com/glorpus-work/pkgorigin/pkg/errors"
)

// RepoMD is the parsed repomd.xml, the repository's index-of-indexes. It
// names the catalog files the repository publishes together with their
// checksums and sizes.
type RepoMD struct {
	XMLName  xml.Name  `xml:"repomd"`
	Revision string    `xml:"revision"`
	Data     []DataRef `xml:"data"`
}

// DataRef is one <data> entry in repomd.xml.
type DataRef struct {
	Type         string   `xml:"type,attr"`
	Checksum     Checksum `xml:"checksum"`
	OpenChecksum Checksum `xml:"open-checksum"`
	Location     Location `xml:"location"`
	Timestamp    float64  `xml:"timestamp"`
	Size         int64    `xml:"size"`
	OpenSize     int64    `xml:"open-size"`
}

// Checksum is a typed digest as published in repomd.xml. It is recorded but
// deliberately not verified; see the package doc for the accepted limitation.
type Checksum struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// Location is the href of a catalog file, relative to the repository base.
type Location struct {
	Href string `xml:"href,attr"`
}

// ParseRepoMD decodes a repomd.xml document.
func ParseRepoMD(data []byte) (*RepoMD, error) {
	var repomd RepoMD
	if err := xml.Unmarshal(data, &repomd); err != nil {
		return nil, errors.Wrap(errors.ErrFetch, "repomd.xml is not valid XML: "+err.Error())
	}
	if len(repomd.Data) == 0 {
		return nil, errors.Wrap(errors.ErrFetch, "repomd.xml lists no data entries")
	}
	return &repomd, nil
}

// Primary returns the reference to the primary package catalog, the only
// catalog this system consumes. primary_db (sqlite) entries are ignored.
func (r *RepoMD) Primary() (*DataRef, error) {
	for i := range r.Data {
		if r.Data[i].Type == "primary" {
			if r.Data[i].Location.Href == "" {
				return nil, errors.Wrap(errors.ErrFetch, "primary entry in repomd.xml has no location href")
			}
			return &r.Data[i], nil
		}
	}
	return nil, errors.Wrap(errors.ErrFetch, "repomd.xml has no primary catalog entry")
}
