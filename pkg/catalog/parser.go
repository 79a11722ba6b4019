// Package catalog decodes primary package catalogs (primary.xml and its
// compressed variants) into a stream of NEVRA records.
//
// The parser is deliberately tolerant of individual bad records: a package
// element with missing or unusable identity fields is skipped and counted,
// so one corrupt entry cannot throw away a multi-hundred-thousand-entry
// catalog. Only a catalog that is structurally unreadable (not valid
// compressed data, not well-formed XML) aborts with ErrParse.
package catalog

import (
	"encoding/xml"
	"errors"
	"io"

	pkgerrors "github.com/glorpus-work/pkgorigin/pkg/errors"
	"github.com/glorpus-work/pkgorigin/pkg/model"
)

// xmlPackage is the subset of a primary.xml <package> element this system
// needs. Everything else (checksums, file lists, requires/provides) is
// ignored at decode time so the record shape stays fixed and the epoch
// defaulting lives in exactly one place.
type xmlPackage struct {
	Type    string `xml:"type,attr"`
	Name    string `xml:"name"`
	Arch    string `xml:"arch"`
	Version struct {
		Epoch string `xml:"epoch,attr"`
		Ver   string `xml:"ver,attr"`
		Rel   string `xml:"rel,attr"`
	} `xml:"version"`
}

// Parser streams NEVRA records out of a decompressed primary.xml document.
type Parser struct {
	dec     *xml.Decoder
	skipped int
}

// NewParser creates a parser reading from r. r must already be decompressed;
// see OpenReader.
func NewParser(r io.Reader) *Parser {
	return &Parser{dec: xml.NewDecoder(r)}
}

// Next returns the next well-formed package record. It returns io.EOF when
// the catalog is exhausted and ErrParse when the document itself is
// unreadable. Records that fail validation are skipped and counted, and Next
// moves on to the following record.
func (p *Parser) Next() (model.NEVRA, error) {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return model.NEVRA{}, io.EOF
			}
			return model.NEVRA{}, pkgerrors.Wrap(pkgerrors.ErrParse, err.Error())
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "package" {
			continue
		}

		var pkg xmlPackage
		if err := p.dec.DecodeElement(&pkg, &start); err != nil {
			return model.NEVRA{}, pkgerrors.Wrap(pkgerrors.ErrParse, err.Error())
		}

		// Non-rpm entries are legal in the format but carry nothing to index.
		if pkg.Type != "" && pkg.Type != "rpm" {
			continue
		}

		nevra, err := pkg.toNEVRA()
		if err != nil {
			p.skipped++
			continue
		}
		return nevra, nil
	}
}

// All drains the parser and returns every remaining record.
func (p *Parser) All() ([]model.NEVRA, error) {
	var records []model.NEVRA
	for {
		nevra, err := p.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, nevra)
	}
}

// Skipped returns how many records were dropped for failing validation so
// far. The index builder surfaces this in build metadata.
func (p *Parser) Skipped() int {
	return p.skipped
}

func (pkg *xmlPackage) toNEVRA() (model.NEVRA, error) {
	epoch, err := model.ParseEpoch(pkg.Version.Epoch)
	if err != nil {
		return model.NEVRA{}, err
	}
	nevra := model.NEVRA{
		Name:    pkg.Name,
		Epoch:   epoch,
		Version: pkg.Version.Ver,
		Release: pkg.Version.Rel,
		Arch:    pkg.Arch,
	}
	if err := nevra.Validate(); err != nil {
		return model.NEVRA{}, err
	}
	return nevra, nil
}
