package catalog

import (
	"compress/bzip2"
	"io"
	"strings"

	"github.com/glorpus-work/pkgorigin/pkg/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// OpenReader wraps r with the decompressor matching the catalog's href
// extension. Repositories publish primary catalogs as .xml.gz almost
// universally, but .bz2, .xz, .zst and uncompressed .xml all occur in the
// wild. An unrecognized extension is passed through as-is.
func OpenReader(href string, r io.Reader) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(href, ".gz"):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrParse, "%s is not valid gzip data: %s", href, err.Error())
		}
		return zr, nil
	case strings.HasSuffix(href, ".bz2"):
		return io.NopCloser(bzip2.NewReader(r)), nil
	case strings.HasSuffix(href, ".xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrParse, "%s is not valid xz data: %s", href, err.Error())
		}
		return io.NopCloser(xr), nil
	case strings.HasSuffix(href, ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrParse, "%s is not valid zstd data: %s", href, err.Error())
		}
		return zr.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}
