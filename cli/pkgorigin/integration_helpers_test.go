//go:build integration

package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

const repomdXML = `<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo" xmlns:rpm="http://linux.duke.edu/metadata/rpm">
  <revision>1724800000</revision>
  <data type="primary">
    <checksum type="sha256">0011aabb</checksum>
    <open-checksum type="sha256">ccdd2233</open-checksum>
    <location href="repodata/0011aabb-primary.xml.gz"/>
    <timestamp>1724800000</timestamp>
    <size>%d</size>
  </data>
  <data type="filelists">
    <checksum type="sha256">eeff4455</checksum>
    <location href="repodata/eeff4455-filelists.xml.gz"/>
  </data>
</repomd>
`

// primaryCatalog renders a primary.xml with one entry per (name, epoch,
// version, release, arch) tuple. Empty epoch means no epoch attribute.
func primaryCatalog(pkgs [][5]string) string {
	var sb bytes.Buffer
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<metadata xmlns="http://linux.duke.edu/metadata/common" xmlns:rpm="http://linux.duke.edu/metadata/rpm" packages="%d">`, len(pkgs))
	for _, p := range pkgs {
		epoch := ""
		if p[1] != "" {
			epoch = fmt.Sprintf(" epoch=%q", p[1])
		}
		fmt.Fprintf(&sb, `
<package type="rpm">
  <name>%s</name>
  <arch>%s</arch>
  <version%s ver=%q rel=%q/>
</package>`, p[0], p[4], epoch, p[2], p[3])
	}
	sb.WriteString("\n</metadata>\n")
	return sb.String()
}

// startRepoServer serves a minimal RPM repository publishing the given
// primary catalog. It returns the repository base URL.
func startRepoServer(t *testing.T, primaryXML string) (*httptest.Server, string) {
	t.Helper()

	var gzipped bytes.Buffer
	gw := gzip.NewWriter(&gzipped)
	_, err := gw.Write([]byte(primaryXML))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	mux := http.NewServeMux()
	mux.HandleFunc("/repo/repodata/repomd.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, repomdXML, gzipped.Len())
	})
	mux.HandleFunc("/repo/repodata/0011aabb-primary.xml.gz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(gzipped.Bytes())
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, srv.URL + "/repo/"
}

// writeTempConfig writes a config with one enabled repository. An empty
// repoID writes a config with no repositories.
func writeTempConfig(t *testing.T, path, repoID, baseURL, indexDir string) {
	t.Helper()

	cfg := fmt.Sprintf(`settings:
  index_dir: %s
  log_level: error
`, indexDir)
	if repoID != "" {
		cfg += fmt.Sprintf(`repositories:
  - id: %s
    baseurl: %s
    enabled: true
`, repoID, baseURL)
	}
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
}
