//go:generate mockgen -destination=./mocks/fetch.go -package=mocks . Fetcher
package fetch

import "context"

// Fetcher retrieves repository catalog metadata over the network. The build
// pipeline depends on this interface rather than the concrete client so the
// network can be mocked out in tests.
type Fetcher interface {
	// FetchRepoMD retrieves and parses the repository's index-of-indexes.
	FetchRepoMD(ctx context.Context, baseURL string) (*RepoMD, error)

	// FetchPrimary retrieves the (still compressed) primary catalog named
	// by ref. The returned bytes stay in memory; persisting anything is
	// the caller's business.
	FetchPrimary(ctx context.Context, baseURL string, ref *DataRef) ([]byte, error)
}
