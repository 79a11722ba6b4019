// Package fetch retrieves repository metadata: the repomd.xml
// index-of-indexes and the primary package catalog it references.
//
// Fetches are plain anonymous HTTP(S) GETs with a request timeout and a
// bounded exponential-backoff retry policy. Server-side (5xx) and transport
// failures are retried; client errors (4xx) are not. Checksums published in
// repomd.xml are carried along but not verified, and signatures are not
// checked either. This layer trades integrity verification for simplicity
// and documents that as an accepted limitation rather than hiding it.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/glorpus-work/pkgorigin/internal/logger"
	"github.com/glorpus-work/pkgorigin/pkg/errors"
	"github.com/sethvargo/go-retry"
)

const (
	defaultUserAgent = "pkgorigin/1.0"

	// initialBackoff is the first retry delay; subsequent delays grow
	// exponentially.
	initialBackoff = 500 * time.Millisecond
)

// Client fetches repository metadata over HTTP.
type Client struct {
	client     *http.Client
	userAgent  string
	maxRetries uint64
}

// NewClient creates a fetch client with the given per-request timeout and
// retry budget. A maxRetries of 0 means every request gets exactly one
// attempt.
func NewClient(timeout time.Duration, maxRetries int) *Client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		client:     &http.Client{Timeout: timeout},
		userAgent:  defaultUserAgent,
		maxRetries: uint64(maxRetries),
	}
}

// FetchRepoMD downloads and parses repodata/repomd.xml below baseURL.
func (c *Client) FetchRepoMD(ctx context.Context, baseURL string) (*RepoMD, error) {
	repomdURL, err := joinURL(baseURL, "repodata/repomd.xml")
	if err != nil {
		return nil, err
	}

	logger.Debug("fetching repomd.xml", logger.Fields{"url": repomdURL})
	data, err := c.get(ctx, repomdURL)
	if err != nil {
		return nil, errors.Wrapf(err, "repository %s", baseURL)
	}
	return ParseRepoMD(data)
}

// FetchPrimary downloads the primary catalog referenced by ref. The returned
// bytes are still compressed; decompression is the catalog parser's job
// because the compression format is keyed off ref's href extension.
func (c *Client) FetchPrimary(ctx context.Context, baseURL string, ref *DataRef) ([]byte, error) {
	primaryURL, err := joinURL(baseURL, ref.Location.Href)
	if err != nil {
		return nil, err
	}

	logger.Debug("fetching primary catalog", logger.Fields{"url": primaryURL})
	data, err := c.get(ctx, primaryURL)
	if err != nil {
		return nil, errors.Wrapf(err, "repository %s", baseURL)
	}
	if ref.Size > 0 && int64(len(data)) != ref.Size {
		logger.Warn("primary catalog size differs from repomd.xml",
			logger.Fields{"url": primaryURL, "want": ref.Size, "got": len(data)})
	}
	return data, nil
}

// get performs one GET with the retry policy applied.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(initialBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
		if err != nil {
			return errors.Wrap(errors.ErrFetch, err.Error())
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			// Transport errors (DNS, connect, timeout) are worth retrying.
			return retry.RetryableError(fmt.Errorf("%w: %s", errors.ErrFetch, err.Error()))
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return retry.RetryableError(fmt.Errorf("%w: reading body: %s", errors.ErrFetch, err.Error()))
			}
			return nil
		case resp.StatusCode >= http.StatusInternalServerError:
			return retry.RetryableError(fmt.Errorf("%w: %s returned HTTP %d", errors.ErrFetch, rawURL, resp.StatusCode))
		default:
			return fmt.Errorf("%w: %s returned HTTP %d", errors.ErrFetch, rawURL, resp.StatusCode)
		}
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// joinURL appends a relative href to a repository base URL.
func joinURL(baseURL, href string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", errors.Wrapf(errors.ErrFetch, "invalid repository URL %s", baseURL)
	}
	parsed.Path, err = url.JoinPath(parsed.Path, href)
	if err != nil {
		return "", errors.Wrapf(errors.ErrFetch, "cannot join %s with %s", baseURL, href)
	}
	return parsed.String(), nil
}
