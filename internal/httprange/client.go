// Package httprange implements an io.ReaderAt over HTTP range requests,
// with a span cache and request coalescing tuned by a
// combine-request-threshold knob, so a container reader can treat a
// remote URL exactly like a local file.
package httprange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultCombineRequestThreshold is the byte gap below which two pending
// reads are merged into a single GET rather than issued separately.
const defaultCombineRequestThreshold = 256 * 1024

// defaultMaxRetries bounds the exponential backoff retry loop used for
// transient GET failures.
const defaultMaxRetries = 3

// defaultBackoffBase is the first retry delay; it doubles on each
// subsequent attempt.
const defaultBackoffBase = 100 * time.Millisecond

// Client is an io.ReaderAt backed by ranged GET requests against url. It
// is safe for concurrent use; the span cache serializes itself.
type Client struct {
	url                     string
	httpClient              *http.Client
	contentLength           int64
	combineRequestThreshold int64
	maxRetries              int
	backoffBase             time.Duration

	cache *spanCache
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client (default
// http.DefaultClient).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithCombineRequestThreshold sets the byte gap under which adjacent
// fetches are coalesced into one GET. Typical values are 256 KiB for
// feature fetches and 1 MiB for speculative header prefetch; callers pick
// the value appropriate to the read pattern.
func WithCombineRequestThreshold(n int64) Option {
	return func(cl *Client) { cl.combineRequestThreshold = n }
}

// WithMaxRetries overrides the retry count for transient GET failures.
func WithMaxRetries(n int) Option {
	return func(cl *Client) { cl.maxRetries = n }
}

// NewClient probes url's content length via HEAD, falling back to a
// zero-range GET when the server doesn't answer HEAD requests, then
// returns a ready-to-use Client.
func NewClient(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{
		url:                     url,
		httpClient:              http.DefaultClient,
		combineRequestThreshold: defaultCombineRequestThreshold,
		maxRetries:              defaultMaxRetries,
		backoffBase:             defaultBackoffBase,
	}

	for _, opt := range opts {
		opt(c)
	}

	length, err := c.probeContentLength(ctx)
	if err != nil {
		return nil, err
	}

	if length == 0 {
		return nil, fmt.Errorf("httprange: %s: empty or missing content length", url)
	}

	c.contentLength = length
	c.cache = newSpanCache(length, c.combineRequestThreshold, c.fetch)

	return c, nil
}

// ContentLength returns the remote resource's total byte size, as
// determined at construction time.
func (c *Client) ContentLength() int64 { return c.contentLength }

func (c *Client) probeContentLength(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err == nil && resp.StatusCode == http.StatusOK {
		defer resp.Body.Close()

		return resp.ContentLength, nil
	}

	if resp != nil {
		resp.Body.Close()
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Range", "bytes=0-0")

	resp, err = c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return 0, fmt.Errorf("httprange: unexpected status probing content length: %d", resp.StatusCode)
	}

	contentRange := resp.Header.Get("Content-Range")
	if contentRange == "" {
		return 0, fmt.Errorf("httprange: missing Content-Range header")
	}

	var total int64
	if _, err := fmt.Sscanf(contentRange, "bytes 0-0/%d", &total); err != nil {
		return 0, fmt.Errorf("httprange: parsing Content-Range %q: %w", contentRange, err)
	}

	return total, nil
}

// ReadAt implements io.ReaderAt by consulting (and populating) the span
// cache, which coalesces this request with nearby cached ranges per
// combineRequestThreshold.
func (c *Client) ReadAt(p []byte, off int64) (int, error) {
	if off >= c.contentLength {
		return 0, io.EOF
	}

	data, err := c.cache.get(off, int64(len(p)))
	if err != nil {
		return 0, err
	}

	n := copy(p, data)
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}

	return n, nil
}

// fetch issues one GET covering the closed/open byte range [start, end)
// and returns its body, retrying transient failures with exponential
// backoff.
func (c *Client) fetch(start, end int64) ([]byte, error) {
	var body []byte

	err := retryWithBackoff(c.maxRetries, c.backoffBase, func() error {
		req, err := http.NewRequest(http.MethodGet, c.url, nil)
		if err != nil {
			return err
		}

		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end-1))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
			return fmt.Errorf("httprange: unexpected status %d fetching [%d,%d)", resp.StatusCode, start, end)
		}

		buf := make([]byte, end-start)
		if _, err := io.ReadFull(resp.Body, buf); err != nil {
			return err
		}

		body = buf

		return nil
	})

	return body, err
}

func retryWithBackoff(maxRetries int, base time.Duration, fn func() error) error {
	err := fn()

	delay := base
	for i := 0; i < maxRetries && err != nil; i++ {
		time.Sleep(delay)
		delay *= 2

		err = fn()
	}

	if err == nil {
		return nil
	}

	return fmt.Errorf("httprange: failed after %d retries: %w", maxRetries, err)
}
