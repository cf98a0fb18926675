package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/singleflight"

	"github.com/danielhuang/cotton/pkg/cache"
	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
	"github.com/danielhuang/cotton/pkg/httputil"
)

// DefaultBaseURL is the public JavaScript registry used when no
// configuration overrides it (spec §6.3).
const DefaultBaseURL = "https://registry.npmjs.org"

const (
	defaultTimeout = 30 * time.Second
	metadataTTL    = 24 * time.Hour
)

// Client fetches package metadata and tarballs from a registry over HTTP.
// It is safe for concurrent use: the singleflight group enforces at most
// one in-flight metadata request per name, and the cache backend is
// expected to be concurrency-safe.
type Client struct {
	http    *http.Client
	baseURL string
	cache   cache.Cache
	keyer   cache.Keyer
	group   singleflight.Group
	logger  *log.Logger
}

// NewClient constructs a Client against baseURL, memoising metadata in c
// (a cache.NewNullCache() disables memoisation). If logger is nil,
// log.Default() is used.
func NewClient(baseURL string, c cache.Cache, logger *log.Logger) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		baseURL: baseURL,
		cache:   c,
		keyer:   cache.NewDefaultKeyer(),
		logger:  logger,
	}
}

// FetchMetadata retrieves the PackageDoc for name, the registry's ordered
// mapping of every published version plus dist-tags. Concurrent calls for
// the same name share a single outbound request; all callers receive the
// same (possibly cached) result.
func (c *Client) FetchMetadata(ctx context.Context, name string) (*PackageDoc, error) {
	if err := cottonerrors.ValidateNpmPackageName(name); err != nil {
		return nil, err
	}

	key := c.keyer.MetadataKey(c.baseURL, name)
	if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
		var doc PackageDoc
		if err := json.Unmarshal(data, &doc); err == nil {
			return &doc, nil
		}
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		doc, err := c.fetchMetadata(ctx, name)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(doc); err == nil {
			_ = c.cache.Set(ctx, key, data, metadataTTL)
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PackageDoc), nil
}

func (c *Client) fetchMetadata(ctx context.Context, name string) (*PackageDoc, error) {
	var wire wirePackageDoc
	err := httputil.RetryWithBackoff(ctx, func() error {
		return c.getJSON(ctx, c.baseURL+"/"+name, &wire)
	})
	if err != nil {
		if cottonerrors.Is(err, cottonerrors.ErrCodeUnknownPackage) {
			return nil, cottonerrors.Wrap(cottonerrors.ErrCodeUnknownPackage, err, "package %q not found", name)
		}
		return nil, err
	}
	return wire.toDoc(), nil
}

// FetchTarball streams the tarball at url. The caller (the archive store)
// is responsible for decompressing, extracting, and verifying the stream
// against expected as bytes flow; the client does not buffer the tarball
// in memory or inspect its contents, only the HTTP transport around it.
func (c *Client) FetchTarball(ctx context.Context, url string, expected Digest) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := httputil.RetryWithBackoff(ctx, func() error {
		resp, err := c.doRequest(ctx, url, nil)
		if err != nil {
			return err
		}
		body = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.doRequest(ctx, url, map[string]string{
		"Accept": "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8",
	})
	if err != nil {
		return err
	}
	defer resp.Close()
	return json.NewDecoder(resp).Decode(v)
}

func (c *Client) doRequest(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Encoding", "gzip, br")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, httputil.Retryable(cottonerrors.Wrap(cottonerrors.ErrCodeNetwork, err, "request %s", url))
	}

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return decodeBody(resp)
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return cottonerrors.New(cottonerrors.ErrCodeUnknownPackage, "status 404")
	case code == http.StatusTooManyRequests:
		return httputil.Retryable(&cottonerrors.RateLimitedError{})
	case code >= 500:
		return httputil.Retryable(cottonerrors.New(cottonerrors.ErrCodeNetwork, "status %d", code))
	default:
		return cottonerrors.New(cottonerrors.ErrCodeNetwork, "status %d", code)
	}
}

// decodeBody transparently decompresses a gzip or brotli transport encoding.
// Most responses carry neither, since net/http already negotiates its own
// gzip handling when Accept-Encoding is left unset; here we set it
// ourselves (to additionally advertise brotli) which disables that
// automatic behavior, so both codecs are decoded explicitly.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		return &decodedBody{Reader: zr, underlying: resp.Body}, nil
	case "br":
		return &decodedBody{Reader: brotli.NewReader(resp.Body), underlying: resp.Body}, nil
	default:
		return resp.Body, nil
	}
}

// decodedBody pairs a decompressing Reader with the underlying response
// body so Close releases the real connection.
type decodedBody struct {
	io.Reader
	underlying io.Closer
}

func (d *decodedBody) Close() error { return d.underlying.Close() }
