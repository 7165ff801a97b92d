package chargemaster

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/pgzip"
)

// Fetcher retrieves the raw bytes of a chargemaster file. Fetch returns
// a reader over the decompressed line-delimited content; the caller
// closes it.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (io.ReadCloser, error)
}

var defaultHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	},
	Timeout: 10 * time.Minute,
}

// HTTPFetcher fetches chargemaster files over HTTP(S) with retries.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch performs an HTTP GET with up to 3 attempts and exponential
// backoff. Client errors (4xx) are not retried. Gzip payloads (by
// Content-Type or .gz suffix) are decompressed transparently.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	client := f.Client
	if client == nil {
		client = defaultHTTPClient
	}

	var resp *http.Response
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, reqErr := http.NewRequestWithContext(ctx, "GET", path, nil)
		if reqErr != nil {
			return nil, fmt.Errorf("creating request: %w", reqErr)
		}

		resp, err = client.Do(req)
		if err != nil {
			continue
		}
		if resp.StatusCode == http.StatusOK {
			isGzip := strings.Contains(resp.Header.Get("Content-Type"), "gzip") ||
				strings.HasSuffix(strings.ToLower(strippedQuery(path)), ".gz")
			return maybeGunzip(resp.Body, isGzip)
		}
		resp.Body.Close()
		err = fmt.Errorf("HTTP %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, err // don't retry client errors
		}
	}

	return nil, fmt.Errorf("fetch failed after retries: %w", err)
}

// FileFetcher fetches chargemaster files from the local filesystem,
// relative to Root when Root is set.
type FileFetcher struct {
	Root string
}

func (f *FileFetcher) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	if f.Root != "" && !strings.HasPrefix(path, "/") {
		path = f.Root + "/" + path
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return maybeGunzip(file, strings.HasSuffix(strings.ToLower(path), ".gz"))
}

// S3Fetcher fetches chargemaster files from s3://bucket/key paths.
type S3Fetcher struct {
	client *s3.Client
}

// NewS3Fetcher creates an S3-backed fetcher using the default AWS
// credential chain.
func NewS3Fetcher(ctx context.Context, region string) (*S3Fetcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Fetcher{client: s3.NewFromConfig(cfg)}, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	u, err := url.Parse(path)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return nil, fmt.Errorf("invalid s3 path %q", path)
	}
	key := strings.TrimPrefix(u.Path, "/")

	resp, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting S3 object %s: %w", path, err)
	}
	return maybeGunzip(resp.Body, strings.HasSuffix(strings.ToLower(key), ".gz"))
}

// Router dispatches fetches by path scheme: http(s) to HTTP, s3 to S3,
// anything else to the local filesystem. S3 is optional; s3:// paths
// fail (softly, at the store level) when no S3 fetcher is configured.
type Router struct {
	HTTP *HTTPFetcher
	File *FileFetcher
	S3   *S3Fetcher
}

func (r *Router) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		if r.HTTP == nil {
			return nil, fmt.Errorf("no HTTP fetcher configured for %q", path)
		}
		return r.HTTP.Fetch(ctx, path)
	case strings.HasPrefix(path, "s3://"):
		if r.S3 == nil {
			return nil, fmt.Errorf("no S3 fetcher configured for %q", path)
		}
		return r.S3.Fetch(ctx, path)
	default:
		if r.File == nil {
			return nil, fmt.Errorf("no file fetcher configured for %q", path)
		}
		return r.File.Fetch(ctx, path)
	}
}

// maybeGunzip wraps body in a pgzip reader when isGzip is set, closing
// both the decompressor and the underlying body on Close.
func maybeGunzip(body io.ReadCloser, isGzip bool) (io.ReadCloser, error) {
	if !isGzip {
		return body, nil
	}
	gz, err := pgzip.NewReader(body)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	return &gzipReadCloser{gz: gz, body: body}, nil
}

type gzipReadCloser struct {
	gz   *pgzip.Reader
	body io.ReadCloser
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	err := g.gz.Close()
	if bodyErr := g.body.Close(); err == nil {
		err = bodyErr
	}
	return err
}

// strippedQuery removes any query string from a URL for suffix checks
// (signed URLs carry long query params after the real filename).
func strippedQuery(rawurl string) string {
	if i := strings.IndexByte(rawurl, '?'); i >= 0 {
		return rawurl[:i]
	}
	return rawurl
}
