// Package service implements the core proxying pipeline: target
// resolution, cache lookup, upstream fetch, header filtering and the
// cache-vs-stream decision.
package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"ghproxy-go/internal/cache"
	"ghproxy-go/internal/client"
	"ghproxy-go/internal/metrics"
	"ghproxy-go/internal/model"
	"ghproxy-go/internal/urlx"
)

// maxCacheableBytes is the largest declared content length the proxy will
// buffer and cache. Larger responses, and responses without a declared
// length, stream through uncached.
const maxCacheableBytes = 1 << 20

// whitelistedResponseHeaders are the only upstream response headers
// relayed to the client, for both cached and live responses.
var whitelistedResponseHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Accept-Ranges",
	"Etag",
	"Last-Modified",
	"Cache-Control",
}

// UpstreamError wraps a failed upstream exchange. The handler maps it to
// a 502 carrying the underlying error text.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return "upstream request failed: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ProxyService composes URL normalization, GitHub rewriting, the response
// cache and the upstream client into the per-request proxy pipeline.
type ProxyService struct {
	client  *client.UpstreamClient
	cache   *cache.Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProxyService creates a ProxyService. The metrics parameter is
// optional; pass nil to disable cache hit/miss recording.
func NewProxyService(c *client.UpstreamClient, store *cache.Cache, logger *slog.Logger, m *metrics.Metrics) *ProxyService {
	return &ProxyService{
		client:  c,
		cache:   store,
		logger:  logger.With("component", "proxy_service"),
		metrics: m,
	}
}

// Proxy resolves the request's target URL and produces the response for
// it. Resolution errors surface before any network call: an invalid
// scheme returns urlx.ErrInvalidScheme, an unreachable upstream returns
// *UpstreamError. Upstream status codes, including 4xx/5xx, pass through
// verbatim.
//
// Responses with a declared content length of at most 1 MiB come back
// fully buffered in Content and are stored in the cache; everything else
// carries a live Body the caller must drain and close exactly once.
func (s *ProxyService) Proxy(ctx context.Context, pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	target, err := urlx.Normalize(pr.RawTarget)
	if err != nil {
		return nil, err
	}
	if pr.ConvertGitHub {
		target = urlx.GitHubToRaw(target)
	}

	key := cache.Key(target)
	if entry, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.CacheHits.Inc()
		}
		s.logger.Debug("cache hit", "url", target)
		return &model.ProxyResponse{
			StatusCode: entry.StatusCode,
			Header:     entry.Header.Clone(),
			Content:    entry.Body,
		}, nil
	}
	if s.cache.Enabled() && s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}

	resp, err := s.client.Get(ctx, target, pr.RangeHeader)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	header := filterResponseHeaders(resp.Header)

	if s.cache.Enabled() && cacheable(resp) {
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, &UpstreamError{Err: err}
		}
		s.cache.Put(key, cache.Entry{
			Body:       body,
			Header:     header,
			StatusCode: resp.StatusCode,
		})
		return &model.ProxyResponse{
			StatusCode: resp.StatusCode,
			Header:     header,
			Content:    body,
		}, nil
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       resp.Body,
	}, nil
}

// cacheable reports whether the upstream declared a content length no
// larger than maxCacheableBytes. Chunked responses have no declared
// length and are never cacheable.
func cacheable(resp *http.Response) bool {
	return resp.ContentLength >= 0 && resp.ContentLength <= maxCacheableBytes
}

// filterResponseHeaders copies through only the whitelisted headers,
// preserving values verbatim and omitting any that are absent.
func filterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(whitelistedResponseHeaders))
	for _, key := range whitelistedResponseHeaders {
		if v := src.Get(key); v != "" {
			dst.Set(key, v)
		}
	}
	return dst
}
