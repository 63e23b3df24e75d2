// Package model defines shared types for the proxy.
package model

import (
	"io"
	"net/http"
)

// ProxyRequest carries the parts of an inbound request the proxy acts on.
// It is built once by the handler and not modified afterwards.
type ProxyRequest struct {
	RawTarget     string // trailing path segment, possibly still percent-encoded
	RangeHeader   string // inbound Range header value, empty when absent
	ConvertGitHub bool   // rewrite GitHub blob/raw links before fetching
}

// ProxyResponse is the outcome of a proxied fetch. Exactly one body
// representation is populated: Content for fully buffered responses
// (cache hits and cacheable fetches), Body for responses streamed through
// as they arrive. A non-nil Body must be drained and closed exactly once.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Content    []byte
	Body       io.ReadCloser
}
