package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"ghproxy-go/internal/model"
	"ghproxy-go/internal/service"
	"ghproxy-go/internal/urlx"
)

// banner is served on the index route; no proxying happens there.
const banner = "ghproxy-go: a forwarding proxy for http/https URLs with GitHub blob-to-raw rewriting"

// ProxyHandler serves the forwarding endpoints.
type ProxyHandler struct {
	service    *service.ProxyService
	logger     *slog.Logger
	chunkBytes int
}

// NewProxyHandler creates a ProxyHandler streaming bodies in chunks of
// chunkBytes.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger, chunkBytes int) *ProxyHandler {
	return &ProxyHandler{
		service:    svc,
		logger:     logger.With("component", "proxy_handler"),
		chunkBytes: chunkBytes,
	}
}

// Index returns the identifying banner.
func (h *ProxyHandler) Index(c echo.Context) error {
	return c.String(http.StatusOK, banner)
}

// Handle proxies the trailing path segment directly, without GitHub
// rewriting.
func (h *ProxyHandler) Handle(c echo.Context) error {
	return h.proxy(c, false)
}

// HandleRaw proxies the trailing path segment with GitHub blob/raw links
// rewritten to raw content.
func (h *ProxyHandler) HandleRaw(c echo.Context) error {
	return h.proxy(c, true)
}

func (h *ProxyHandler) proxy(c echo.Context, convertGitHub bool) error {
	req := c.Request()

	pr := &model.ProxyRequest{
		RawTarget:     c.Param("*"),
		RangeHeader:   req.Header.Get("Range"),
		ConvertGitHub: convertGitHub,
	}

	resp, err := h.service.Proxy(req.Context(), pr)
	if err != nil {
		return h.mapError(c, err)
	}

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}
	c.Response().WriteHeader(resp.StatusCode)

	if resp.Body == nil {
		if _, err := c.Response().Write(resp.Content); err != nil {
			h.logger.Debug("writing buffered response", "err", err)
		}
		return nil
	}

	defer func() { _ = resp.Body.Close() }()
	h.stream(c, resp.Body)
	return nil
}

// stream copies the upstream body through in bounded chunks, flushing
// each one so the client sees data as it arrives. A failed write means
// the client went away; the copy stops and the upstream body is released
// by the deferred Close, which also cancels the upstream request via the
// request context. The status line is already out at this point, so a
// mid-stream upstream error leaves the client with a truncated body.
func (h *ProxyHandler) stream(c echo.Context, body io.Reader) {
	buf := make([]byte, h.chunkBytes)
	res := c.Response()
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := res.Write(buf[:n]); werr != nil {
				h.logger.Debug("client write failed mid-stream", "err", werr)
				return
			}
			res.Flush()
		}
		if err != nil {
			if err != io.EOF {
				h.logger.Error("streaming response body",
					"err", err,
					"path", c.Request().URL.Path,
				)
			}
			return
		}
	}
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	if errors.Is(err, urlx.ErrInvalidScheme) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Only http/https supported",
		})
	}

	var ue *service.UpstreamError
	if errors.As(err, &ue) {
		h.logger.Error("upstream fetch failed",
			"err", ue.Err,
			"path", c.Request().URL.Path,
		)
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "Upstream request failed: " + ue.Err.Error(),
		})
	}

	h.logger.Error("proxy error",
		"err", err,
		"path", c.Request().URL.Path,
	)
	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "Upstream request failed",
	})
}
