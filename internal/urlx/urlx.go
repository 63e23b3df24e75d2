// Package urlx normalizes proxy target URLs and rewrites GitHub web
// links to their raw-content form.
package urlx

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidScheme is returned when the resolved target is not an
// http or https URL.
var ErrInvalidScheme = errors.New("only http/https supported")

var (
	githubBlobPattern = regexp.MustCompile(`(?i)^https?://(?:www\.)?github\.com/([^/]+)/([^/]+)/blob/(.+)$`)
	githubRawPattern  = regexp.MustCompile(`(?i)^https?://(?:www\.)?github\.com/([^/]+)/([^/]+)/raw/(.+)$`)
)

// Normalize cleans the raw trailing path segment of a proxy request into
// a validated target URL. It trims surrounding whitespace, percent-decodes
// when the segment is still encoded, and strips the single leading slash
// that path-based routing leaves in front of an absolute URL
// ("//https://..." arrives here as "/https://..."). The returned URL is
// guaranteed to have scheme http or https; anything else fails with
// ErrInvalidScheme. No network access happens here.
func Normalize(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if decoded, err := url.PathUnescape(target); err == nil {
		target = decoded
	}
	if strings.HasPrefix(target, "/http://") || strings.HasPrefix(target, "/https://") {
		target = target[1:]
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", ErrInvalidScheme
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidScheme
	}
	return target, nil
}

// GitHubToRaw rewrites GitHub "blob" and "raw" web URLs to the
// raw.githubusercontent.com host. The blob pattern is tried first; any
// URL matching neither passes through unchanged, which makes the rewrite
// idempotent for URLs already in raw form. Scheme and host match
// case-insensitively.
func GitHubToRaw(target string) string {
	if m := githubBlobPattern.FindStringSubmatch(target); m != nil {
		return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", m[1], m[2], m[3])
	}
	if m := githubRawPattern.FindStringSubmatch(target); m != nil {
		return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", m[1], m[2], m[3])
	}
	return target
}
