package scrape

import (
	"net/url"
	"strings"

	"mediascraper/internal/model"
)

// candidate is a raw, unresolved media reference pulled out of markup.
type candidate struct {
	raw   string
	typ   model.MediaType
	title string
}

var blockedHosts = []string{
	"google-analytics.com",
	"doubleclick.net",
}

// resolveAndFilter turns raw candidates into absolute, de-duplicated
// media assets relative to base, applying the tracking-pixel and
// non-http(s) rejection rules shared by the extractor and the
// renderer.
func resolveAndFilter(base *url.URL, candidates []candidate) []model.ExtractedAsset {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.ExtractedAsset, 0, len(candidates))

	for _, c := range candidates {
		resolved := resolve(base, c.raw)
		if resolved == "" || !admissible(resolved) {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		out = append(out, model.ExtractedAsset{
			MediaURL: resolved,
			Type:     c.typ,
			Title:    c.title,
		})
	}
	return out
}

// resolve turns raw (absolute, protocol-relative, or relative) into an
// absolute URL string against base, per RFC 3986. Returns "" if raw is
// empty or unparseable.
func resolve(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !u.IsAbs() && base != nil {
		u = base.ResolveReference(u)
	}
	u.Fragment = ""
	return u.String()
}

// admissible applies the scheme, host, and path rejection rules: only
// http(s) survives (data: URIs and other schemes are dropped), known
// analytics/tracking hosts are dropped, and paths that look like
// tracking pixels are dropped.
func admissible(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, blocked := range blockedHosts {
		if strings.Contains(host, blocked) {
			return false
		}
	}
	if strings.Contains(host, "facebook.com") && strings.Contains(u.Path, "/tr") {
		return false
	}

	path := strings.ToLower(u.Path)
	if strings.Contains(path, "1x1") || strings.Contains(path, "pixel") {
		return false
	}

	return true
}

// allSrcsetURLs extracts every whitespace-delimited URL token from a
// comma-separated srcset attribute value (one per candidate image).
func allSrcsetURLs(srcset string) []string {
	parts := strings.Split(srcset, ",")
	urls := make([]string, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}
