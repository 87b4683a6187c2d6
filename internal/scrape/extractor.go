package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mediascraper/internal/model"
)

// Extractor fetches a page over plain HTTP and extracts media
// references from the static markup — no JavaScript execution.
type Extractor struct {
	client    *http.Client
	userAgent string
}

// NewExtractor builds an Extractor with the given per-request deadline
// and outbound User-Agent, following up to 5 redirects.
func NewExtractor(timeout time.Duration, userAgent string) *Extractor {
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// Extract fetches pageURL and returns its static-markup media result.
func (e *Extractor) Extract(ctx context.Context, pageURL string) Result {
	base, err := url.Parse(pageURL)
	if err != nil {
		return Result{URL: pageURL, Success: false, ScraperUsed: ScraperStatic, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Result{URL: pageURL, Success: false, ScraperUsed: ScraperStatic, Err: err}
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{URL: pageURL, Success: false, ScraperUsed: ScraperStatic, Err: err}
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Result{URL: pageURL, Success: false, ScraperUsed: ScraperStatic, Err: err}
	}

	media := resolveAndFilter(base, collectCandidates(doc))
	return Result{URL: pageURL, Success: true, Media: media, ScraperUsed: ScraperStatic}
}

// collectCandidates walks a parsed document collecting raw media
// candidates per spec.md §4.1/§4.2's shared selector rules: img src
// (data-src fallback) and srcset, video src and source descendants,
// and OpenGraph image/video meta tags.
func collectCandidates(doc *goquery.Document) []candidate {
	var candidates []candidate

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src := sel.AttrOr("src", "")
		if src == "" {
			src = sel.AttrOr("data-src", "")
		}
		if src != "" {
			candidates = append(candidates, candidate{raw: src, typ: model.MediaImage})
		}
		if srcset, ok := sel.Attr("srcset"); ok {
			for _, u := range allSrcsetURLs(srcset) {
				candidates = append(candidates, candidate{raw: u, typ: model.MediaImage})
			}
		}
	})

	doc.Find("video").Each(func(_ int, sel *goquery.Selection) {
		if src := sel.AttrOr("src", ""); src != "" {
			candidates = append(candidates, candidate{raw: src, typ: model.MediaVideo})
		}
		sel.Find("source[src]").Each(func(_ int, s *goquery.Selection) {
			candidates = append(candidates, candidate{raw: s.AttrOr("src", ""), typ: model.MediaVideo})
		})
	})

	doc.Find(`meta[property="og:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if content := sel.AttrOr("content", ""); content != "" {
			candidates = append(candidates, candidate{raw: content, typ: model.MediaImage})
		}
	})
	doc.Find(`meta[property="og:video"]`).Each(func(_ int, sel *goquery.Selection) {
		if content := sel.AttrOr("content", ""); content != "" {
			candidates = append(candidates, candidate{raw: content, typ: model.MediaVideo})
		}
	})

	return candidates
}
