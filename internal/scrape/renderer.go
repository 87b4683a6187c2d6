package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	pagesPerBrowser    = 10
	lowMemoryThreshold = 350 << 20 // 350 MB
	lazyLoadSettle     = 2 * time.Second
)

// Renderer holds at most one live browser process, shared by every
// worker that renders through it, recycling it after a bounded number
// of pages so per-process memory does not drift upward indefinitely.
type Renderer struct {
	mu            sync.Mutex
	browser       *rod.Browser
	pagesServed   int
	timeout       time.Duration
	blockAssets   bool
	log           *slog.Logger
}

// NewRenderer builds a Renderer. blockAssets controls whether
// stylesheet/font requests are aborted during rendering (images are
// never aborted: the extraction pass depends on <img> elements being
// present in the DOM).
func NewRenderer(timeout time.Duration, blockAssets bool, log *slog.Logger) *Renderer {
	return &Renderer{timeout: timeout, blockAssets: blockAssets, log: log}
}

// Render navigates to pageURL in the shared browser and extracts media
// from the rendered DOM.
func (r *Renderer) Render(ctx context.Context, pageURL string) Result {
	base, err := url.Parse(pageURL)
	if err != nil {
		return Result{URL: pageURL, Success: false, ScraperUsed: ScraperDynamic, Err: err}
	}

	r.mu.Lock()
	r.gcHintIfLowMemory()
	browser, err := r.ensureBrowser(ctx)
	r.mu.Unlock()
	if err != nil {
		return Result{URL: pageURL, Success: false, ScraperUsed: ScraperDynamic, Err: err}
	}

	// Page navigation, hijacking, and extraction all run against this
	// browser/page handle without holding r.mu: the mutex only ever
	// guards launch/recycle/retire bookkeeping, so concurrent workers
	// can render pages against the shared browser in parallel.
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		r.mu.Lock()
		r.retireBrowser()
		r.mu.Unlock()
		return Result{URL: pageURL, Success: false, ScraperUsed: ScraperDynamic, Err: err}
	}
	page = page.Context(ctx).Timeout(r.timeout)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1280, Height: 720}); err != nil {
		r.log.Warn("set viewport failed", "url", pageURL, "error", err)
	}

	if r.blockAssets {
		router := page.HijackRequests()
		router.MustAdd("*", func(h *rod.Hijack) {
			rt := h.Request.Type()
			if rt == proto.NetworkResourceTypeStylesheet || rt == proto.NetworkResourceTypeFont {
				h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
			_ = h.LoadResponse(h.Client, true)
		})
		go router.Run()
		defer router.Stop()
	}

	if err := page.Navigate(pageURL); err != nil {
		r.closePageAfterError(page)
		return Result{URL: pageURL, Success: false, ScraperUsed: ScraperDynamic, Err: err}
	}
	if err := page.WaitLoad(); err != nil {
		r.closePageAfterError(page)
		return Result{URL: pageURL, Success: false, ScraperUsed: ScraperDynamic, Err: err}
	}
	_ = page.WaitIdle(r.timeout)

	time.Sleep(lazyLoadSettle)

	htmlStr, err := page.HTML()
	if err != nil {
		r.closePageAfterError(page)
		return Result{URL: pageURL, Success: false, ScraperUsed: ScraperDynamic, Err: err}
	}

	_ = page.Close()
	r.mu.Lock()
	r.recyclePage()
	r.mu.Unlock()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return Result{URL: pageURL, Success: false, ScraperUsed: ScraperDynamic, Err: err}
	}

	media := resolveAndFilter(base, collectCandidates(doc))
	return Result{URL: pageURL, Success: true, Media: media, ScraperUsed: ScraperDynamic}
}

// ensureBrowser lazily launches the shared browser. Caller must hold r.mu.
func (r *Renderer) ensureBrowser(ctx context.Context) (*rod.Browser, error) {
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()
	if path, has := launcher.LookPath(); has {
		l = l.Bin(path)
	}
	l = l.Headless(true).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("single-process")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	r.browser = browser
	r.pagesServed = 0
	return browser, nil
}

// recyclePage counts a completed page and recycles the browser once
// pagesPerBrowser is reached. Caller must hold r.mu.
func (r *Renderer) recyclePage() {
	r.pagesServed++
	if r.pagesServed >= pagesPerBrowser {
		r.retireBrowser()
	}
}

// closePageAfterError closes a page best-effort after a navigation
// failure and issues a GC hint, per spec.md §4.2.
func (r *Renderer) closePageAfterError(page *rod.Page) {
	_ = page.Close()
	runtime.GC()
}

// retireBrowser closes the current browser so the next call relaunches
// a fresh one. Caller must hold r.mu.
func (r *Renderer) retireBrowser() {
	if r.browser == nil {
		return
	}
	_ = r.browser.Close()
	r.browser = nil
	r.pagesServed = 0
}

// gcHintIfLowMemory issues a GC hint and logs resident heap when it
// exceeds the low-memory threshold, ahead of any new scrape.
func (r *Renderer) gcHintIfLowMemory() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.HeapAlloc > lowMemoryThreshold {
		if r.log != nil {
			r.log.Warn("low memory before render, issuing GC hint", "heap_alloc_bytes", m.HeapAlloc)
		}
		runtime.GC()
	}
}

// Close tears down the live browser, if any.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retireBrowser()
}
