package scrape

import (
	"context"
	"fmt"
	"log/slog"
)

// minStaticMedia is the yield threshold at or above which the static
// extractor's result is trusted outright.
const minStaticMedia = 3

// Router picks the Extractor first, falling back to the Renderer only
// when the static pass looks like it missed client-rendered content.
type Router struct {
	extractor *Extractor
	renderer  *Renderer
	log       *slog.Logger
}

// NewRouter builds a Router composing an Extractor and a Renderer.
func NewRouter(extractor *Extractor, renderer *Renderer, log *slog.Logger) *Router {
	return &Router{extractor: extractor, renderer: renderer, log: log}
}

// Route extracts media from pageURL, using the renderer only when the
// static extractor's yield is below the threshold.
func (r *Router) Route(ctx context.Context, pageURL string) Result {
	staticRes := r.extractor.Extract(ctx, pageURL)

	if staticRes.Success && len(staticRes.Media) >= minStaticMedia {
		return staticRes
	}

	dynamicRes := r.renderSafely(ctx, pageURL)
	if dynamicRes.Success && len(dynamicRes.Media) > len(staticRes.Media) {
		return dynamicRes
	}

	return staticRes
}

// renderSafely invokes the renderer and converts any panic into a
// failed Result, so a renderer fault never takes down the static
// result the router already has in hand.
func (r *Router) renderSafely(ctx context.Context, pageURL string) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.log != nil {
				r.log.Error("renderer panicked, falling back to static result", "url", pageURL, "recover", rec)
			}
			res = Result{URL: pageURL, Success: false, ScraperUsed: ScraperDynamic, Err: fmt.Errorf("renderer panic: %v", rec)}
		}
	}()
	return r.renderer.Render(ctx, pageURL)
}
