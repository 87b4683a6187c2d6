package scrape

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute_TrustsStaticResultAboveThreshold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testPage))
	}))
	defer srv.Close()

	// renderer is nil: if Route ever tried to use it for this page, the
	// call would panic. A nil renderer is only safe because testPage
	// yields >= minStaticMedia static candidates.
	router := NewRouter(NewExtractor(0, "test-agent/1.0"), nil, nil)

	res := router.Route(t.Context(), srv.URL+"/gallery")

	require.True(t, res.Success)
	assert.Equal(t, ScraperStatic, res.ScraperUsed)
	assert.GreaterOrEqual(t, len(res.Media), minStaticMedia)
}

func TestRoute_RendererPanicFallsBackToStaticResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><img src="/a.jpg"></body></html>`))
	}))
	defer srv.Close()

	// A nil *Renderer makes Render panic on first field access; Route
	// must still return the (empty-ish) static result rather than
	// propagating the panic to the caller.
	router := NewRouter(NewExtractor(0, "test-agent/1.0"), nil, nil)

	res := router.Route(t.Context(), srv.URL+"/gallery")

	require.True(t, res.Success)
	assert.Equal(t, ScraperStatic, res.ScraperUsed)
	assert.Len(t, res.Media, 1)
}
