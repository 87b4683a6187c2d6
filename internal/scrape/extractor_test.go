package scrape

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPage = `
<html>
<head>
	<meta property="og:image" content="/og/cover.jpg">
</head>
<body>
	<img src="/static/a.jpg">
	<img data-src="/static/lazy.jpg">
	<img srcset="/static/small.jpg 480w, /static/large.jpg 1200w">
	<video src="/static/clip.mp4"></video>
	<video><source src="/static/alt.webm"></video>
	<img src="https://doubleclick.net/tracker.gif">
</body>
</html>`

func TestExtract_CollectsStaticMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testPage))
	}))
	defer srv.Close()

	e := NewExtractor(0, "test-agent/1.0")
	res := e.Extract(t.Context(), srv.URL+"/gallery")

	require.True(t, res.Success)
	assert.Equal(t, ScraperStatic, res.ScraperUsed)

	var urls []string
	for _, m := range res.Media {
		urls = append(urls, m.MediaURL)
	}
	assert.Contains(t, urls, srv.URL+"/og/cover.jpg")
	assert.Contains(t, urls, srv.URL+"/static/a.jpg")
	assert.Contains(t, urls, srv.URL+"/static/lazy.jpg")
	assert.Contains(t, urls, srv.URL+"/static/small.jpg")
	assert.Contains(t, urls, srv.URL+"/static/large.jpg")
	assert.Contains(t, urls, srv.URL+"/static/clip.mp4")
	assert.Contains(t, urls, srv.URL+"/static/alt.webm")
	assert.NotContains(t, urls, "https://doubleclick.net/tracker.gif")
}

func TestExtract_NetworkFailureIsNotSuccess(t *testing.T) {
	e := NewExtractor(0, "test-agent/1.0")
	res := e.Extract(t.Context(), "http://127.0.0.1:1")
	assert.False(t, res.Success)
	assert.Error(t, res.Err)
}
