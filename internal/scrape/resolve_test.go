package scrape

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediascraper/internal/model"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestResolve_RelativeAndProtocolRelative(t *testing.T) {
	base := mustParse(t, "https://example.com/gallery/index.html")

	assert.Equal(t, "https://example.com/gallery/photo.jpg", resolve(base, "photo.jpg"))
	assert.Equal(t, "https://example.com/assets/photo.jpg", resolve(base, "/assets/photo.jpg"))
	assert.Equal(t, "https://cdn.example.com/photo.jpg", resolve(base, "//cdn.example.com/photo.jpg"))
	assert.Equal(t, "https://example.com/photo.jpg", resolve(base, "https://example.com/photo.jpg"))
}

func TestResolve_StripsFragmentAndRejectsGarbage(t *testing.T) {
	base := mustParse(t, "https://example.com/")
	assert.Equal(t, "https://example.com/photo.jpg", resolve(base, "photo.jpg#lightbox"))
	assert.Equal(t, "", resolve(base, ""))
}

func TestAdmissible_RejectsNonHTTPSchemes(t *testing.T) {
	assert.False(t, admissible("data:image/png;base64,aaaa"))
	assert.False(t, admissible("javascript:alert(1)"))
	assert.True(t, admissible("https://example.com/a.jpg"))
	assert.True(t, admissible("http://example.com/a.jpg"))
}

func TestAdmissible_RejectsTrackingHostsAndPixels(t *testing.T) {
	assert.False(t, admissible("https://www.google-analytics.com/collect"))
	assert.False(t, admissible("https://stats.doubleclick.net/r/collect"))
	assert.False(t, admissible("https://www.facebook.com/tr?id=1"))
	assert.False(t, admissible("https://example.com/img/1x1.gif"))
	assert.False(t, admissible("https://example.com/tracking/pixel.png"))
	assert.True(t, admissible("https://example.com/photos/family.jpg"))
}

func TestAllSrcsetURLs_CapturesEveryCandidate(t *testing.T) {
	srcset := "small.jpg 480w, medium.jpg 800w, large.jpg 1200w"
	got := allSrcsetURLs(srcset)
	assert.Equal(t, []string{"small.jpg", "medium.jpg", "large.jpg"}, got)
}

func TestResolveAndFilter_DedupsAndDropsInadmissible(t *testing.T) {
	base := mustParse(t, "https://example.com/")
	candidates := []candidate{
		{raw: "a.jpg", typ: model.MediaImage, title: "first"},
		{raw: "a.jpg", typ: model.MediaImage, title: "duplicate"},
		{raw: "https://doubleclick.net/x.gif", typ: model.MediaImage},
		{raw: "b.mp4", typ: model.MediaVideo},
	}

	out := resolveAndFilter(base, candidates)

	require.Len(t, out, 2)
	assert.Equal(t, "https://example.com/a.jpg", out[0].MediaURL)
	assert.Equal(t, "first", out[0].Title)
	assert.Equal(t, "https://example.com/b.mp4", out[1].MediaURL)
	assert.Equal(t, model.MediaVideo, out[1].Type)
}
