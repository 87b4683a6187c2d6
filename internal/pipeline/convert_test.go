package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mediascraper/internal/cache"
	"mediascraper/internal/model"
)

func TestDedupPreserveOrder(t *testing.T) {
	urls := []string{"https://a.com", "https://b.com", "https://a.com", "https://c.com", "https://b.com"}
	deduped, duplicates := dedupPreserveOrder(urls)

	assert.Equal(t, []string{"https://a.com", "https://b.com", "https://c.com"}, deduped)
	assert.Equal(t, 2, duplicates)
}

func TestDedupPreserveOrder_Empty(t *testing.T) {
	deduped, duplicates := dedupPreserveOrder(nil)
	assert.Empty(t, deduped)
	assert.Zero(t, duplicates)
}

func TestAssetConversionRoundTrip(t *testing.T) {
	assets := []model.ExtractedAsset{
		{MediaURL: "https://example.com/a.jpg", Type: model.MediaImage, Title: "a"},
		{MediaURL: "https://example.com/b.mp4", Type: model.MediaVideo, Title: ""},
	}

	cached := toCachedAssets(assets)
	require := assert.New(t)
	require.Equal([]cache.CachedAsset{
		{MediaURL: "https://example.com/a.jpg", Type: "image", Title: "a"},
		{MediaURL: "https://example.com/b.mp4", Type: "video", Title: ""},
	}, cached)

	back := toModelAssets(cached)
	require.Equal(assets, back)
}
