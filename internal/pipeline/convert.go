package pipeline

import (
	"mediascraper/internal/cache"
	"mediascraper/internal/model"
)

func toCachedAssets(assets []model.ExtractedAsset) []cache.CachedAsset {
	out := make([]cache.CachedAsset, len(assets))
	for i, a := range assets {
		out[i] = cache.CachedAsset{MediaURL: a.MediaURL, Type: string(a.Type), Title: a.Title}
	}
	return out
}

func toModelAssets(assets []cache.CachedAsset) []model.ExtractedAsset {
	out := make([]model.ExtractedAsset, len(assets))
	for i, a := range assets {
		out[i] = model.ExtractedAsset{MediaURL: a.MediaURL, Type: model.MediaType(a.Type), Title: a.Title}
	}
	return out
}

// dedupPreserveOrder removes duplicate URLs, keeping first occurrence
// order, and reports how many duplicates were dropped.
func dedupPreserveOrder(urls []string) ([]string, int) {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	duplicates := 0
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			duplicates++
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out, duplicates
}
