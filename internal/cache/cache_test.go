package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLKey_EncodesAndTruncates(t *testing.T) {
	short := URLKey("https://example.com/a")
	assert.True(t, len(short) <= len("url:")+100)
	assert.Contains(t, short, "url:")

	long := URLKey("https://example.com/" + string(make([]byte, 500)))
	assert.LessOrEqual(t, len(long), len("url:")+100)
}

func TestMediaListKey_DefaultsEmptyTypeToAll(t *testing.T) {
	assert.Equal(t, "media:list:1:20:all:", MediaListKey(1, 20, "", ""))
	assert.Equal(t, "media:list:2:10:image:cat", MediaListKey(2, 10, "image", "cat"))
}

func TestCache_NilClientIsNoOpNotPanic(t *testing.T) {
	c := New(nil)
	ctx := t.Context()

	_, ok := c.GetURL(ctx, "https://example.com")
	assert.False(t, ok)

	c.SetURL(ctx, "https://example.com", []CachedAsset{{MediaURL: "x"}})
	assert.False(t, c.GetJSON(ctx, "anything", &struct{}{}))
	assert.False(t, c.Ping(ctx))

	// None of these may panic on a nil underlying client.
	c.SetMediaList(ctx, "k", map[string]string{"a": "b"})
	c.SetMediaStats(ctx, map[string]int{"total": 1})
	c.SetQueueStats(ctx, map[string]int{"waiting": 1})
	c.InvalidateMedia(ctx)
}
