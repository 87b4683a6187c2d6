package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidHTTPURL(t *testing.T) {
	assert.True(t, validHTTPURL("https://example.com/page"))
	assert.True(t, validHTTPURL("http://example.com"))
	assert.False(t, validHTTPURL("ftp://example.com"))
	assert.False(t, validHTTPURL("not a url"))
	assert.False(t, validHTTPURL("https:///missing-host"))
}
