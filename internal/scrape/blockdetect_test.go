package scrape

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   BlockType
	}{
		{"cloudflare ray", 403, http.Header{"Cf-Ray": {"abc"}}, "", BlockCloudflare},
		{"cloudflare server", 503, http.Header{"Server": {"cloudflare"}}, "", BlockCloudflare},
		{"captcha", 200, http.Header{}, "<p>Please complete the reCAPTCHA</p>", BlockCaptcha},
		{"js shell", 200, http.Header{}, "<noscript>Enable JavaScript to view</noscript>", BlockJSShell},
		{"denied", 200, http.Header{}, "<h1>Access Denied</h1>", BlockDenied},
		{"clean", 200, http.Header{}, "<p>Welcome to Acme</p>", BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: tt.header}
			blocked, bt := DetectBlock(resp, []byte(tt.body))
			assert.Equal(t, tt.want != BlockNone, blocked)
			assert.Equal(t, tt.want, bt)
		})
	}
}

func TestDetectBlock_NilResponse(t *testing.T) {
	blocked, bt := DetectBlock(nil, []byte("captcha"))
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}

func TestLooksBlocked(t *testing.T) {
	assert.True(t, LooksBlocked("Just a moment..."))
	assert.False(t, LooksBlocked("Acme sells anvils."))
	assert.False(t, LooksBlocked(strings.Repeat("access denied is a phrase in a long article. ", 40)))
}
