package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot page detected.
type BlockType string

// Block types reported by DetectBlock.
const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockDenied     BlockType = "denied"
)

// DetectBlock inspects a raw HTTP response for challenge pages.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))
	if bt := classifyText(lower); bt != BlockNone {
		return true, bt
	}
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}
	return false, BlockNone
}

// LooksBlocked reports whether already-extracted text is a challenge or
// error page rather than real content. Long texts that merely mention a
// marker are not treated as blocked.
func LooksBlocked(text string) bool {
	if len(text) >= 1000 {
		return false
	}
	return classifyText(strings.ToLower(text)) != BlockNone
}

func classifyText(lower string) BlockType {
	switch {
	case strings.Contains(lower, "checking your browser"),
		strings.Contains(lower, "cf-browser-verification"),
		strings.Contains(lower, "just a moment"),
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge"):
		return BlockCloudflare
	case strings.Contains(lower, "captcha"):
		return BlockCaptcha
	case strings.Contains(lower, "access denied"),
		strings.Contains(lower, "403 forbidden"),
		strings.Contains(lower, "please enable cookies"):
		return BlockDenied
	}
	return BlockNone
}
