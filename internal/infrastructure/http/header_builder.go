package httpinfra

import "strings"

// BrowserHeaders returns the header session the marketplace expects from a
// browser client. The referer tracks the configured base URL; everything else
// is fixed.
func BrowserHeaders(baseURL string) map[string]string {
	return map[string]string{
		"accept":             "*/*",
		"accept-language":    "en-US,en;q=0.9",
		"priority":           "u=1, i",
		"referer":            strings.TrimRight(baseURL, "/") + "/",
		"sec-ch-ua":          `"Chromium";v="133", "Not(A:Brand";v="99"`,
		"sec-ch-ua-mobile":   "?0",
		"sec-ch-ua-platform": `"macOS"`,
		"sec-fetch-dest":     "empty",
		"sec-fetch-mode":     "cors",
		"sec-fetch-site":     "same-origin",
		"user-agent":         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
		"cookie":             "locale=en-US",
	}
}
