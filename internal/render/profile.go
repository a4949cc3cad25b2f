package render

// profile is one browser fingerprint to try when a site blocks the
// previous one. The original crawler this system is descended from tried
// three separate browser engines (Chromium, Firefox, WebKit) and kept
// whichever one a site didn't block; go-rod drives a single CDP engine, so
// engine diversity is approximated with distinct user-agent/viewport
// fingerprints instead.
type profile struct {
	name      string
	userAgent string
	width     int
	height    int
}

var profiles = []profile{
	{
		name:      "chrome-desktop",
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		width:     1920,
		height:    1080,
	},
	{
		name:      "safari-desktop",
		userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		width:     1440,
		height:    900,
	},
	{
		name:      "chrome-mobile",
		userAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36",
		width:     412,
		height:    915,
	},
}
