package fetcher

import (
	"os/exec"
	"runtime"

	"github.com/jmylchreest/wikidoc/internal/logger"
)

// chromeCandidates are tried in order; bare names go through PATH.
var chromeCandidates = map[string][]string{
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"google-chrome",
		"chromium",
	},
	"windows": {
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		"chrome",
	},
	"linux": {
		"google-chrome-stable",
		"google-chrome",
		"chromium",
		"chromium-browser",
		"/snap/bin/chromium",
	},
}

// FindChrome returns the first Chrome or Chromium executable found for the
// current platform, or "" to let chromedp use its own lookup.
func FindChrome() string {
	candidates, ok := chromeCandidates[runtime.GOOS]
	if !ok {
		candidates = chromeCandidates["linux"]
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("found Chrome binary", "path", path)
			return path
		}
	}
	logger.Warn("no Chrome binary found, dynamic fetch may fail")
	return ""
}
