package citation

import (
	"strings"
)

// IsTargetCited reports whether targetDomain appears in any cited URL or
// anywhere in the raw response text, case-insensitively. Some providers
// mention a domain in prose without emitting it as a structured citation;
// checking the raw text catches those. This is deliberately a substring
// check, not host parsing — substring collisions are an accepted tradeoff.
func IsTargetCited(urls []string, responseText, targetDomain string) bool {
	if targetDomain == "" {
		return false
	}
	target := strings.ToLower(targetDomain)

	for _, url := range urls {
		if strings.Contains(strings.ToLower(url), target) {
			return true
		}
	}

	return strings.Contains(strings.ToLower(responseText), target)
}
