package citation

import (
	"strings"
)

// trailingPunctuation is stripped from the end of extracted URLs. Models often
// end a citation with sentence punctuation that is not part of the URL.
const trailingPunctuation = ".,;:!?"

// utmMarker starts the tracking-parameter suffix some providers append to
// cited URLs. Everything from the marker onward is dropped. Matching the
// literal marker (rather than parsing the query string) keeps this robust to
// providers that don't URL-encode the suffix.
const utmMarker = "?utm_source"

// CleanURL strips trailing punctuation and tracking-parameter suffixes from a
// single URL. Cleaning is idempotent: CleanURL(CleanURL(u)) == CleanURL(u).
func CleanURL(url string) string {
	cleaned := strings.TrimRight(url, trailingPunctuation)
	if idx := strings.Index(cleaned, utmMarker); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	return cleaned
}

// Normalize cleans every URL in the list and drops duplicates, preserving
// first-seen order. Entries that clean down to the empty string are dropped.
func Normalize(urls []string) []string {
	if len(urls) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		cleaned := CleanURL(url)
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}
