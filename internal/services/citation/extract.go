package citation

import (
	"regexp"
)

var (
	// protocolURLPattern matches protocol-qualified URLs. Whitespace and
	// closing brackets/parentheses terminate the match so URLs embedded in
	// markdown links or parenthesised asides don't drag the wrapper along.
	protocolURLPattern = regexp.MustCompile(`https?://[^\s)>\]]+`)

	// bareDomainPattern matches domain-looking tokens without a protocol
	// (e.g. "example.com/events"). Go's regexp has no lookbehind, so the
	// guard against matching the tail of an already-qualified URL, an email
	// or a path fragment is expressed as leading context: the domain must
	// sit at the start of the text or after a character that is not '/',
	// '@' or a word character. The domain itself is capture group 1.
	bareDomainPattern = regexp.MustCompile(`(?:^|[^/@\w])([a-zA-Z0-9-]+\.(?:com|net|org|edu|gov|io|co)[^\s)>\]]*)`)
)

// ExtractURLs scans free text for cited URLs: protocol-qualified URLs first,
// then bare domain tokens. The returned list is raw (uncleaned, possibly
// containing duplicates); callers pass it through Normalize.
func ExtractURLs(text string) []string {
	if text == "" {
		return nil
	}

	urls := protocolURLPattern.FindAllString(text, -1)
	for _, match := range bareDomainPattern.FindAllStringSubmatch(text, -1) {
		urls = append(urls, match[1])
	}
	return urls
}
