package gateway

import "regexp"

// dangerousPatterns match executable or injection-prone fragments that must
// never be forwarded verbatim from model output into client-rendered text.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)__import__\s*\(`),
	regexp.MustCompile(`(?i)exec\s*\(`),
	regexp.MustCompile(`(?i)subprocess`),
	regexp.MustCompile(`(?i)os\.system`),
}

const filteredMarker = "[FILTERED]"

// Sanitize replaces dangerous fragments in model output with a marker.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	for _, pattern := range dangerousPatterns {
		text = pattern.ReplaceAllString(text, filteredMarker)
	}
	return text
}
