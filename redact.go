package chatexport

import "regexp"

// PII patterns, applied as a fixed sequence. Emails go first so their
// user@host form is not half-eaten by the URL pattern; the output of one
// replacement is not re-scanned by the same pattern.
var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-().]{7,}\d`)
	urlPattern   = regexp.MustCompile(`https?://[^\s]+|www\.[^\s]+`)
)

// RedactPII replaces email addresses, phone numbers, and URLs in the text
// with fixed placeholder tokens. Text with no matches is returned unchanged.
func RedactPII(text string) string {
	text = emailPattern.ReplaceAllString(text, "[EMAIL]")
	text = phonePattern.ReplaceAllString(text, "[PHONE]")
	text = urlPattern.ReplaceAllString(text, "[URL]")
	return text
}
