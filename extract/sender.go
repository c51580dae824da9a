package extract

import "strings"

// IsSenderMatch decides whether an extracted sender label belongs to the
// configured user. An empty extracted label is always attributed to the
// user: platforms commonly omit the label on one's own messages. Otherwise
// the match is fuzzy: case-insensitive equality, the extracted value being
// a prefix of the configured first name, or the configured name containing
// the extracted value.
func IsSenderMatch(extracted, configured string) bool {
	e := strings.ToLower(strings.TrimSpace(extracted))
	if e == "" {
		return true
	}
	c := strings.ToLower(strings.TrimSpace(configured))
	if c == "" {
		return false
	}
	if e == c {
		return true
	}
	if fields := strings.Fields(c); len(fields) > 0 && strings.HasPrefix(fields[0], e) {
		return true
	}
	return strings.Contains(c, e)
}
