package dom

import "github.com/pevans/chatexport/platform"

// One resolves a selector pair to a single element: the primary selector is
// tried first, the fallback only when the primary matched nothing. Never
// errors on not-found; the second return reports whether anything matched.
// Callers never learn which locator matched, which is what keeps them
// correct as the site's markup drifts.
func One(root Finder, pair platform.SelectorPair) (Element, bool) {
	matches := All(root, pair)
	if len(matches) == 0 {
		return nil, false
	}
	return matches[0], true
}

// All resolves a selector pair to every match. The fallback result is used
// only when the primary set is empty; the two sets are never merged.
func All(root Finder, pair platform.SelectorPair) []Element {
	if pair.Primary != "" {
		if matches := root.Find(pair.Primary); len(matches) > 0 {
			return matches
		}
	}
	if pair.Fallback != "" {
		return root.Find(pair.Fallback)
	}
	return nil
}

// Text returns the text of the first pair match under root, or "".
func Text(root Finder, pair platform.SelectorPair) string {
	if el, ok := One(root, pair); ok {
		return el.Text()
	}
	return ""
}

// Attr returns the named attribute of the first pair match under root,
// or "".
func Attr(root Finder, pair platform.SelectorPair, name string) string {
	if el, ok := One(root, pair); ok {
		if v, present := el.Attr(name); present {
			return v
		}
	}
	return ""
}
