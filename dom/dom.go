// Package dom abstracts the host page behind a query-only interface plus
// the few side effects extraction needs (open, scroll). Scanner and
// extractor logic runs against this interface, so it can be exercised in
// tests with a synthetic document instead of a live rendered page.
package dom

import "context"

// Element is one node of the scraped document.
type Element interface {
	// Text returns the node's visible text with whitespace normalized.
	Text() string
	// Attr returns an attribute value and whether it was present.
	Attr(name string) (string, bool)
	// Find returns the descendants matching a CSS selector, in document
	// order.
	Find(selector string) []Element
	// Closest walks up to the nearest ancestor (or self) matching the
	// selector.
	Closest(selector string) (Element, bool)
	// Click triggers the element's open/activate action on the live
	// page. Snapshot elements treat this as a no-op.
	Click(ctx context.Context) error
}

// Page is the conversation surface being scraped. The document behind it is
// externally mutated and never assumed stable between calls; every Find
// reads current state.
type Page interface {
	// Find returns the elements matching a CSS selector, in document
	// order.
	Find(selector string) []Element
	// ScrollToBottom scrolls the first match's scroll container to its
	// maximum offset.
	ScrollToBottom(ctx context.Context, selector string) error
	// ScrollToTop scrolls the first match's scroll container to zero.
	ScrollToTop(ctx context.Context, selector string) error
	// ScrollHeight reports the first match's scrollable height.
	ScrollHeight(selector string) (int, error)
	// Location returns the page host and path, for platform resolution.
	Location() (host, path string)
}

// Finder is the common subtree-query capability of Page and Element.
type Finder interface {
	Find(selector string) []Element
}
