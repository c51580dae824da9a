package dom

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is a Page over a parsed HTML document. It backs test documents
// and the read side of the live browser session, which re-parses the
// rendered HTML on every query. Scrolls and clicks on a snapshot are inert.
type Snapshot struct {
	doc  *goquery.Document
	host string
	path string
}

// Parse builds a snapshot from HTML.
func Parse(r io.Reader, host, path string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Snapshot{doc: doc, host: host, path: path}, nil
}

// ParseString builds a snapshot from an HTML string.
func ParseString(html, host, path string) (*Snapshot, error) {
	return Parse(strings.NewReader(html), host, path)
}

// Find implements Page.
func (s *Snapshot) Find(selector string) []Element {
	return wrapSelection(s.doc.Find(selector))
}

// ScrollToBottom implements Page; snapshots have no scroll state.
func (s *Snapshot) ScrollToBottom(ctx context.Context, selector string) error {
	return nil
}

// ScrollToTop implements Page; snapshots have no scroll state.
func (s *Snapshot) ScrollToTop(ctx context.Context, selector string) error {
	return nil
}

// ScrollHeight implements Page. A snapshot's height never grows, which
// terminates history-loading loops immediately.
func (s *Snapshot) ScrollHeight(selector string) (int, error) {
	return 0, nil
}

// Location implements Page.
func (s *Snapshot) Location() (string, string) {
	return s.host, s.path
}

// snapshotElement wraps one goquery selection node.
type snapshotElement struct {
	sel *goquery.Selection
}

func wrapSelection(sel *goquery.Selection) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(i int, s *goquery.Selection) {
		out = append(out, &snapshotElement{sel: s})
	})
	return out
}

// Text returns the node text with runs of whitespace collapsed to single
// spaces.
func (e *snapshotElement) Text() string {
	return strings.Join(strings.Fields(e.sel.Text()), " ")
}

func (e *snapshotElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *snapshotElement) Find(selector string) []Element {
	return wrapSelection(e.sel.Find(selector))
}

func (e *snapshotElement) Closest(selector string) (Element, bool) {
	closest := e.sel.Closest(selector)
	if closest.Length() == 0 {
		return nil, false
	}
	return &snapshotElement{sel: closest}, true
}

// Click is inert on a snapshot.
func (e *snapshotElement) Click(ctx context.Context) error {
	return nil
}
