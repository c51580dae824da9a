// Package browser drives a real Chrome instance and exposes the rendered
// page through the dom.Page interface. Reads go through a fresh HTML
// snapshot on every query, because the page mutates itself between polls;
// clicks and scrolls are executed against the live document.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/pevans/chatexport/dom"
)

const navigateTimeout = 60 * time.Second

// Session is a live browser page implementing dom.Page.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	host string
	path string
}

// chromeOptions are the allocator flags shared by every session.
func chromeOptions(headless bool) []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-infobars", true),
	)
}

// NewSession launches a browser.
func NewSession(headless bool, log zerolog.Logger) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), chromeOptions(headless)...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)

	return &Session{
		ctx: ctx,
		cancel: func() {
			ctxCancel()
			allocCancel()
		},
		log: log,
	}, nil
}

// Close shuts the browser down and releases resources.
func (s *Session) Close() {
	s.cancel()
}

// Alive reports whether the browser context is still usable. A dead
// context fails every subsequent call the same way.
func (s *Session) Alive() bool {
	return s.ctx.Err() == nil
}

// Navigate opens a URL and records its host and path for platform
// resolution.
func (s *Session) Navigate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(s.ctx, navigateTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Navigate(rawURL)); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	s.host = u.Host
	s.path = u.Path
	s.log.Info().Str("host", s.host).Str("path", s.path).Msg("page opened")
	return nil
}

// Location implements dom.Page.
func (s *Session) Location() (string, string) {
	return s.host, s.path
}

// snapshot grabs the current rendered HTML and parses it.
func (s *Session) snapshot() (*goquery.Document, error) {
	var html string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// Find implements dom.Page. Each call reads the document's current state.
func (s *Session) Find(selector string) []dom.Element {
	doc, err := s.snapshot()
	if err != nil {
		s.log.Warn().Err(err).Msg("page snapshot failed")
		return nil
	}

	var out []dom.Element
	doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
		out = append(out, &liveElement{
			session: s,
			sel:     sel,
			steps:   []step{{selector: selector, index: i}},
		})
	})
	return out
}

// ScrollToBottom implements dom.Page.
func (s *Session) ScrollToBottom(ctx context.Context, selector string) error {
	return s.scroll(ctx, selector, "c.scrollHeight")
}

// ScrollToTop implements dom.Page.
func (s *Session) ScrollToTop(ctx context.Context, selector string) error {
	return s.scroll(ctx, selector, "0")
}

// scroll sets the scroll offset of the first match's nearest scrollable
// container.
func (s *Session) scroll(ctx context.Context, selector, offsetExpr string) error {
	if selector == "" {
		return fmt.Errorf("empty selector")
	}
	script := fmt.Sprintf(`(function() {
		var el = document.querySelector(%q);
		if (!el) return false;
		var c = el;
		while (c && c.scrollHeight <= c.clientHeight) c = c.parentElement;
		if (!c) c = el;
		c.scrollTop = %s;
		return true;
	})()`, selector, offsetExpr)

	var ok bool
	runCtx, cancel := mergeDeadline(ctx, s.ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("scroll target %q not present", selector)
	}
	return nil
}

// ScrollHeight implements dom.Page.
func (s *Session) ScrollHeight(selector string) (int, error) {
	if selector == "" {
		return 0, fmt.Errorf("empty selector")
	}
	script := fmt.Sprintf(`(function() {
		var el = document.querySelector(%q);
		if (!el) return -1;
		var c = el;
		while (c && c.scrollHeight <= c.clientHeight) c = c.parentElement;
		if (!c) c = el;
		return c.scrollHeight;
	})()`, selector)

	var height int
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, &height)); err != nil {
		return 0, fmt.Errorf("failed to read scroll height: %w", err)
	}
	if height < 0 {
		return 0, fmt.Errorf("element %q not present", selector)
	}
	return height, nil
}

// mergeDeadline runs browser actions under the caller's cancellation while
// keeping the browser's own context as the action target.
func mergeDeadline(caller, browser context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(browser)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// step locates one level of a live element's address: the nth match of a
// selector within its parent scope.
type step struct {
	selector string
	index    int
}

// liveElement reads from the snapshot it was found in, but clicks against
// the live document by replaying its selector path.
type liveElement struct {
	session *Session
	sel     *goquery.Selection
	steps   []step
}

func (e *liveElement) Text() string {
	return strings.Join(strings.Fields(e.sel.Text()), " ")
}

func (e *liveElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *liveElement) Find(selector string) []dom.Element {
	var out []dom.Element
	e.sel.Find(selector).Each(func(i int, sel *goquery.Selection) {
		out = append(out, &liveElement{
			session: e.session,
			sel:     sel,
			steps:   append(append([]step(nil), e.steps...), step{selector: selector, index: i}),
		})
	})
	return out
}

// Closest walks up within the snapshot. The resulting element has no
// replayable address, so it is readable but not clickable.
func (e *liveElement) Closest(selector string) (dom.Element, bool) {
	closest := e.sel.Closest(selector)
	if closest.Length() == 0 {
		return nil, false
	}
	return &liveElement{session: e.session, sel: closest}, true
}

// Click replays the element's selector path against the live document and
// clicks the result.
func (e *liveElement) Click(ctx context.Context) error {
	if len(e.steps) == 0 {
		return fmt.Errorf("element has no live address")
	}

	expr := "document"
	for _, st := range e.steps {
		expr = fmt.Sprintf("%s.querySelectorAll(%q)[%d]", expr, st.selector, st.index)
	}
	script := fmt.Sprintf(`(function() {
		var el = %s;
		if (!el) return false;
		el.click();
		return true;
	})()`, expr)

	var ok bool
	runCtx, cancel := mergeDeadline(ctx, e.session.ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("element no longer present")
	}
	return nil
}
