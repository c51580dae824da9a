// Package extract runs the per-conversation extraction state machine:
// OPEN_CHAT -> WAIT_RENDER -> SCROLL_TOP -> COLLECT -> DONE/FAILED. It
// tolerates an asynchronously-rendering document with bounded polls and a
// content fingerprint that guards against reading the previous
// conversation's messages after a switch.
package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/pevans/chatexport"
	"github.com/pevans/chatexport/dom"
	"github.com/pevans/chatexport/platform"
	"github.com/pevans/chatexport/scan"
)

const (
	// DefaultPoll is the render-poll interval.
	DefaultPoll = 300 * time.Millisecond
	// DefaultRenderDeadline bounds WAIT_RENDER.
	DefaultRenderDeadline = 5 * time.Second
	// DefaultScrollTries caps SCROLL_TOP attempts.
	DefaultScrollTries = 25
	// DefaultScrollBudget is the wall-clock cap on SCROLL_TOP for one
	// conversation.
	DefaultScrollBudget = 20 * time.Second

	// fingerprintLen is how much of the first message's text identifies
	// the open conversation.
	fingerprintLen = 40
)

// Result is the terminal output for one conversation. Either Err or
// Messages is meaningful; the chat key and the counters are always set.
type Result struct {
	ChatKey     string
	DisplayName string
	// Messages holds the first N user-authored messages in document
	// order.
	Messages []chatexport.ExtractedMessage
	// All holds every candidate message collected, both parties.
	All []chatexport.ExtractedMessage
	// Total counts candidate messages seen; Collected counts
	// user-authored ones found.
	Total     int
	Collected int
	// Partial is set when fewer than N user-authored messages were found
	// after all strategies. It is a flag, not an error.
	Partial bool
	Err     error
}

// Extractor drives the state machine over a live page. One extractor serves
// a whole run; the machine itself is fresh per conversation.
type Extractor struct {
	page     dom.Page
	platform *platform.Platform
	settings chatexport.Settings

	Poll           time.Duration
	RenderDeadline time.Duration
	ScrollTries    int
	ScrollBudget   time.Duration
}

// New creates an extractor for the given page and platform.
func New(page dom.Page, p *platform.Platform, settings chatexport.Settings) *Extractor {
	return &Extractor{
		page:           page,
		platform:       p,
		settings:       settings.Normalize(),
		Poll:           DefaultPoll,
		RenderDeadline: DefaultRenderDeadline,
		ScrollTries:    DefaultScrollTries,
		ScrollBudget:   DefaultScrollBudget,
	}
}

// Extract runs the machine for one conversation key. The returned Result
// always carries the key; a failed phase sets Err and the FAILED state is
// entered, otherwise Messages and the counters are populated.
func (e *Extractor) Extract(ctx context.Context, chatKey string) *Result {
	m := newMachine()
	result := &Result{ChatKey: chatKey}

	fail := func(err error) *Result {
		// Transition errors here would mean a broken table, which the
		// table's own tests rule out.
		_ = m.advance(StateFailed)
		result.Err = chatexport.NewChatError(chatKey, err)
		return result
	}

	// OPEN_CHAT. The fingerprint of whatever is currently open is taken
	// before clicking, so WAIT_RENDER can tell stale content apart from
	// the new conversation's.
	before := e.fingerprint()
	if err := e.openChat(ctx, chatKey); err != nil {
		return fail(err)
	}

	if err := m.advance(StateWaitRender); err != nil {
		return fail(err)
	}
	if err := e.waitRender(ctx, before); err != nil {
		return fail(err)
	}

	if err := m.advance(StateScrollTop); err != nil {
		return fail(err)
	}
	// Best-effort history load; failure only limits how much COLLECT can
	// see.
	e.scrollTop(ctx)

	if err := m.advance(StateCollect); err != nil {
		return fail(err)
	}
	e.collect(chatKey, result)

	if err := m.advance(StateDone); err != nil {
		return fail(err)
	}
	return result
}

// openChat locates the conversation item by key and triggers its open
// action. There is deliberately no URL-navigation fallback: navigating
// would destroy the running page context and abort the whole batch.
func (e *Extractor) openChat(ctx context.Context, chatKey string) error {
	items := dom.All(e.page, e.platform.Selector(platform.ChatListItem))
	for _, item := range items {
		link := dom.Attr(item, e.platform.Selector(platform.ChatLink), "href")
		name := dom.Text(item, e.platform.Selector(platform.ChatName))
		if !matchesKey(chatKey, link, name) {
			continue
		}
		if err := item.Click(ctx); err != nil {
			return fmt.Errorf("failed to open conversation: %w", err)
		}
		return nil
	}
	return fmt.Errorf("conversation %q: %w", chatKey, chatexport.ErrNotFound)
}

// matchesKey reports whether a list item belongs to the chat key. The item's
// own derived key must equal the requested one; substring matching would let
// a short key open a different thread whose id merely contains it.
func matchesKey(chatKey, link, name string) bool {
	return scan.DeriveKey(link, name) == chatKey
}

// waitRender polls until message content is present and its fingerprint
// differs from the previously open conversation's (or there was none).
// Matching fingerprints mean the pane still shows stale content from
// before the switch.
func (e *Extractor) waitRender(ctx context.Context, before string) error {
	deadline := time.Now().Add(e.RenderDeadline)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fp := e.fingerprint()
		if fp != "" && (before == "" || fp != before) {
			return nil
		}
		if time.Now().After(deadline) {
			return chatexport.ErrRenderTimeout
		}
		if err := sleep(ctx, e.Poll); err != nil {
			return err
		}
	}
}

// fingerprint returns the leading text of the first visible message, or ""
// when no message content is rendered.
func (e *Extractor) fingerprint() string {
	els := dom.All(e.page, e.platform.Selector(platform.MessageText))
	if len(els) == 0 {
		return ""
	}
	text := els[0].Text()
	if len(text) > fingerprintLen {
		text = text[:fingerprintLen]
	}
	return text
}

// scrollTop tries to load older history by scrolling the message pane to
// its top until the scrollable height stops growing, the try cap is hit,
// or the wall-clock budget runs out. Never fatal.
func (e *Extractor) scrollTop(ctx context.Context) {
	pane := e.platform.Selector(platform.MessagesPane)
	deadline := time.Now().Add(e.ScrollBudget)

	height := e.paneHeight(pane)
	for try := 0; try < e.ScrollTries; try++ {
		if ctx.Err() != nil || time.Now().After(deadline) {
			return
		}
		if err := e.page.ScrollToTop(ctx, pane.Primary); err != nil {
			if err := e.page.ScrollToTop(ctx, pane.Fallback); err != nil {
				return
			}
		}
		if sleep(ctx, e.Poll) != nil {
			return
		}
		grown := e.paneHeight(pane)
		if grown <= height {
			return
		}
		height = grown
	}
}

func (e *Extractor) paneHeight(pane platform.SelectorPair) int {
	if h, err := e.page.ScrollHeight(pane.Primary); err == nil && h > 0 {
		return h
	}
	h, err := e.page.ScrollHeight(pane.Fallback)
	if err != nil {
		return 0
	}
	return h
}

// collect resolves the conversation's display name and runs the extraction
// strategies in priority order, then attributes and truncates.
func (e *Extractor) collect(chatKey string, result *Result) {
	displayName := dom.Text(e.page, e.platform.Selector(platform.ChatHeader))
	if displayName == "" {
		displayName = scan.Deslugify(chatKey)
	}
	result.DisplayName = displayName

	candidates := e.runStrategies()
	result.Total = len(candidates)

	limit := e.settings.MessagesPerChat
	for _, c := range candidates {
		fromUser := IsSenderMatch(c.sender, e.settings.SenderName)

		msg := chatexport.ExtractedMessage{
			Platform:    e.platform.CanonicalName,
			MessageDate: c.timestamp,
			Text:        c.text,
			ChatKey:     chatKey,
		}
		if fromUser {
			msg.Sender = e.settings.SenderName
			msg.Receiver = displayName
		} else {
			msg.Sender = displayName
			msg.Receiver = e.settings.SenderName
		}
		result.All = append(result.All, msg)

		if fromUser {
			result.Collected++
			if len(result.Messages) < limit {
				result.Messages = append(result.Messages, msg)
			}
		}
	}
	result.Partial = result.Collected < limit
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
