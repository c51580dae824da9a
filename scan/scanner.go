// Package scan enumerates the visible conversation list of a messaging
// surface, driving a scroll-to-load convergence loop so virtualized and
// lazily-loaded lists are read as completely as the page allows.
package scan

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pevans/chatexport"
	"github.com/pevans/chatexport/dom"
	"github.com/pevans/chatexport/platform"
)

const (
	// DefaultRounds caps the convergence loop.
	DefaultRounds = 40
	// DefaultStablePasses is how many consecutive unchanged counts end
	// the loop early.
	DefaultStablePasses = 3
	// DefaultPause gives lazily-loaded rows time to render after each
	// scroll.
	DefaultPause = 600 * time.Millisecond
)

// keyPattern pulls the thread identifier segment out of a conversation
// link path. Only the segment following a thread marker qualifies; leading
// section names like /inbox/ never do.
var keyPattern = regexp.MustCompile(`/(?:thread|t)/([^/?#]+)`)

// nonSlugPattern strips characters that don't belong in a synthesized key.
var nonSlugPattern = regexp.MustCompile(`[^a-z0-9_]+`)

// Scanner produces the current best-effort conversation list for one
// platform. It only reads the document, plus the scrolls needed to force
// lazy rows to load.
type Scanner struct {
	page     dom.Page
	platform *platform.Platform

	// Rounds, StablePasses, and Pause tune the convergence loop; zero
	// values take the defaults.
	Rounds       int
	StablePasses int
	Pause        time.Duration
}

// New creates a scanner for the given page and platform.
func New(page dom.Page, p *platform.Platform) *Scanner {
	return &Scanner{
		page:         page,
		platform:     p,
		Rounds:       DefaultRounds,
		StablePasses: DefaultStablePasses,
		Pause:        DefaultPause,
	}
}

// Scan converges the conversation list and parses it. The result replaces
// any previous scan wholesale; there is no incremental diffing. Returns
// ErrNotFound when the list container is absent.
func (s *Scanner) Scan(ctx context.Context) ([]chatexport.ConversationSummary, error) {
	if _, ok := dom.One(s.page, s.platform.Selector(platform.ChatList)); !ok {
		return nil, fmt.Errorf("conversation list: %w", chatexport.ErrNotFound)
	}

	if err := s.converge(ctx); err != nil {
		return nil, err
	}

	items := s.items()
	summaries := make([]chatexport.ConversationSummary, 0, len(items))
	for _, item := range items {
		summary, ok := s.parseItem(item)
		if !ok {
			// Rows without a display name are ads or malformed
			// filler, not errors.
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// items returns the currently matched conversation item elements.
func (s *Scanner) items() []dom.Element {
	return dom.All(s.page, s.platform.Selector(platform.ChatListItem))
}

// converge scrolls the list to its maximum offset until the item count
// stabilizes for StablePasses consecutive rounds or the round cap is hit.
// The count may oscillate; the cap guarantees termination regardless.
func (s *Scanner) converge(ctx context.Context) error {
	rounds := s.Rounds
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	stableNeeded := s.StablePasses
	if stableNeeded <= 0 {
		stableNeeded = DefaultStablePasses
	}

	listSelector := s.platform.Selector(platform.ChatList)
	lastCount := len(s.items())
	stable := 0

	for round := 0; round < rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.page.ScrollToBottom(ctx, listSelector.Primary); err != nil {
			// Retry against the fallback container before giving
			// up on this round.
			if err := s.page.ScrollToBottom(ctx, listSelector.Fallback); err != nil {
				return fmt.Errorf("failed to scroll conversation list: %w", err)
			}
		}
		if err := sleep(ctx, s.Pause); err != nil {
			return err
		}

		count := len(s.items())
		if count == lastCount {
			stable++
			if stable >= stableNeeded {
				return nil
			}
		} else {
			stable = 0
			lastCount = count
		}
	}
	return nil
}

// parseItem converts one list item into a summary. The second return is
// false for rows that yield no display name.
func (s *Scanner) parseItem(item dom.Element) (chatexport.ConversationSummary, bool) {
	name := dom.Text(item, s.platform.Selector(platform.ChatName))
	if name == "" {
		return chatexport.ConversationSummary{}, false
	}

	link := dom.Attr(item, s.platform.Selector(platform.ChatLink), "href")
	return chatexport.ConversationSummary{
		ChatKey:      DeriveKey(link, name),
		DisplayName:  name,
		LastPreview:  dom.Text(item, s.platform.Selector(platform.ChatPreview)),
		LastActivity: dom.Text(item, s.platform.Selector(platform.ChatTime)),
		ProfileURL:   link,
	}, true
}

// DeriveKey builds the stable conversation identity. A thread/inbox id
// segment from the link path wins; without a usable link the key is a
// normalized slug of the display name. Synthetic keys can collide when two
// conversations share a display name; that limitation is accepted rather
// than silently resolved.
func DeriveKey(link, displayName string) string {
	if link != "" {
		if m := keyPattern.FindStringSubmatch(link); m != nil {
			return m[1]
		}
	}
	return Slugify(displayName)
}

// Slugify lower-cases a display name and replaces whitespace runs with
// underscores.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "_")
	return nonSlugPattern.ReplaceAllString(slug, "")
}

// Deslugify turns a synthesized key back into a readable display name:
// underscores become spaces and each word is capitalized. Link-derived keys
// pass through this too when no header name is available, which is as good
// a guess as the document allows.
func Deslugify(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
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
