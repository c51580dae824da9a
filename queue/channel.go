package queue

import (
	"context"
	"fmt"

	"github.com/pevans/chatexport"
	"github.com/pevans/chatexport/dom"
	"github.com/pevans/chatexport/extract"
	"github.com/pevans/chatexport/platform"
	"github.com/pevans/chatexport/scan"
)

// ScanResult is the response to a scanInbox request.
type ScanResult struct {
	Chats    []chatexport.ConversationSummary `json:"chats"`
	Platform string                           `json:"platform"`
}

// Channel is the request/response boundary to the page-side collaborator.
// Both calls may fail with conversation-scoped errors; an error wrapping
// ErrChannelLost means the collaborator itself is unreachable and every
// further call would fail the same way.
type Channel interface {
	ScanInbox(ctx context.Context) (*ScanResult, error)
	ExtractChat(ctx context.Context, chatKey string, settings chatexport.Settings) (*extract.Result, error)
}

// LocalChannel serves the channel contract directly over a page, for runs
// where orchestrator and page live in the same process.
type LocalChannel struct {
	page     dom.Page
	registry *platform.Registry
}

// liveness is implemented by pages that can report whether their backing
// context is still usable, such as a browser session.
type liveness interface {
	Alive() bool
}

// classify maps errors that occurred on a dead page to ErrChannelLost, so
// the orchestrator aborts instead of failing every remaining item.
func (c *LocalChannel) classify(err error) error {
	if err == nil {
		return nil
	}
	if l, ok := c.page.(liveness); ok && !l.Alive() {
		return fmt.Errorf("%v: %w", err, chatexport.ErrChannelLost)
	}
	return err
}

// NewLocalChannel creates a channel over the given page.
func NewLocalChannel(page dom.Page, registry *platform.Registry) *LocalChannel {
	return &LocalChannel{page: page, registry: registry}
}

// resolve identifies the page's platform, or fails so the caller stays
// inert on unsupported pages.
func (c *LocalChannel) resolve() (*platform.Platform, error) {
	host, path := c.page.Location()
	p := c.registry.Resolve(host, path)
	if p == nil {
		return nil, fmt.Errorf("no supported platform at %s%s: %w", host, path, chatexport.ErrNotFound)
	}
	return p, nil
}

// ScanInbox implements Channel.
func (c *LocalChannel) ScanInbox(ctx context.Context) (*ScanResult, error) {
	p, err := c.resolve()
	if err != nil {
		return nil, err
	}
	chats, err := scan.New(c.page, p).Scan(ctx)
	if err != nil {
		return nil, c.classify(err)
	}
	return &ScanResult{Chats: chats, Platform: p.CanonicalName}, nil
}

// ExtractChat implements Channel.
func (c *LocalChannel) ExtractChat(ctx context.Context, chatKey string, settings chatexport.Settings) (*extract.Result, error) {
	p, err := c.resolve()
	if err != nil {
		return nil, err
	}
	result := extract.New(c.page, p, settings).Extract(ctx, chatKey)
	if result.Err != nil {
		return result, c.classify(result.Err)
	}
	return result, nil
}
