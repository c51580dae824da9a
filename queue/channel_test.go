package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/chatexport"
	"github.com/pevans/chatexport/dom"
	"github.com/pevans/chatexport/platform"
)

// deadPage is a page whose backing context has gone away: every query
// comes back empty and liveness reports false.
type deadPage struct {
	host string
	path string
}

func (p *deadPage) Find(selector string) []dom.Element { return nil }

func (p *deadPage) ScrollToBottom(ctx context.Context, selector string) error { return nil }

func (p *deadPage) ScrollToTop(ctx context.Context, selector string) error { return nil }

func (p *deadPage) ScrollHeight(selector string) (int, error) { return 0, nil }

func (p *deadPage) Location() (string, string) { return p.host, p.path }

func (p *deadPage) Alive() bool { return false }

// TestLocalChannel_UnsupportedPage verifies nothing runs without a
// resolvable platform
func TestLocalChannel_UnsupportedPage(t *testing.T) {
	page := &deadPage{host: "example.com", path: "/"}
	channel := NewLocalChannel(page, platform.NewRegistry())

	_, err := channel.ScanInbox(context.Background())
	assert.ErrorIs(t, err, chatexport.ErrNotFound)

	_, err = channel.ExtractChat(context.Background(), "kate-1", chatexport.Settings{})
	assert.ErrorIs(t, err, chatexport.ErrNotFound)
}

// TestLocalChannel_DeadPage verifies failures on a dead page surface as a
// channel loss
func TestLocalChannel_DeadPage(t *testing.T) {
	page := &deadPage{host: "www.linkedin.com", path: "/messaging/"}
	channel := NewLocalChannel(page, platform.NewRegistry())

	_, err := channel.ScanInbox(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, chatexport.ErrChannelLost)

	_, err = channel.ExtractChat(context.Background(), "kate-1", chatexport.Settings{})
	require.Error(t, err)
	assert.ErrorIs(t, err, chatexport.ErrChannelLost)
}
