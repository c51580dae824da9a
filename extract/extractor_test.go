package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/chatexport"
	"github.com/pevans/chatexport/dom"
	"github.com/pevans/chatexport/platform"
	"github.com/pevans/chatexport/scan"
)

func testPlatform() *platform.Platform {
	return &platform.Platform{
		ID:            "test",
		CanonicalName: "Test",
		Hosts:         []string{"chat.test"},
		PathPrefix:    "/inbox",
		Selectors: map[platform.Role]platform.SelectorPair{
			platform.ChatList:      {Primary: "ul.chats"},
			platform.ChatListItem:  {Primary: "li.chat"},
			platform.ChatName:      {Primary: ".nm"},
			platform.ChatLink:      {Primary: "a.lnk"},
			platform.ChatHeader:    {Primary: ".hdr"},
			platform.MessagesPane:  {Primary: ".pane"},
			platform.MessageGroup:  {Primary: ".grp"},
			platform.GroupSender:   {Primary: ".gs"},
			platform.GroupTime:     {Primary: ".gt"},
			platform.MessageBubble: {Primary: ".bub"},
			platform.MessageItem:   {Primary: ".msg"},
			platform.ItemSender:    {Primary: ".is"},
			platform.ItemTime:      {Primary: ".it"},
			platform.MessageText:   {Primary: ".txt"},
		},
	}
}

const inboxList = `<ul class="chats">
<li class="chat"><a class="lnk" href="/inbox/thread/kate-1/"><span class="nm">Kate Kondrateva</span></a></li>
<li class="chat"><span class="nm">Bob Brown</span></li>
</ul>`

// convoHTML builds a whole-page document: the conversation list stays
// visible next to the open conversation, as it does on real surfaces.
func convoHTML(header, pane string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString(inboxList)
	if header != "" {
		fmt.Fprintf(&b, `<div class="hdr">%s</div>`, header)
	}
	fmt.Fprintf(&b, `<div class="pane">%s</div>`, pane)
	b.WriteString("</body></html>")
	return b.String()
}

// fakeChatPage is a live-page stand-in: clicking a conversation item swaps
// the rendered document, optionally a few queries later to simulate
// asynchronous rendering.
type fakeChatPage struct {
	t             *testing.T
	html          string
	conversations map[string]string

	// renderDelay delays the post-click swap by this many queries.
	renderDelay int
	pending     string
	delayLeft   int
}

func newFakeChatPage(t *testing.T) *fakeChatPage {
	return &fakeChatPage{
		t:             t,
		html:          "<html><body>" + inboxList + "</body></html>",
		conversations: map[string]string{},
	}
}

func (p *fakeChatPage) Find(selector string) []dom.Element {
	if p.pending != "" {
		if p.delayLeft <= 0 {
			p.html = p.pending
			p.pending = ""
		} else {
			p.delayLeft--
		}
	}
	snap, err := dom.ParseString(p.html, "chat.test", "/inbox")
	require.NoError(p.t, err)

	els := snap.Find(selector)
	wrapped := make([]dom.Element, len(els))
	for i, el := range els {
		wrapped[i] = &clickableElement{Element: el, page: p}
	}
	return wrapped
}

func (p *fakeChatPage) ScrollToBottom(ctx context.Context, selector string) error { return nil }

func (p *fakeChatPage) ScrollToTop(ctx context.Context, selector string) error { return nil }

func (p *fakeChatPage) ScrollHeight(selector string) (int, error) { return 0, nil }

func (p *fakeChatPage) Location() (string, string) { return "chat.test", "/inbox" }

func (p *fakeChatPage) open(html string) {
	if p.renderDelay > 0 {
		p.pending = html
		p.delayLeft = p.renderDelay
		return
	}
	p.html = html
}

// clickableElement routes Click back to the page, which swaps in the
// clicked conversation's document.
type clickableElement struct {
	dom.Element
	page *fakeChatPage
}

func (e *clickableElement) Click(ctx context.Context) error {
	href := ""
	if links := e.Element.Find("a.lnk"); len(links) > 0 {
		href, _ = links[0].Attr("href")
	}
	name := ""
	if names := e.Element.Find(".nm"); len(names) > 0 {
		name = names[0].Text()
	}
	if html, ok := e.page.conversations[scan.DeriveKey(href, name)]; ok {
		e.page.open(html)
		return nil
	}
	return fmt.Errorf("nothing to open for %q / %q", href, name)
}

func newExtractor(page *fakeChatPage, settings chatexport.Settings) *Extractor {
	e := New(page, testPlatform(), settings)
	e.Poll = time.Millisecond
	return e
}

const groupedPane = `
<div class="grp"><span class="gs">Alex</span><span class="gt">Jan 5</span>
<div class="bub"><span class="txt">thanks, talk soon</span></div>
<div class="bub"><span class="txt">see you tomorrow</span></div></div>
<div class="grp"><span class="gs">Kate Kondrateva</span><span class="gt">Jan 6</span>
<div class="bub"><span class="txt">bye!</span></div></div>`

// TestExtract_Grouped verifies the happy path over sender/time blocks
func TestExtract_Grouped(t *testing.T) {
	page := newFakeChatPage(t)
	page.conversations["kate-1"] = convoHTML("Kate Kondrateva", groupedPane)

	result := newExtractor(page, chatexport.Settings{SenderName: "Alex Smith"}).
		Extract(context.Background(), "kate-1")
	require.NoError(t, result.Err)

	assert.Equal(t, "kate-1", result.ChatKey)
	assert.Equal(t, "Kate Kondrateva", result.DisplayName)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Collected)
	assert.Len(t, result.All, 3)
	require.Len(t, result.Messages, 2)

	first := result.Messages[0]
	assert.Equal(t, "Test", first.Platform)
	assert.Equal(t, "Alex Smith", first.Sender)
	assert.Equal(t, "Kate Kondrateva", first.Receiver)
	assert.Equal(t, "Jan 5", first.MessageDate)
	assert.Equal(t, "thanks, talk soon", first.Text)

	// The counterpart's message shows up in All with flipped attribution.
	theirs := result.All[2]
	assert.Equal(t, "Kate Kondrateva", theirs.Sender)
	assert.Equal(t, "Alex Smith", theirs.Receiver)
	assert.Equal(t, "bye!", theirs.Text)

	assert.True(t, result.Partial, "2 collected is under the default per-chat limit")
}

// TestExtract_MessageLimit verifies the per-chat cap and the Partial flag
func TestExtract_MessageLimit(t *testing.T) {
	page := newFakeChatPage(t)
	page.conversations["kate-1"] = convoHTML("Kate Kondrateva", groupedPane)

	settings := chatexport.Settings{SenderName: "Alex Smith", MessagesPerChat: 1}
	result := newExtractor(page, settings).Extract(context.Background(), "kate-1")
	require.NoError(t, result.Err)

	assert.Len(t, result.Messages, 1, "cap applies to kept messages")
	assert.Equal(t, 2, result.Collected, "the count still reflects everything found")
	assert.False(t, result.Partial, "the limit was reached")
}

// TestExtract_FlatStrategy verifies fallback to per-message markup
func TestExtract_FlatStrategy(t *testing.T) {
	page := newFakeChatPage(t)
	page.conversations["kate-1"] = convoHTML("Kate Kondrateva", `
<li class="msg"><span class="is">Kate Kondrateva</span><span class="it">10:01</span><span class="txt">hello</span></li>
<li class="msg"><span class="is">Alex</span><span class="it">10:02</span><span class="txt">hi kate</span></li>`)

	result := newExtractor(page, chatexport.Settings{SenderName: "Alex Smith"}).
		Extract(context.Background(), "kate-1")
	require.NoError(t, result.Err)

	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "hi kate", result.Messages[0].Text)
	assert.Equal(t, "10:02", result.Messages[0].MessageDate)
}

// TestExtract_ProbeStrategy verifies the last-resort scan attributes
// unlabeled messages to the user
func TestExtract_ProbeStrategy(t *testing.T) {
	page := newFakeChatPage(t)
	page.conversations["kate-1"] = convoHTML("Kate Kondrateva",
		`<ul><li><span class="txt">an orphaned message</span></li></ul>`)

	result := newExtractor(page, chatexport.Settings{SenderName: "Alex Smith"}).
		Extract(context.Background(), "kate-1")
	require.NoError(t, result.Err)

	require.Len(t, result.Messages, 1)
	assert.Equal(t, "Alex Smith", result.Messages[0].Sender)
	assert.Equal(t, "an orphaned message", result.Messages[0].Text)
}

// TestMatchesKey verifies a key only claims its own thread, never one
// whose id merely contains it
func TestMatchesKey(t *testing.T) {
	assert.True(t, matchesKey("123", "/messages/t/123", "Someone Else"))
	assert.False(t, matchesKey("12", "/messages/t/123", "Someone Else"))
	assert.True(t, matchesKey("kate-1", "/inbox/thread/kate-1/", "Kate Kondrateva"))
	assert.False(t, matchesKey("kate-1", "/inbox/thread/kate-12/", "Kate Kondrateva"))
	assert.True(t, matchesKey("bob_brown", "", "Bob Brown"))
}

// TestExtract_OpensExactThread verifies a short key skips an earlier item
// whose thread id contains it
func TestExtract_OpensExactThread(t *testing.T) {
	page := newFakeChatPage(t)
	list := `<ul class="chats">
<li class="chat"><a class="lnk" href="/inbox/thread/key-12/"><span class="nm">Dana</span></a></li>
<li class="chat"><a class="lnk" href="/inbox/thread/key-1/"><span class="nm">Kate Kondrateva</span></a></li>
</ul>`
	page.html = "<html><body>" + list + "</body></html>"
	page.conversations["key-12"] = "<html><body>" + list +
		`<div class="hdr">Dana</div><div class="pane"><div class="grp"><span class="gs">Dana</span><span class="gt">Jan 4</span><div class="bub"><span class="txt">wrong thread</span></div></div></div></body></html>`
	page.conversations["key-1"] = "<html><body>" + list +
		`<div class="hdr">Kate Kondrateva</div><div class="pane">` + groupedPane + `</div></body></html>`

	result := newExtractor(page, chatexport.Settings{SenderName: "Alex Smith"}).
		Extract(context.Background(), "key-1")
	require.NoError(t, result.Err)

	assert.Equal(t, "Kate Kondrateva", result.DisplayName)
	require.NotEmpty(t, result.All)
	assert.NotEqual(t, "wrong thread", result.All[0].Text)
}

// TestExtract_NotFound verifies an unknown key fails with a per-chat error
// wrapping ErrNotFound
func TestExtract_NotFound(t *testing.T) {
	page := newFakeChatPage(t)

	result := newExtractor(page, chatexport.Settings{SenderName: "Alex Smith"}).
		Extract(context.Background(), "nobody")

	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, chatexport.ErrNotFound)

	var chatErr *chatexport.ChatError
	require.True(t, errors.As(result.Err, &chatErr))
	assert.Equal(t, "nobody", chatErr.ChatKey)
}

// TestExtract_RenderTimeout verifies a conversation that never shows
// message content
func TestExtract_RenderTimeout(t *testing.T) {
	page := newFakeChatPage(t)
	page.conversations["kate-1"] = convoHTML("Kate Kondrateva", "")

	e := newExtractor(page, chatexport.Settings{SenderName: "Alex Smith"})
	e.RenderDeadline = 20 * time.Millisecond
	result := e.Extract(context.Background(), "kate-1")

	assert.ErrorIs(t, result.Err, chatexport.ErrRenderTimeout)
}

// TestExtract_StaleContent verifies the fingerprint guard: if the pane
// still shows the previous conversation, the switch is not trusted
func TestExtract_StaleContent(t *testing.T) {
	page := newFakeChatPage(t)
	kate := convoHTML("Kate Kondrateva", groupedPane)
	page.conversations["kate-1"] = kate
	// Opening Bob leaves Kate's messages on screen.
	page.conversations["bob_brown"] = kate

	e := newExtractor(page, chatexport.Settings{SenderName: "Alex Smith"})
	e.RenderDeadline = 20 * time.Millisecond

	require.NoError(t, e.Extract(context.Background(), "kate-1").Err)

	result := e.Extract(context.Background(), "bob_brown")
	assert.ErrorIs(t, result.Err, chatexport.ErrRenderTimeout)
}

// TestExtract_DelayedRender verifies polling outlasts slow rendering
func TestExtract_DelayedRender(t *testing.T) {
	page := newFakeChatPage(t)
	page.renderDelay = 3
	page.conversations["kate-1"] = convoHTML("Kate Kondrateva", groupedPane)

	result := newExtractor(page, chatexport.Settings{SenderName: "Alex Smith"}).
		Extract(context.Background(), "kate-1")

	require.NoError(t, result.Err)
	assert.Equal(t, 3, result.Total)
}

// TestExtract_HeaderFallback verifies the display name is reconstructed
// from the key when no header is rendered
func TestExtract_HeaderFallback(t *testing.T) {
	page := newFakeChatPage(t)
	page.conversations["bob_brown"] = convoHTML("",
		`<div class="grp"><span class="gs">Bob Brown</span><span class="gt">Jan 7</span>
<div class="bub"><span class="txt">hey</span></div></div>`)

	result := newExtractor(page, chatexport.Settings{SenderName: "Alex Smith"}).
		Extract(context.Background(), "bob_brown")
	require.NoError(t, result.Err)

	assert.Equal(t, "Bob Brown", result.DisplayName)
	assert.Equal(t, "Bob Brown", result.All[0].Sender)
}
