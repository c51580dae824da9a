package chatexport

import (
	"errors"
	"fmt"
)

// Error taxonomy for a run. Conversation-scoped errors (ErrNotFound,
// ErrRenderTimeout) are recorded and the run continues; ErrChannelLost is
// fatal and aborts the run.
var (
	// ErrNotFound means a required element, list, or conversation could
	// not be located in the document.
	ErrNotFound = errors.New("not found")

	// ErrRenderTimeout means a conversation's messages never appeared
	// (or never replaced stale content) within the render deadline.
	ErrRenderTimeout = errors.New("render timeout")

	// ErrChannelLost means the page-side collaborator stopped responding.
	// Every subsequent item would fail identically, so the run stops.
	ErrChannelLost = errors.New("extraction channel lost")

	// ErrExportEmpty means there are no accumulated messages to encode.
	ErrExportEmpty = errors.New("no messages to export")
)

// ChatError ties an error to the conversation it occurred in.
type ChatError struct {
	ChatKey string
	Err     error
}

func (e *ChatError) Error() string {
	return fmt.Sprintf("chat %s: %v", e.ChatKey, e.Err)
}

func (e *ChatError) Unwrap() error {
	return e.Err
}

// NewChatError wraps err with the conversation key it belongs to.
func NewChatError(chatKey string, err error) *ChatError {
	return &ChatError{ChatKey: chatKey, Err: err}
}
