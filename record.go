package chatexport

import "time"

// RowMode controls export granularity: one row per message, or one merged
// row per conversation.
type RowMode string

const (
	RowPerMessage RowMode = "per-message"
	RowPerChat    RowMode = "per-chat"
)

// ConversationSummary is one entry of a scanned inbox. Produced only by the
// scanner; a fresh scan replaces the previous list wholesale.
type ConversationSummary struct {
	// ChatKey is the stable identity of the conversation. It is derived
	// from a path fragment of the conversation's link when one exists,
	// otherwise synthesized from the normalized display name.
	ChatKey      string `json:"chat_key"`
	DisplayName  string `json:"display_name"`
	LastPreview  string `json:"last_preview,omitempty"`
	LastActivity string `json:"last_activity,omitempty"`
	ProfileURL   string `json:"profile_url,omitempty"`
}

// ExtractedMessage is a single collected message. Once produced it is only
// read or transformed, never mutated in place.
type ExtractedMessage struct {
	Platform    string `json:"platform"`
	MessageDate string `json:"message_date"` // raw date text as rendered by the page
	Sender      string `json:"sender"`
	Receiver    string `json:"receiver"`
	Text        string `json:"text"`
	ChatKey     string `json:"chat_key"`
}

// Settings holds the user-configurable knobs for one run. Read-only input to
// extraction and the data pipeline.
type Settings struct {
	SenderName      string  `json:"sender_name" mapstructure:"sender_name"`
	MessagesPerChat int     `json:"messages_per_chat" mapstructure:"messages_per_chat"`
	RowMode         RowMode `json:"row_mode" mapstructure:"row_mode"`
	DateFrom        string  `json:"date_from,omitempty" mapstructure:"date_from"` // YYYY-MM-DD
	DateTo          string  `json:"date_to,omitempty" mapstructure:"date_to"`     // YYYY-MM-DD
	RedactPII       bool    `json:"redact_pii" mapstructure:"redact_pii"`
	Anonymize       bool    `json:"anonymize" mapstructure:"anonymize"`
}

// DefaultMessagesPerChat is the number of user-authored messages collected
// per conversation when the setting is unset.
const DefaultMessagesPerChat = 8

// Normalize fills in defaults for zero-valued settings.
func (s Settings) Normalize() Settings {
	if s.MessagesPerChat <= 0 {
		s.MessagesPerChat = DefaultMessagesPerChat
	}
	if s.RowMode == "" {
		s.RowMode = RowPerMessage
	}
	return s
}

// RunStatus describes where a queue run currently stands.
type RunStatus string

const (
	StatusProcessing RunStatus = "processing"
	StatusDone       RunStatus = "done"
	StatusCancelled  RunStatus = "cancelled"
)

// Failure records one conversation-scoped extraction failure.
type Failure struct {
	ChatKey string `json:"chat_key"`
	Reason  string `json:"reason"`
}

// Progress is the snapshot emitted after every queue item and once at the
// end of a run. Consumers may be absent; delivery is fire-and-forget.
type Progress struct {
	Status       RunStatus `json:"status"`
	Current      string    `json:"current"` // chat key of the item just handled
	Processed    int       `json:"processed"`
	Total        int       `json:"total"`
	Failures     []Failure `json:"failures"`
	MessageCount int       `json:"message_count"`
}

// ExportTime is the timestamp format used in export filenames.
const ExportTime = "2006-01-02"

// ExportFilename builds the export file name: a date stamp plus an
// "anonymized" marker when applicable.
func ExportFilename(t time.Time, anonymized bool, ext string) string {
	name := "chatexport_" + t.Format(ExportTime)
	if anonymized {
		name += "_anonymized"
	}
	return name + "." + ext
}
