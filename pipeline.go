package chatexport

import (
	"strings"
	"time"
)

// MaxTextLength is the hard cap on exported message text. Text longer than
// this is cut and terminated with an ellipsis.
const MaxTextLength = 500

// dateFormats is the fallback chain tried when parsing the raw date text a
// page renders next to a message. Sites disagree wildly here, so the filter
// tries each in order and fails open when none match.
var dateFormats = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"Jan 2, 2006",
	"Jan 2",
	"January 2, 2006",
	"02.01.2006",
	"01/02/2006",
	"3:04 PM",
	"15:04",
}

// TruncateText trims s and cuts it to MaxTextLength characters including a
// trailing "..." when it was longer. Inputs at or under the limit are
// returned trimmed and otherwise unchanged.
func TruncateText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= MaxTextLength {
		return s
	}
	return s[:MaxTextLength-3] + "..."
}

// parseMessageDate tries the fallback format chain against the raw date
// text. Bare time-of-day and month/day formats are anchored to the given
// reference year so range comparisons stay meaningful.
func parseMessageDate(raw string, ref time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		switch {
		case strings.Contains(layout, "2006"):
			// Full date, nothing to anchor.
		case strings.Contains(layout, "Jan"):
			// Month/day without a year: pin to the reference year.
			t = time.Date(ref.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		default:
			// Time-of-day only: treat as the reference day.
			t = time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
		}
		return t, true
	}
	return time.Time{}, false
}

// FilterByDate keeps messages whose parsed date falls within [from, to
// 23:59:59] inclusive. An empty from/to disables that bound. A message whose
// raw date text cannot be parsed is kept: filtering fails open, never
// closed.
func FilterByDate(messages []ExtractedMessage, from, to string) []ExtractedMessage {
	if from == "" && to == "" {
		return messages
	}

	var fromT, toT time.Time
	var haveFrom, haveTo bool
	if from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			fromT, haveFrom = t, true
		}
	}
	if to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			// Inclusive upper bound: end of day.
			toT = t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
			haveTo = true
		}
	}
	if !haveFrom && !haveTo {
		return messages
	}

	now := time.Now().UTC()
	kept := make([]ExtractedMessage, 0, len(messages))
	for _, m := range messages {
		t, ok := parseMessageDate(m.MessageDate, now)
		if !ok {
			kept = append(kept, m)
			continue
		}
		if haveFrom && t.Before(fromT) {
			continue
		}
		if haveTo && t.After(toT) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// MergeSeparator joins the texts of a merged conversation row.
const MergeSeparator = " | "

// MergeByConversation collapses messages into one row per chat key. Texts
// are joined with MergeSeparator and re-truncated; raw date strings are
// joined with "; ". Row order follows the first appearance of each chat key
// in the input.
func MergeByConversation(messages []ExtractedMessage) []ExtractedMessage {
	if len(messages) == 0 {
		return nil
	}

	order := make([]string, 0)
	byKey := make(map[string]*ExtractedMessage)
	texts := make(map[string][]string)
	dates := make(map[string][]string)

	for _, m := range messages {
		if _, seen := byKey[m.ChatKey]; !seen {
			order = append(order, m.ChatKey)
			first := m
			byKey[m.ChatKey] = &first
		}
		texts[m.ChatKey] = append(texts[m.ChatKey], m.Text)
		if m.MessageDate != "" {
			dates[m.ChatKey] = append(dates[m.ChatKey], m.MessageDate)
		}
	}

	merged := make([]ExtractedMessage, 0, len(order))
	for _, key := range order {
		row := *byKey[key]
		row.Text = TruncateText(strings.Join(texts[key], MergeSeparator))
		row.MessageDate = strings.Join(dates[key], "; ")
		merged = append(merged, row)
	}
	return merged
}

// Transform runs the full pipeline over extracted messages per the given
// settings: date filter, optional merge, optional anonymization of
// receivers, optional PII redaction of text. The input slice is never
// mutated.
func Transform(messages []ExtractedMessage, settings Settings, anon *Anonymizer) []ExtractedMessage {
	out := FilterByDate(messages, settings.DateFrom, settings.DateTo)

	if settings.RowMode == RowPerChat {
		out = MergeByConversation(out)
	} else {
		// Copy so later field rewrites never touch the caller's slice.
		out = append([]ExtractedMessage(nil), out...)
	}

	if settings.Anonymize && anon != nil {
		for i := range out {
			out[i].Receiver = anon.Token(out[i].Receiver)
		}
	}
	if settings.RedactPII {
		for i := range out {
			out[i].Text = RedactPII(out[i].Text)
		}
	}
	return out
}
