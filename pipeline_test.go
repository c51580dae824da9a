package chatexport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTruncateText_Long verifies the exact-length cut with ellipsis
func TestTruncateText_Long(t *testing.T) {
	long := strings.Repeat("a", 600)

	got := TruncateText(long)

	assert.Len(t, got, 500, "should be exactly 500 characters including the ellipsis")
	assert.True(t, strings.HasSuffix(got, "..."), "should end with an ellipsis")
}

// TestTruncateText_Short verifies short input passes through trimmed
func TestTruncateText_Short(t *testing.T) {
	assert.Equal(t, "hello", TruncateText("  hello  "))
	assert.Equal(t, "", TruncateText(""))
}

// TestTruncateText_Boundary verifies input at exactly the limit is untouched
func TestTruncateText_Boundary(t *testing.T) {
	exact := strings.Repeat("b", 500)
	assert.Equal(t, exact, TruncateText(exact))
}

// TestFilterByDate_NoBounds verifies everything passes with no range set
func TestFilterByDate_NoBounds(t *testing.T) {
	messages := []ExtractedMessage{
		{Text: "one", MessageDate: "2024-01-15"},
		{Text: "two", MessageDate: "gibberish"},
	}

	kept := FilterByDate(messages, "", "")

	assert.Len(t, kept, 2)
}

// TestFilterByDate_Range verifies the inclusive window
func TestFilterByDate_Range(t *testing.T) {
	messages := []ExtractedMessage{
		{Text: "before", MessageDate: "2023-12-31"},
		{Text: "start", MessageDate: "2024-01-01"},
		{Text: "inside", MessageDate: "2024-01-15"},
		{Text: "end", MessageDate: "2024-01-31"},
		{Text: "after", MessageDate: "2024-02-01"},
	}

	kept := FilterByDate(messages, "2024-01-01", "2024-01-31")

	require.Len(t, kept, 3)
	assert.Equal(t, "start", kept[0].Text)
	assert.Equal(t, "inside", kept[1].Text)
	assert.Equal(t, "end", kept[2].Text)
}

// TestFilterByDate_FailOpen verifies unparseable dates are kept, not dropped
func TestFilterByDate_FailOpen(t *testing.T) {
	messages := []ExtractedMessage{
		{Text: "unparseable", MessageDate: "a while ago"},
		{Text: "empty", MessageDate: ""},
		{Text: "outside", MessageDate: "2020-01-01"},
	}

	kept := FilterByDate(messages, "2024-01-01", "2024-12-31")

	require.Len(t, kept, 2)
	assert.Equal(t, "unparseable", kept[0].Text)
	assert.Equal(t, "empty", kept[1].Text)
}

// TestFilterByDate_EndOfDay verifies the upper bound covers the whole day
func TestFilterByDate_EndOfDay(t *testing.T) {
	messages := []ExtractedMessage{
		{Text: "late", MessageDate: "2024-01-31T23:30:00"},
	}

	kept := FilterByDate(messages, "", "2024-01-31")

	assert.Len(t, kept, 1, "23:30 on the end date is still inside the window")
}

// TestMergeByConversation verifies grouping and text joining
func TestMergeByConversation(t *testing.T) {
	messages := []ExtractedMessage{
		{ChatKey: "alice", Text: "hello", MessageDate: "Jan 1", Platform: "LinkedIn", Sender: "Me", Receiver: "Alice"},
		{ChatKey: "bob", Text: "hey", MessageDate: "Jan 2", Platform: "LinkedIn"},
		{ChatKey: "alice", Text: "are you there?", MessageDate: "Jan 3"},
	}

	merged := MergeByConversation(messages)

	require.Len(t, merged, 2)
	assert.Equal(t, "alice", merged[0].ChatKey)
	assert.Contains(t, merged[0].Text, "hello")
	assert.Contains(t, merged[0].Text, "are you there?")
	assert.Contains(t, merged[0].Text, MergeSeparator)
	assert.Equal(t, "Jan 1; Jan 3", merged[0].MessageDate)
	assert.Equal(t, "Me", merged[0].Sender, "merged row keeps the first message's parties")
	assert.Equal(t, "bob", merged[1].ChatKey)
}

// TestMergeByConversation_Retruncates verifies the combined text is capped
func TestMergeByConversation_Retruncates(t *testing.T) {
	messages := []ExtractedMessage{
		{ChatKey: "k", Text: strings.Repeat("x", 400)},
		{ChatKey: "k", Text: strings.Repeat("y", 400)},
	}

	merged := MergeByConversation(messages)

	require.Len(t, merged, 1)
	assert.Len(t, merged[0].Text, 500)
	assert.True(t, strings.HasSuffix(merged[0].Text, "..."))
}

// TestMergeByConversation_Empty verifies nil in, nil out
func TestMergeByConversation_Empty(t *testing.T) {
	assert.Nil(t, MergeByConversation(nil))
}

// TestTransform_DoesNotMutateInput verifies the pipeline copies before
// rewriting fields
func TestTransform_DoesNotMutateInput(t *testing.T) {
	messages := []ExtractedMessage{
		{ChatKey: "k", Text: "write to me at test@example.com", Receiver: "Alice"},
	}

	settings := Settings{RedactPII: true}.Normalize()
	out := Transform(messages, settings, nil)

	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "[EMAIL]")
	assert.Contains(t, messages[0].Text, "test@example.com", "input must stay untouched")
}
