package chatexport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// utf8BOM is prepended to exports so spreadsheet applications pick the
// right encoding.
const utf8BOM = "\uFEFF"

// exportHeader is the fixed column order of every export.
var exportHeader = []string{"Platform", "Message Date", "Sender", "Receiver", "Message Text"}

// BuildCSV encodes messages as UTF-8 CSV with a leading BOM. Fields
// containing a comma, quote, or line break are quoted with embedded quotes
// doubled, per the standard convention. Message text is truncated to
// MaxTextLength. Returns ErrExportEmpty when there is nothing to encode.
func BuildCSV(messages []ExtractedMessage) (string, error) {
	if len(messages) == 0 {
		return "", ErrExportEmpty
	}

	var buf bytes.Buffer
	buf.WriteString(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	for _, m := range messages {
		row := []string{m.Platform, m.MessageDate, m.Sender, m.Receiver, TruncateText(m.Text)}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to encode CSV: %w", err)
	}
	return buf.String(), nil
}

// flattenField strips the whitespace that would break a TSV row: tabs,
// newlines, and carriage returns become single spaces.
func flattenField(s string) string {
	s = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(s)
	return strings.TrimSpace(s)
}

// BuildTSV encodes messages as UTF-8 TSV with a leading BOM. There is no
// quoting; literal tabs and line breaks inside fields are flattened to
// spaces instead. Returns ErrExportEmpty when there is nothing to encode.
func BuildTSV(messages []ExtractedMessage) (string, error) {
	if len(messages) == 0 {
		return "", ErrExportEmpty
	}

	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	buf.WriteString(strings.Join(exportHeader, "\t"))
	buf.WriteString("\n")

	for _, m := range messages {
		row := []string{
			flattenField(m.Platform),
			flattenField(m.MessageDate),
			flattenField(m.Sender),
			flattenField(m.Receiver),
			flattenField(TruncateText(m.Text)),
		}
		buf.WriteString(strings.Join(row, "\t"))
		buf.WriteString("\n")
	}
	return buf.String(), nil
}
