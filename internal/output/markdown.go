package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatUsers renders a user count as markdown.
func (f *MarkdownFormatter) FormatUsers(result UserCountResult) (string, error) {
	var b strings.Builder
	b.WriteString("| Instance | Users |\n")
	b.WriteString("| --- | --- |\n")
	fmt.Fprintf(&b, "| %s | %d |\n", escapeCell(result.BaseURL), result.Count)
	return b.String(), nil
}

// FormatEvents renders a windowed event sum as markdown.
func (f *MarkdownFormatter) FormatEvents(result EventsResult) (string, error) {
	var b strings.Builder
	b.WriteString("| Action | Window Start | Now | Points | Sum |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	fmt.Fprintf(&b, "| %s | %s | %s | %d/%d | %d |\n",
		result.Action.String(),
		formatMillis(result.WindowStart),
		formatMillis(result.Now),
		result.Included, result.Points,
		result.Sum)
	return b.String(), nil
}

func escapeCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
