package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatUsers renders a user count as a table.
func (f *TableFormatter) FormatUsers(result UserCountResult) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Instance", "Users"})
	t.AppendRow(table.Row{result.BaseURL, result.Count})
	return t.Render(), nil
}

// FormatEvents renders a windowed event sum as a table.
func (f *TableFormatter) FormatEvents(result EventsResult) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Action", "Window Start", "Now", "Sum"})
	t.AppendRow(table.Row{
		result.Action.String(),
		formatMillis(result.WindowStart),
		formatMillis(result.Now),
		result.Sum,
	})
	t.AppendFooter(table.Row{
		"",
		"",
		fmt.Sprintf("%d/%d points in window", result.Included, result.Points),
		"",
	})
	return t.Render(), nil
}
