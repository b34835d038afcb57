package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/authrelay/authrelay/internal/authentik"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// UserCountResult is what the users command renders.
type UserCountResult struct {
	BaseURL string `json:"base_url"`
	Count   uint64 `json:"count"`
}

// EventsResult is what the events command renders.
type EventsResult struct {
	Action      authentik.Action `json:"action"`
	WindowStart time.Time        `json:"window_start"`
	Now         time.Time        `json:"now"`
	Points      int              `json:"points_received"`
	Included    int              `json:"points_included"`
	Sum         uint64           `json:"sum"`
}

// Formatter renders relay results.
type Formatter interface {
	FormatUsers(result UserCountResult) (string, error)
	FormatEvents(result EventsResult) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func formatMillis(t time.Time) string {
	return fmt.Sprintf("%d (%s)", t.UnixMilli(), t.UTC().Format(time.RFC3339))
}
