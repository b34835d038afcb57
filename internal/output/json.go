package output

import (
	"encoding/json"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatUsers renders a user count as JSON.
func (f *JSONFormatter) FormatUsers(result UserCountResult) (string, error) {
	return f.marshal(result)
}

// FormatEvents renders a windowed event sum as JSON.
func (f *JSONFormatter) FormatEvents(result EventsResult) (string, error) {
	return f.marshal(result)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
