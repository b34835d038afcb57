package authentik

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an upstream failure.
type ErrorKind string

const (
	// KindUnreachable covers transport failures and timeouts.
	KindUnreachable ErrorKind = "unreachable"
	// KindStatus is a non-2xx response from authentik.
	KindStatus ErrorKind = "status"
	// KindMalformed is a body that does not match the expected shape.
	KindMalformed ErrorKind = "malformed"
)

// UpstreamError describes a failed call to the authentik API.
type UpstreamError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("authentik %s returned status %d", e.Endpoint, e.StatusCode)
	case KindMalformed:
		return fmt.Sprintf("authentik %s returned a malformed body: %v", e.Endpoint, e.Err)
	default:
		if e.Timeout {
			return fmt.Sprintf("authentik %s timed out: %v", e.Endpoint, e.Err)
		}
		return fmt.Sprintf("authentik %s unreachable: %v", e.Endpoint, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AsUpstreamError extracts an *UpstreamError from err's chain.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr, true
	}
	return nil, false
}

func malformed(endpoint string, err error) *UpstreamError {
	return &UpstreamError{Kind: KindMalformed, Endpoint: endpoint, Err: err}
}
