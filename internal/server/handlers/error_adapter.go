package handlers

import (
	"net/http"

	apperrors "github.com/authrelay/authrelay/internal/errors"
)

// ErrorResponder writes an error to the client.
type ErrorResponder func(http.ResponseWriter, *http.Request, error)

var defaultHTTPErrorResponder ErrorResponder = apperrors.RespondWithError

var httpErrorResponder = defaultHTTPErrorResponder

// SetHTTPErrorResponder lets the server package inject the centralized error handler.
func SetHTTPErrorResponder(responder ErrorResponder) {
	if responder == nil {
		httpErrorResponder = defaultHTTPErrorResponder
		return
	}
	httpErrorResponder = responder
}

// ResetHTTPErrorResponder restores the default responder (useful for tests).
func ResetHTTPErrorResponder() {
	httpErrorResponder = defaultHTTPErrorResponder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}
