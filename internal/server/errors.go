package server

import (
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-scorecard/internal/registry"
	"github.com/sells-group/brand-scorecard/internal/store"
)

// httpStatus maps an error to the status code returned to clients.
func httpStatus(err error) int {
	switch {
	case eris.Is(err, registry.ErrUnknown), eris.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case eris.Is(err, registry.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorText is the client-facing message. Internal failures keep their
// detail out of the response.
func errorText(err error, status int) string {
	if status == http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}
