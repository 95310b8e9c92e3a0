package httputil

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// PathParam returns the percent-decoded value of a chi route parameter.
// chi matches on RawPath when the client escaped the path, so the raw param
// may still hold sequences like %40.
func PathParam(r *http.Request, key string) (string, error) {
	return url.PathUnescape(chi.URLParam(r, key))
}
