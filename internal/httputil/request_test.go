package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestPathParam(t *testing.T) {
	var got string
	var gotErr error

	r := chi.NewRouter()
	r.Get("/users/{id}/seller", func(w http.ResponseWriter, req *http.Request) {
		got, gotErr = PathParam(req, "id")
	})

	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "/users/ann%40example.com/seller", want: "ann@example.com"},
		{path: "/users/ann%2Bshop@example.com/seller", want: "ann+shop@example.com"},
		{path: "/users/my%20shop/seller", want: "my shop"},
		{path: "/users/puma/seller", want: "puma"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.NoError(t, gotErr)
			assert.Equal(t, tt.want, got)
		})
	}
}
