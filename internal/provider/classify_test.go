package provider

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ollama/ollama/api"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "config error",
			err:  &ConfigError{Message: "unsupported provider"},
			want: http.StatusBadRequest,
		},
		{
			name: "wrapped config error",
			err:  fmt.Errorf("resolve: %w", &ConfigError{Message: "missing field"}),
			want: http.StatusBadRequest,
		},
		{
			name: "vendor invalid api key text",
			err:  errors.New("invalid api key"),
			want: http.StatusUnauthorized,
		},
		{
			name: "authentication text",
			err:  errors.New("authentication failed for this account"),
			want: http.StatusUnauthorized,
		},
		{
			name: "validation text",
			err:  errors.New("field temperature is malformed"),
			want: http.StatusBadRequest,
		},
		{
			name: "required field text",
			err:  errors.New("max_tokens: field required"),
			want: http.StatusBadRequest,
		},
		{
			name: "opaque transport failure",
			err:  errors.New("connection reset by peer"),
			want: http.StatusInternalServerError,
		},
		{
			name: "ollama structured unauthorized",
			err:  api.StatusError{StatusCode: http.StatusUnauthorized, ErrorMessage: "nope"},
			want: http.StatusUnauthorized,
		},
		{
			name: "ollama structured not found",
			err:  api.StatusError{StatusCode: http.StatusNotFound, ErrorMessage: "model missing"},
			want: http.StatusBadRequest,
		},
		{
			name: "ollama structured server error",
			err:  api.StatusError{StatusCode: http.StatusBadGateway, ErrorMessage: "upstream"},
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStatus(tt.err); got != tt.want {
				t.Fatalf("ClassifyStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
