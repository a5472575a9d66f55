package provider

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// ClassifyStatus maps a generation failure to the HTTP status the chat
// handler reports. Structured SDK errors are preferred; free-form error text
// is only inspected as a fallback, since substring matching is fragile.
func ClassifyStatus(err error) int {
	if IsConfigError(err) {
		return http.StatusBadRequest
	}

	if status, ok := vendorStatus(err); ok {
		return statusBucket(status)
	}

	return textBucket(err.Error())
}

func vendorStatus(err error) (int, bool) {
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode, true
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode, true
	}

	var ollamaErr api.StatusError
	if errors.As(err, &ollamaErr) {
		return ollamaErr.StatusCode, true
	}

	return 0, false
}

func statusBucket(status int) int {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return http.StatusUnauthorized
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var (
	authMarkers       = []string{"api key", "api_key", "authentication", "unauthorized", "auth"}
	validationMarkers = []string{"invalid", "malformed", "required", "missing", "must be"}
)

func textBucket(message string) int {
	lower := strings.ToLower(message)

	for _, marker := range authMarkers {
		if strings.Contains(lower, marker) {
			return http.StatusUnauthorized
		}
	}
	for _, marker := range validationMarkers {
		if strings.Contains(lower, marker) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}
