// Package provider resolves a client-supplied (provider, credentials, model,
// extra configuration) tuple into a ready-to-invoke model handle. Each
// provider's construction quirks live in one dispatch case of Resolve; the
// rest of the server never touches vendor SDKs directly.
package provider

import (
	"context"
	"errors"
	"fmt"

	"chatrelay/internal/chat"
)

// Request is the tuple the resolver consumes. Credentials arrive fresh on
// every call and are never retained past it.
type Request struct {
	Provider    string
	APIKey      string
	Model       string
	ExtraConfig map[string]string
}

// StreamOptions carries the per-call generation options a handle accepts.
type StreamOptions struct {
	Tools           []chat.Tool
	ReasoningEffort string
	MaxTokens       int
	MaxToolRounds   int
}

// Handle is a resolved, provider-specific callable. Handles are constructed
// fresh per request and hold no shared state; Stream begins a generation and
// Verify performs one minimal completion to prove the credentials work.
type Handle interface {
	Stream(ctx context.Context, messages []chat.Message, opts StreamOptions) (chat.Stream, error)
	Verify(ctx context.Context) error
}

// ConfigError reports an unusable provider selection: unknown provider id,
// missing required extra field, or conflicting credential mode. The message
// is end-user-readable and names the offending field.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is a resolver configuration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
