package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatrelay/internal/catalog"
	"chatrelay/internal/chat"
	"chatrelay/internal/config"
	"chatrelay/internal/provider"
	"chatrelay/internal/search"
)

// fakeHandle scripts a model handle for handler tests.
type fakeHandle struct {
	events    []chat.Event
	streamErr error
	midErr    error
	verifyErr error

	gotMessages []chat.Message
	gotOpts     provider.StreamOptions
}

func (h *fakeHandle) Stream(ctx context.Context, messages []chat.Message, opts provider.StreamOptions) (chat.Stream, error) {
	h.gotMessages = messages
	h.gotOpts = opts
	if h.streamErr != nil {
		return nil, h.streamErr
	}

	pipe := chat.NewPipe(nil)
	go func() {
		for _, ev := range h.events {
			if err := pipe.Send(ctx, ev); err != nil {
				pipe.CloseSend(err)
				return
			}
		}
		pipe.CloseSend(h.midErr)
	}()
	return pipe, nil
}

func (h *fakeHandle) Verify(ctx context.Context) error {
	return h.verifyErr
}

type fakeResolver struct {
	handle  *fakeHandle
	err     error
	gotReqs []provider.Request
}

func (r *fakeResolver) resolve(ctx context.Context, req provider.Request) (provider.Handle, error) {
	r.gotReqs = append(r.gotReqs, req)
	if r.err != nil {
		return nil, r.err
	}
	return r.handle, nil
}

func newTestServer(t *testing.T, resolver *fakeResolver) *Server {
	t.Helper()
	srv, err := newServer(config.Default(), resolver.resolve, search.NewClient("", "", nil))
	if err != nil {
		t.Fatalf("newServer failed: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.app.ServeHTTP(rr, req)
	return rr
}

func decodeErrorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response %q is not an error body: %v", rr.Body.String(), err)
	}
	return body.Error
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeResolver{handle: &fakeHandle{}})
	rr := doJSON(t, srv, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestProvidersListsCatalogue(t *testing.T) {
	srv := newTestServer(t, &fakeResolver{handle: &fakeHandle{}})
	rr := doJSON(t, srv, http.MethodGet, "/providers", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp providersResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Default != catalog.DefaultID {
		t.Errorf("default = %q, want %q", resp.Default, catalog.DefaultID)
	}
	if len(resp.Providers) != len(catalog.All()) {
		t.Errorf("providers = %d, want %d", len(resp.Providers), len(catalog.All()))
	}
}

func TestChatInvalidJSONBody(t *testing.T) {
	srv := newTestServer(t, &fakeResolver{handle: &fakeHandle{}})
	rr := doJSON(t, srv, http.MethodPost, "/chat", `{"messages": [`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if got := decodeErrorBody(t, rr); got != "Invalid JSON body." {
		t.Fatalf("error = %q, want %q", got, "Invalid JSON body.")
	}
}

func TestChatRequiresMessages(t *testing.T) {
	srv := newTestServer(t, &fakeResolver{handle: &fakeHandle{}})
	rr := doJSON(t, srv, http.MethodPost, "/chat", `{"provider":"openai","apiKey":"k","model":"gpt-4o"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestChatRequiresAPIKey(t *testing.T) {
	srv := newTestServer(t, &fakeResolver{handle: &fakeHandle{}})
	body := `{"messages":[{"role":"user","content":"hi"}],"provider":"openai","apiKey":"","model":"gpt-4o"}`
	rr := doJSON(t, srv, http.MethodPost, "/chat", body)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if got := decodeErrorBody(t, rr); got != "API key is required." {
		t.Fatalf("error = %q, want %q", got, "API key is required.")
	}
}

func TestChatResolverFailureIsBadRequest(t *testing.T) {
	resolver := &fakeResolver{err: &provider.ConfigError{Message: "Azure OpenAI requires the resource name (extraConfig.resourceName)"}}
	srv := newTestServer(t, resolver)
	body := `{"messages":[{"role":"user","content":"hi"}],"provider":"azure","apiKey":"k","model":"gpt-4o"}`
	rr := doJSON(t, srv, http.MethodPost, "/chat", body)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if got := decodeErrorBody(t, rr); !strings.Contains(got, "resource name") {
		t.Fatalf("error = %q, want resolver message", got)
	}
}

func TestChatAuthErrorIsUnauthorized(t *testing.T) {
	resolver := &fakeResolver{handle: &fakeHandle{streamErr: errors.New("invalid api key")}}
	srv := newTestServer(t, resolver)
	body := `{"messages":[{"role":"user","content":"hi"}],"provider":"openai","apiKey":"bad","model":"gpt-4o"}`
	rr := doJSON(t, srv, http.MethodPost, "/chat", body)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if got := decodeErrorBody(t, rr); got != "invalid api key" {
		t.Fatalf("error = %q, want vendor text verbatim", got)
	}
}

// Real handles report call-setup rejections through the stream, not as a
// synchronous Stream error. The status line must stay uncommitted until the
// first event so those rejections still get a classified status code.
func TestChatSetupRejectionThroughStreamKeepsStatusCode(t *testing.T) {
	resolver := &fakeResolver{handle: &fakeHandle{midErr: errors.New("invalid api key")}}
	srv := newTestServer(t, resolver)
	body := `{"messages":[{"role":"user","content":"hi"}],"provider":"openai","apiKey":"bad","model":"gpt-4o"}`
	rr := doJSON(t, srv, http.MethodPost, "/chat", body)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401, body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q, want a JSON error, not a stream", ct)
	}
	if got := decodeErrorBody(t, rr); got != "invalid api key" {
		t.Fatalf("error = %q, want vendor text verbatim", got)
	}
	if strings.Contains(rr.Body.String(), "message_start") {
		t.Fatalf("stream events leaked into an error response: %s", rr.Body.String())
	}
}

func TestChatUnknownFailureIsInternalError(t *testing.T) {
	resolver := &fakeResolver{handle: &fakeHandle{streamErr: errors.New("connection reset by peer")}}
	srv := newTestServer(t, resolver)
	body := `{"messages":[{"role":"user","content":"hi"}],"provider":"openai","apiKey":"k","model":"gpt-4o"}`
	rr := doJSON(t, srv, http.MethodPost, "/chat", body)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestChatStreamsEventsInOrder(t *testing.T) {
	handle := &fakeHandle{events: []chat.Event{
		{Type: chat.EventMessageStart, Role: chat.RoleAssistant},
		{Type: chat.EventTextDelta, Text: "Hello"},
		{Type: chat.EventTextDelta, Text: ", world"},
		{Type: chat.EventFinish},
	}}
	srv := newTestServer(t, &fakeResolver{handle: handle})
	body := `{"messages":[{"role":"user","content":"hi"}],"provider":"openai","apiKey":"k","model":"gpt-4o"}`
	rr := doJSON(t, srv, http.MethodPost, "/chat", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q, want text/event-stream", ct)
	}

	out := rr.Body.String()
	wantOrder := []string{"event: message_start", "event: text_delta", "event: text_delta", "event: finish"}
	offset := 0
	for _, want := range wantOrder {
		idx := strings.Index(out[offset:], want)
		if idx < 0 {
			t.Fatalf("event %q missing (or out of order) in stream:\n%s", want, out)
		}
		offset += idx + len(want)
	}

	if !strings.Contains(out, `"text":"Hello"`) {
		t.Fatalf("stream missing first delta: %s", out)
	}
	if !strings.Contains(out, `"messageId"`) {
		t.Fatalf("stream events carry no message id: %s", out)
	}
}

func TestChatMidStreamErrorBecomesErrorEvent(t *testing.T) {
	handle := &fakeHandle{
		events: []chat.Event{{Type: chat.EventTextDelta, Text: "partial"}},
		midErr: errors.New("upstream hiccup"),
	}
	srv := newTestServer(t, &fakeResolver{handle: handle})
	body := `{"messages":[{"role":"user","content":"hi"}],"provider":"openai","apiKey":"k","model":"gpt-4o"}`
	rr := doJSON(t, srv, http.MethodPost, "/chat", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (headers already sent)", rr.Code)
	}
	out := rr.Body.String()
	if !strings.Contains(out, "event: error") || !strings.Contains(out, "upstream hiccup") {
		t.Fatalf("stream does not report the mid-stream error: %s", out)
	}
}

func TestChatWebSearchAttachedOnlyWithToolSupport(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		want     int
	}{
		{name: "tool-capable provider", provider: "openai", apiKey: "k", want: 1},
		{name: "provider without tool support", provider: "ollama", apiKey: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle := &fakeHandle{events: []chat.Event{{Type: chat.EventFinish}}}
			srv := newTestServer(t, &fakeResolver{handle: handle})
			body := `{"messages":[{"role":"user","content":"hi"}],"provider":"` + tt.provider +
				`","apiKey":"` + tt.apiKey + `","model":"m","enableWebSearch":true}`
			rr := doJSON(t, srv, http.MethodPost, "/chat", body)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
			}
			if len(handle.gotOpts.Tools) != tt.want {
				t.Fatalf("tools attached = %d, want %d", len(handle.gotOpts.Tools), tt.want)
			}
			if tt.want == 1 && handle.gotOpts.Tools[0].Name != search.ToolName {
				t.Fatalf("tool name = %q, want %q", handle.gotOpts.Tools[0].Name, search.ToolName)
			}
			if tt.want == 0 && strings.Contains(rr.Body.String(), "tool_call") {
				t.Fatalf("tool events appeared for a provider without tool support: %s", rr.Body.String())
			}
		})
	}
}

func TestChatReasoningEffortForwardedOnlyWhenSupported(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		effort string
		want   string
	}{
		{name: "supported model and level", model: "o3", effort: "low", want: "low"},
		{name: "model without effort options", model: "gpt-4o", effort: "low", want: ""},
		{name: "unknown effort level", model: "o3", effort: "xhigh", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle := &fakeHandle{events: []chat.Event{{Type: chat.EventFinish}}}
			srv := newTestServer(t, &fakeResolver{handle: handle})
			body := `{"messages":[{"role":"user","content":"hi"}],"provider":"openai","apiKey":"k","model":"` +
				tt.model + `","reasoningEffort":"` + tt.effort + `"}`
			rr := doJSON(t, srv, http.MethodPost, "/chat", body)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
			}
			if handle.gotOpts.ReasoningEffort != tt.want {
				t.Fatalf("reasoning effort = %q, want %q", handle.gotOpts.ReasoningEffort, tt.want)
			}
		})
	}
}

func TestChatDefaultsProvider(t *testing.T) {
	handle := &fakeHandle{events: []chat.Event{{Type: chat.EventFinish}}}
	resolver := &fakeResolver{handle: handle}
	srv := newTestServer(t, resolver)
	body := `{"messages":[{"role":"user","content":"hi"}],"apiKey":"k","model":"gpt-4o"}`
	rr := doJSON(t, srv, http.MethodPost, "/chat", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if len(resolver.gotReqs) != 1 || resolver.gotReqs[0].Provider != catalog.DefaultID {
		t.Fatalf("resolver saw %+v, want default provider %q", resolver.gotReqs, catalog.DefaultID)
	}
}

func TestChatTestMissingAPIKey(t *testing.T) {
	srv := newTestServer(t, &fakeResolver{handle: &fakeHandle{}})
	rr := doJSON(t, srv, http.MethodPost, "/chat/test", `{"provider":"openai","apiKey":"","model":"gpt-4o"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}

	var resp testResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success {
		t.Fatal("success must be false")
	}
	if resp.Error != "API key is required." {
		t.Fatalf("error = %q, want %q", resp.Error, "API key is required.")
	}
}

func TestChatTestSuccess(t *testing.T) {
	srv := newTestServer(t, &fakeResolver{handle: &fakeHandle{}})
	rr := doJSON(t, srv, http.MethodPost, "/chat/test", `{"provider":"openai","apiKey":"k","model":"gpt-4o"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp testResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Error != "" {
		t.Fatalf("response = %+v, want success", resp)
	}
}

func TestChatTestVendorFailureStaysOK(t *testing.T) {
	resolver := &fakeResolver{handle: &fakeHandle{verifyErr: errors.New("invalid api key")}}
	srv := newTestServer(t, resolver)
	rr := doJSON(t, srv, http.MethodPost, "/chat/test", `{"provider":"openai","apiKey":"bad","model":"gpt-4o"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: vendor failures are outcomes, not transport errors", rr.Code)
	}

	var resp testResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Error != "invalid api key" {
		t.Fatalf("response = %+v, want failure with vendor text", resp)
	}
}

func TestChatForwardsFullMessageHistory(t *testing.T) {
	handle := &fakeHandle{events: []chat.Event{{Type: chat.EventFinish}}}
	srv := newTestServer(t, &fakeResolver{handle: handle})
	body := `{"messages":[
		{"role":"user","content":"first"},
		{"role":"assistant","content":"reply"},
		{"role":"user","content":"second"}],
		"provider":"openai","apiKey":"k","model":"gpt-4o"}`
	rr := doJSON(t, srv, http.MethodPost, "/chat", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if len(handle.gotMessages) != 3 {
		t.Fatalf("handle saw %d messages, want 3", len(handle.gotMessages))
	}
	if handle.gotMessages[1].Role != chat.RoleAssistant || handle.gotMessages[1].Text() != "reply" {
		t.Fatalf("history out of order: %+v", handle.gotMessages)
	}
}
