package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"chatrelay/internal/chat"
)

// ollamaHandle talks to a local or remote Ollama server. No credential is
// involved; the base URL arrives through extra configuration.
type ollamaHandle struct {
	client *api.Client
	model  string
}

func newOllamaHandle(baseURL, model string) (*ollamaHandle, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, configErrorf("invalid Ollama base URL %q: %v", baseURL, err)
	}
	return &ollamaHandle{
		client: api.NewClient(u, http.DefaultClient),
		model:  model,
	}, nil
}

// Stream implements Handle. Ollama's tool wire format varies across server
// releases, so this handle streams text only; the catalogue marks the
// provider as not supporting tools and the chat handler never passes any.
func (h *ollamaHandle) Stream(ctx context.Context, messages []chat.Message, opts StreamOptions) (chat.Stream, error) {
	streaming := true
	req := &api.ChatRequest{
		Model:    h.model,
		Messages: toOllamaMessages(messages),
		Stream:   &streaming,
	}
	if opts.MaxTokens > 0 {
		req.Options = map[string]any{"num_predict": opts.MaxTokens}
	}

	ctx, cancel := context.WithCancel(ctx)
	pipe := chat.NewPipe(cancel)

	go func() {
		// message_start is deferred until the server responds, so a
		// rejection at call setup reaches the caller before any event does.
		started := false
		err := h.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			if !started {
				started = true
				if err := pipe.Send(ctx, chat.Event{Type: chat.EventMessageStart, Role: chat.RoleAssistant}); err != nil {
					return err
				}
			}
			if resp.Message.Content == "" {
				return nil
			}
			return pipe.Send(ctx, chat.Event{Type: chat.EventTextDelta, Text: resp.Message.Content})
		})
		if err != nil {
			pipe.CloseSend(fmt.Errorf("ollama chat: %w", err))
			return
		}

		if err := pipe.Send(ctx, chat.Event{Type: chat.EventFinish}); err != nil {
			pipe.CloseSend(err)
			return
		}
		pipe.CloseSend(nil)
	}()

	return pipe, nil
}

// Verify implements Handle with a single-token generation against the server.
func (h *ollamaHandle) Verify(ctx context.Context) error {
	streaming := false
	req := &api.ChatRequest{
		Model:    h.model,
		Messages: []api.Message{{Role: "user", Content: "ping"}},
		Stream:   &streaming,
		Options:  map[string]any{"num_predict": verifyMaxTokens},
	}
	return h.client.Chat(ctx, req, func(api.ChatResponse) error { return nil })
}

func toOllamaMessages(messages []chat.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		text := msg.JoinedText()
		if text == "" {
			continue
		}
		out = append(out, api.Message{Role: string(msg.Role), Content: text})
	}
	return out
}
