package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"chatrelay/internal/catalog"
	"chatrelay/internal/chat"
	"chatrelay/internal/provider"
	"chatrelay/internal/search"
)

// chatRequest is the wire payload of POST /chat. Credentials live only for
// the duration of this request's handling.
type chatRequest struct {
	Messages        []chat.Message    `json:"messages"`
	Provider        string            `json:"provider"`
	APIKey          string            `json:"apiKey"`
	Model           string            `json:"model"`
	ExtraConfig     map[string]string `json:"extraConfig"`
	EnableWebSearch bool              `json:"enableWebSearch"`
	ReasoningEffort string            `json:"reasoningEffort"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if len(req.Messages) == 0 {
		return requestError{Status: http.StatusBadRequest, Message: "At least one message is required."}
	}

	ctx := c.Request().Context()
	desc, handle, err := s.resolveSelection(ctx, req.Provider, req.APIKey, req.Model, req.ExtraConfig)
	if err != nil {
		return err
	}

	opts := provider.StreamOptions{MaxToolRounds: s.cfg.Chat.MaxToolRounds}
	if req.EnableWebSearch && desc.SupportsTools {
		opts.Tools = []chat.Tool{search.Tool(s.search)}
	}
	if req.ReasoningEffort != "" && modelSupportsEffort(desc, req.Model, req.ReasoningEffort) {
		opts.ReasoningEffort = req.ReasoningEffort
	}

	stream, err := handle.Stream(ctx, req.Messages, opts)
	if err != nil {
		return classifyError(err)
	}
	defer stream.Close()

	return s.relayStream(c, stream)
}

// resolveSelection validates the provider selection and resolves the model
// handle. All failures here surface as BadRequest before any vendor call.
func (s *Server) resolveSelection(ctx context.Context, providerID, apiKey, model string, extraConfig map[string]string) (catalog.Provider, provider.Handle, error) {
	id := providerID
	if id == "" {
		id = catalog.DefaultID
	}

	desc, ok := catalog.Lookup(id)
	if !ok {
		return catalog.Provider{}, nil, requestError{
			Status:  http.StatusBadRequest,
			Message: "Unsupported provider: " + id + ".",
		}
	}

	if desc.RequiresAPIKey && apiKey == "" {
		return catalog.Provider{}, nil, requestError{
			Status:  http.StatusBadRequest,
			Message: "API key is required.",
		}
	}
	if model == "" && extraConfig["modelId"] == "" {
		return catalog.Provider{}, nil, requestError{
			Status:  http.StatusBadRequest,
			Message: "A model is required.",
		}
	}

	handle, err := s.resolve(ctx, provider.Request{
		Provider:    id,
		APIKey:      apiKey,
		Model:       model,
		ExtraConfig: extraConfig,
	})
	if err != nil {
		return catalog.Provider{}, nil, requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		}
	}

	return desc, handle, nil
}

// relayStream forwards stream events to the caller as server-sent events in
// the exact order the vendor produced them, flushing after every event. The
// status line is held back until the vendor's first event arrives, so a
// rejection at call setup still gets a classified status code; an error after
// the first byte cannot change the status anymore and is reported as a
// terminal error event instead.
func (s *Server) relayStream(c echo.Context, stream chat.Stream) error {
	writer := c.Response().Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		return requestError{
			Status:  http.StatusInternalServerError,
			Message: "server does not support streaming responses",
		}
	}

	ev, err := stream.Recv()
	if err != nil && !errors.Is(err, io.EOF) {
		return classifyError(err)
	}

	header := c.Response().Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	if errors.Is(err, io.EOF) {
		return nil
	}

	messageID := uuid.NewString()

	for {
		ev.MessageID = messageID
		if writeErr := writeSSEEvent(writer, string(ev.Type), ev); writeErr != nil {
			return writeErr
		}
		flusher.Flush()

		ev, err = stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			_ = writeSSEEvent(writer, "error", errorBody{Error: err.Error()})
			flusher.Flush()
			return nil
		}
	}
}

func modelSupportsEffort(desc catalog.Provider, modelID, effort string) bool {
	for _, m := range desc.Models {
		if m.ID != modelID {
			continue
		}
		for _, option := range m.ReasoningEffortOptions {
			if option == effort {
				return true
			}
		}
	}
	return false
}
