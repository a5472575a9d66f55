package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chatrelay/internal/chat"
)

// ToolName is the tool identifier offered to models.
const ToolName = "web_search"

const minQueryLength = 3

const unavailableMessage = "Web search is not available: no search service credential is configured on the server. " +
	"Answer from your own knowledge and tell the user that live search is unavailable."

// Tool exposes the client as a callable chat tool. A missing credential and a
// too-short query soft-fail with an explanatory payload so the model can
// recover; a failed search call is returned as an error and aborts the
// generation.
func Tool(c *Client) chat.Tool {
	return chat.Tool{
		Name:        ToolName,
		Description: "Search the web for current information. Returns a short answer plus a list of sources with title, url and content.",
		Schema: chat.ToolSchema{
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query.",
					"minLength":   minQueryLength,
				},
			},
			Required: []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			query = strings.TrimSpace(query)
			if len(query) < minQueryLength {
				return fmt.Sprintf("The search query must be at least %d characters; rephrase and try again.", minQueryLength), nil
			}
			if !c.Available() {
				return unavailableMessage, nil
			}

			resp, err := c.Search(ctx, query)
			if err != nil {
				return "", err
			}

			payload, err := json.Marshal(resp)
			if err != nil {
				return "", fmt.Errorf("encode search result: %w", err)
			}
			return string(payload), nil
		},
	}
}
