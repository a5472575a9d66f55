package chat

import "context"

// ToolSchema describes a tool's argument object as a flat JSON schema.
type ToolSchema struct {
	Properties map[string]any
	Required   []string
}

// Tool is a callable capability the model may invoke mid-generation. Execute
// returns the payload fed back into the model's context; an error aborts the
// generation and propagates to the caller.
type Tool struct {
	Name        string
	Description string
	Schema      ToolSchema
	Execute     func(ctx context.Context, args map[string]any) (string, error)
}
