package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"chatrelay/internal/chat"
)

const (
	defaultMaxToolRounds = 4
	verifyMaxTokens      = 5
)

// openAIHandle serves every provider that speaks the OpenAI chat-completions
// protocol: OpenAI itself, Azure OpenAI, Gemini's compatibility endpoint,
// OpenRouter, Groq, Mistral, DeepSeek, xAI and custom compatible endpoints.
type openAIHandle struct {
	client openai.Client
	model  string
}

func newOpenAIHandle(apiKey, baseURL, model string) *openAIHandle {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &openAIHandle{client: client, model: model}
}

func newAzureHandle(apiKey, resourceName, model string) *openAIHandle {
	baseURL := fmt.Sprintf("https://%s.openai.azure.com/openai/v1", resourceName)
	return newOpenAIHandle(apiKey, baseURL, model)
}

// Stream implements Handle. Tool calls are executed between rounds: the
// accumulated assistant turn and each tool result are appended to the message
// list and the completion is re-invoked until the model stops calling tools.
func (h *openAIHandle) Stream(ctx context.Context, messages []chat.Message, opts StreamOptions) (chat.Stream, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(h.model),
		Messages: toOpenAIMessages(messages),
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.ReasoningEffort != "" {
		params.ReasoningEffort = openai.ReasoningEffort(opts.ReasoningEffort)
	}
	if len(opts.Tools) > 0 {
		params.Tools = toOpenAITools(opts.Tools)
	}

	ctx, cancel := context.WithCancel(ctx)
	pipe := chat.NewPipe(cancel)
	go h.run(ctx, params, opts, pipe)
	return pipe, nil
}

func (h *openAIHandle) run(ctx context.Context, params openai.ChatCompletionNewParams, opts StreamOptions, pipe *chat.Pipe) {
	rounds := opts.MaxToolRounds
	if rounds <= 0 {
		rounds = defaultMaxToolRounds
	}

	// message_start is deferred until the vendor produces its first chunk, so
	// a rejection at call setup reaches the caller before any event does.
	started := false

	for round := 0; ; round++ {
		stream := h.client.Chat.Completions.NewStreaming(ctx, params)
		acc := openai.ChatCompletionAccumulator{}

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)
			if !started {
				started = true
				if err := pipe.Send(ctx, chat.Event{Type: chat.EventMessageStart, Role: chat.RoleAssistant}); err != nil {
					pipe.CloseSend(err)
					return
				}
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				ev := chat.Event{Type: chat.EventTextDelta, Text: chunk.Choices[0].Delta.Content}
				if err := pipe.Send(ctx, ev); err != nil {
					pipe.CloseSend(err)
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			pipe.CloseSend(err)
			return
		}

		if len(acc.Choices) == 0 || len(acc.Choices[0].Message.ToolCalls) == 0 || len(opts.Tools) == 0 || round >= rounds {
			break
		}

		// Continue the conversation with the tool results.
		params.Messages = append(params.Messages, acc.Choices[0].Message.ToParam())
		for _, call := range acc.Choices[0].Message.ToolCalls {
			result, err := h.invokeTool(ctx, opts.Tools, call.ID, call.Function.Name, call.Function.Arguments, pipe)
			if err != nil {
				pipe.CloseSend(err)
				return
			}
			params.Messages = append(params.Messages, openai.ToolMessage(result, call.ID))
		}
	}

	if err := pipe.Send(ctx, chat.Event{Type: chat.EventFinish}); err != nil {
		pipe.CloseSend(err)
		return
	}
	pipe.CloseSend(nil)
}

func (h *openAIHandle) invokeTool(ctx context.Context, tools []chat.Tool, callID, name, rawArgs string, pipe *chat.Pipe) (string, error) {
	args := map[string]any{}
	if rawArgs != "" {
		// The model occasionally emits malformed argument JSON; pass the
		// tool an empty argument set and let it complain.
		_ = json.Unmarshal([]byte(rawArgs), &args)
	}

	ev := chat.Event{Type: chat.EventToolCall, ToolCallID: callID, ToolName: name, Args: args}
	if err := pipe.Send(ctx, ev); err != nil {
		return "", err
	}

	tool := findTool(tools, name)
	if tool == nil {
		result := fmt.Sprintf("unknown tool %q", name)
		resultEv := chat.Event{Type: chat.EventToolResult, ToolCallID: callID, ToolName: name, Result: result}
		if err := pipe.Send(ctx, resultEv); err != nil {
			return "", err
		}
		return result, nil
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}

	resultEv := chat.Event{Type: chat.EventToolResult, ToolCallID: callID, ToolName: name, Result: result}
	if err := pipe.Send(ctx, resultEv); err != nil {
		return "", err
	}
	return result, nil
}

// Verify implements Handle with one intentionally tiny completion.
func (h *openAIHandle) Verify(ctx context.Context) error {
	_, err := h.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(h.model),
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage("ping")},
		MaxCompletionTokens: openai.Int(verifyMaxTokens),
	})
	return err
}

func toOpenAIMessages(messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			if text := msg.JoinedText(); text != "" {
				out = append(out, openai.SystemMessage(text))
			}
		case chat.RoleAssistant:
			out = append(out, assistantTurnToOpenAI(msg)...)
		default:
			if text := msg.JoinedText(); text != "" {
				out = append(out, openai.UserMessage(text))
			}
		}
	}
	return out
}

// assistantTurnToOpenAI converts one assistant message, tool parts included:
// tool calls ride on the assistant message itself and each tool result becomes
// a follow-up tool message, the shape the completions protocol expects.
func assistantTurnToOpenAI(msg chat.Message) []openai.ChatCompletionMessageParamUnion {
	var toolCalls []openai.ChatCompletionMessageToolCallUnionParam
	var results []openai.ChatCompletionMessageParamUnion

	for _, part := range msg.Parts {
		switch part.Type {
		case chat.PartToolCall:
			args := []byte("{}")
			if part.Args != nil {
				if raw, err := json.Marshal(part.Args); err == nil {
					args = raw
				}
			}
			toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: part.ToolCallID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      part.ToolName,
						Arguments: string(args),
					},
				},
			})
		case chat.PartToolResult:
			results = append(results, openai.ToolMessage(part.Result, part.ToolCallID))
		}
	}

	text := msg.JoinedText()
	if text == "" && len(toolCalls) == 0 {
		return results
	}

	assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
	if text != "" {
		assistant.Content.OfString = openai.String(text)
	}
	out := []openai.ChatCompletionMessageParamUnion{{OfAssistant: &assistant}}
	return append(out, results...)
}

func toOpenAITools(tools []chat.Tool) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": t.Schema.Properties,
				"required":   t.Schema.Required,
			},
		}))
	}
	return out
}

func findTool(tools []chat.Tool, name string) *chat.Tool {
	for i := range tools {
		if tools[i].Name == name {
			return &tools[i]
		}
	}
	return nil
}
