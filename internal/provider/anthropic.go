package provider

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"chatrelay/internal/chat"
)

// Anthropic requires max_tokens on every request.
const anthropicDefaultMaxTokens = 4096

// anthropicHandle serves the Messages API, whether reached directly, through
// Amazon Bedrock, or through Google Vertex AI. The client is built lazily so
// that resolution never touches the network or ambient credential chains.
type anthropicHandle struct {
	model     string
	newClient func(ctx context.Context) (anthropic.Client, error)
}

func newAnthropicHandle(apiKey, model string) *anthropicHandle {
	return &anthropicHandle{
		model: model,
		newClient: func(ctx context.Context) (anthropic.Client, error) {
			return anthropic.NewClient(option.WithAPIKey(apiKey)), nil
		},
	}
}

type bedrockCredentials struct {
	accessKeyID     string
	secretAccessKey string
	sessionToken    string
	region          string
}

func newBedrockHandle(creds bedrockCredentials, model string) *anthropicHandle {
	return &anthropicHandle{
		model: model,
		newClient: func(ctx context.Context) (anthropic.Client, error) {
			cfg, err := awsconfig.LoadDefaultConfig(ctx,
				awsconfig.WithRegion(creds.region),
				awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					creds.accessKeyID, creds.secretAccessKey, creds.sessionToken,
				)),
			)
			if err != nil {
				return anthropic.Client{}, err
			}
			return anthropic.NewClient(bedrock.WithConfig(cfg)), nil
		},
	}
}

func newVertexHandle(location, project, model string) *anthropicHandle {
	return &anthropicHandle{
		model: model,
		newClient: func(ctx context.Context) (anthropic.Client, error) {
			return anthropic.NewClient(vertex.WithGoogleAuth(ctx, location, project)), nil
		},
	}
}

// Stream implements Handle. Tool use blocks are executed between rounds: the
// accumulated assistant turn and the tool results are appended and the call
// re-issued until the model produces a turn without tool use.
func (h *anthropicHandle) Stream(ctx context.Context, messages []chat.Message, opts StreamOptions) (chat.Stream, error) {
	client, err := h.newClient(ctx)
	if err != nil {
		return nil, err
	}

	anthropicMessages, systemBlocks := toAnthropicMessages(messages)

	maxTokens := int64(anthropicDefaultMaxTokens)
	if opts.MaxTokens > 0 {
		maxTokens = int64(opts.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(h.model),
		Messages:  anthropicMessages,
		MaxTokens: maxTokens,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if len(opts.Tools) > 0 {
		params.Tools = toAnthropicTools(opts.Tools)
	}

	ctx, cancel := context.WithCancel(ctx)
	pipe := chat.NewPipe(cancel)
	go h.run(ctx, client, params, opts, pipe)
	return pipe, nil
}

func (h *anthropicHandle) run(ctx context.Context, client anthropic.Client, params anthropic.MessageNewParams, opts StreamOptions, pipe *chat.Pipe) {
	rounds := opts.MaxToolRounds
	if rounds <= 0 {
		rounds = defaultMaxToolRounds
	}

	// message_start is deferred until the vendor produces its first event, so
	// a rejection at call setup reaches the caller before any event does.
	started := false

	for round := 0; ; round++ {
		stream := client.Messages.NewStreaming(ctx, params)
		msg := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()
			if !started {
				started = true
				if err := pipe.Send(ctx, chat.Event{Type: chat.EventMessageStart, Role: chat.RoleAssistant}); err != nil {
					pipe.CloseSend(err)
					return
				}
			}
			if err := msg.Accumulate(event); err != nil {
				pipe.CloseSend(err)
				return
			}
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := eventVariant.Delta.AsAny().(anthropic.TextDelta); ok {
					ev := chat.Event{Type: chat.EventTextDelta, Text: delta.Text}
					if err := pipe.Send(ctx, ev); err != nil {
						pipe.CloseSend(err)
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			pipe.CloseSend(err)
			return
		}

		toolUses := toolUseBlocks(msg.Content)
		if len(toolUses) == 0 || len(opts.Tools) == 0 || round >= rounds {
			break
		}

		params.Messages = append(params.Messages, msg.ToParam())
		resultBlocks := make([]anthropic.ContentBlockParamUnion, 0, len(toolUses))
		for _, use := range toolUses {
			args := map[string]any{}
			_ = json.Unmarshal(use.Input, &args)

			ev := chat.Event{Type: chat.EventToolCall, ToolCallID: use.ID, ToolName: use.Name, Args: args}
			if err := pipe.Send(ctx, ev); err != nil {
				pipe.CloseSend(err)
				return
			}

			result, err := executeAnthropicTool(ctx, opts.Tools, use.Name, args)
			if err != nil {
				pipe.CloseSend(err)
				return
			}

			resultEv := chat.Event{Type: chat.EventToolResult, ToolCallID: use.ID, ToolName: use.Name, Result: result}
			if err := pipe.Send(ctx, resultEv); err != nil {
				pipe.CloseSend(err)
				return
			}
			resultBlocks = append(resultBlocks, anthropic.NewToolResultBlock(use.ID, result, false))
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(resultBlocks...))
	}

	if err := pipe.Send(ctx, chat.Event{Type: chat.EventFinish}); err != nil {
		pipe.CloseSend(err)
		return
	}
	pipe.CloseSend(nil)
}

func executeAnthropicTool(ctx context.Context, tools []chat.Tool, name string, args map[string]any) (string, error) {
	tool := findTool(tools, name)
	if tool == nil {
		return "unknown tool " + name, nil
	}
	result, err := tool.Execute(ctx, args)
	if err != nil {
		return "", err
	}
	return result, nil
}

// Verify implements Handle. Anthropic has no health endpoint, so a minimal
// generation proves the credentials are usable.
func (h *anthropicHandle) Verify(ctx context.Context) error {
	client, err := h.newClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(h.model),
		MaxTokens: verifyMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	return err
}

// toAnthropicMessages splits the history into the messages array and the
// separate system blocks the Messages API expects. Tool parts in an assistant
// turn become tool_use blocks on that turn plus a user turn carrying the
// tool_result blocks, matching the Messages protocol.
func toAnthropicMessages(messages []chat.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	out := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			if text := msg.JoinedText(); text != "" {
				systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: text})
			}
		case chat.RoleAssistant:
			var blocks, resultBlocks []anthropic.ContentBlockParamUnion
			for _, part := range msg.Parts {
				switch part.Type {
				case chat.PartText:
					if part.Text != "" {
						blocks = append(blocks, anthropic.NewTextBlock(part.Text))
					}
				case chat.PartToolCall:
					args := part.Args
					if args == nil {
						args = map[string]any{}
					}
					blocks = append(blocks, anthropic.NewToolUseBlock(part.ToolCallID, args, part.ToolName))
				case chat.PartToolResult:
					resultBlocks = append(resultBlocks, anthropic.NewToolResultBlock(part.ToolCallID, part.Result, false))
				}
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
			if len(resultBlocks) > 0 {
				out = append(out, anthropic.NewUserMessage(resultBlocks...))
			}
		default:
			if text := msg.JoinedText(); text != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			}
		}
	}

	return out, systemBlocks
}

func toAnthropicTools(tools []chat.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.Schema.Properties,
					Required:   t.Schema.Required,
				},
			},
		})
	}
	return out
}

func toolUseBlocks(content []anthropic.ContentBlockUnion) []anthropic.ToolUseBlock {
	var uses []anthropic.ToolUseBlock
	for _, block := range content {
		if use, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			uses = append(uses, use)
		}
	}
	return uses
}
