package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartType discriminates the content parts a message may carry.
type PartType string

const (
	PartText       PartType = "text"
	PartToolCall   PartType = "tool-call"
	PartToolResult PartType = "tool-result"
)

// Part is one content part of a message. A message may interleave text with
// tool invocations and their results; the order of parts is significant.
type Part struct {
	Type       PartType       `json:"type"`
	Text       string         `json:"text,omitempty"`
	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	Result     string         `json:"result,omitempty"`
}

// Message is a single conversational message in the unified schema.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// UnmarshalJSON accepts either the structured parts form or the common
// {"role": ..., "content": "..."} shorthand produced by simpler clients.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias struct {
		Role    Role            `json:"role"`
		Parts   []Part          `json:"parts"`
		Content json.RawMessage `json:"content"`
	}

	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Role == "" {
		return fmt.Errorf("message role must be provided")
	}

	m.Role = a.Role
	m.Parts = a.Parts

	if len(m.Parts) == 0 && len(a.Content) > 0 {
		var content string
		if err := json.Unmarshal(a.Content, &content); err != nil {
			return fmt.Errorf("message content must be a string: %w", err)
		}
		m.Parts = []Part{{Type: PartText, Text: content}}
	}

	return nil
}

// Text returns the first text part of the message, or the empty string when
// the message carries no text.
func (m Message) Text() string {
	for _, part := range m.Parts {
		if part.Type == PartText {
			return part.Text
		}
	}
	return ""
}

// JoinedText concatenates every text part of the message. Tool parts are
// skipped; providers receive those through their own structured channels.
func (m Message) JoinedText() string {
	var b strings.Builder
	for _, part := range m.Parts {
		if part.Type == PartText {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// NewTextMessage builds a message holding a single text part.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{{Type: PartText, Text: text}}}
}
