package chat

import (
	"encoding/json"
	"fmt"
)

const (
	ChatRoleUser   = "user"      // player
	ChatRoleAgent  = "assistant" // AI-voiced character
	ChatRoleSystem = "system"    // scene prompt
	ChatRoleTool   = "tool"      // tool execution result
)

// ToolCall is a request from the LLM to invoke a named tool. ID correlates
// the eventual tool-result message back to this call.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ChatMessage is a single entry in a scene transcript. Assistant messages
// may carry ToolCalls instead of (or alongside) text; tool messages carry
// the ToolCallID they answer.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ChatResponse is one assistant turn returned by an LLM service: free text,
// tool-call requests, or both.
type ChatResponse struct {
	Message   string     `json:"message,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// HasToolCalls reports whether the turn requests tool execution.
func (cr *ChatResponse) HasToolCalls() bool {
	return len(cr.ToolCalls) > 0
}

// Validate checks a tool call is well formed before dispatch.
func (tc *ToolCall) Validate() error {
	if tc.Name == "" {
		return fmt.Errorf("tool call has no name")
	}
	if len(tc.Arguments) == 0 {
		return fmt.Errorf("tool call %q has no arguments payload", tc.Name)
	}
	return nil
}
