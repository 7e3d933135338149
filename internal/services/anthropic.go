package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elefant-ai/p2vn/pkg/chat"
	"github.com/elefant-ai/p2vn/pkg/tools"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	DefaultAnthropicTemperature = 0.7
	DefaultAnthropicMaxTokens   = 1024

	// openingNudge seeds conversations the engine starts unprompted. The
	// Messages API rejects an empty message list and requires the first
	// message to come from the user.
	openingNudge = "Begin the scene."
)

// AnthropicService implements LLMService for Anthropic Claude with native
// tool use.
type AnthropicService struct {
	apiKey     string
	modelName  string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ LLMService = (*AnthropicService)(nil)

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use blocks (assistant requesting a call)
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result blocks (our answer to a call)
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
	ToolChoice  map[string]string  `json:"tool_choice,omitempty"`
}

type anthropicChatResponse struct {
	ID         string                  `json:"id"`
	Role       string                  `json:"role"`
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicService creates the Claude-backed inference client.
func NewAnthropicService(apiKey string, modelName string, logger *slog.Logger) *AnthropicService {
	return &AnthropicService{
		apiKey:    apiKey,
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// convertMessages splits out the system prompt and maps transcript roles
// onto Anthropic's content-block format. Tool results travel as user
// messages carrying tool_result blocks.
func convertAnthropicMessages(messages []chat.ChatMessage) (string, []anthropicMessage) {
	var system string
	var out []anthropicMessage

	for _, msg := range messages {
		switch msg.Role {
		case chat.ChatRoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case chat.ChatRoleUser:
			out = append(out, anthropicMessage{
				Role:    "user",
				Content: []anthropicContentBlock{{Type: "text", Text: msg.Content}},
			})
		case chat.ChatRoleAgent:
			var blocks []anthropicContentBlock
			if msg.Content != "" {
				blocks = append(blocks, anthropicContentBlock{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropicContentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: tc.Arguments,
				})
			}
			out = append(out, anthropicMessage{Role: "assistant", Content: blocks})
		case chat.ChatRoleTool:
			out = append(out, anthropicMessage{
				Role: "user",
				Content: []anthropicContentBlock{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
				}},
			})
		}
	}

	if len(out) == 0 || out[0].Role != "user" {
		out = append([]anthropicMessage{{
			Role:    "user",
			Content: []anthropicContentBlock{{Type: "text", Text: openingNudge}},
		}}, out...)
	}

	return system, out
}

func (a *AnthropicService) Chat(ctx context.Context, messages []chat.ChatMessage, catalog []tools.Definition) (*chat.ChatResponse, error) {
	system, converted := convertAnthropicMessages(messages)

	temperature := DefaultAnthropicTemperature
	req := anthropicChatRequest{
		Model:       a.modelName,
		MaxTokens:   DefaultAnthropicMaxTokens,
		Temperature: &temperature,
		System:      system,
		Messages:    converted,
	}

	for _, def := range catalog {
		schema, err := schemaMap(def)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema for tool %s: %w", def.Name, err)
		}
		req.Tools = append(req.Tools, anthropicTool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: schema,
		})
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = map[string]string{"type": "auto"}
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", anthropicBaseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp anthropicChatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", apiResp.Error.Message)
	}

	out := &chat.ChatResponse{}
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			out.Message += block.Text
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, chat.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}

	return out, nil
}
