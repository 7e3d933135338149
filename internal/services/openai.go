package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"github.com/elefant-ai/p2vn/pkg/chat"
	"github.com/elefant-ai/p2vn/pkg/tools"
)

// OpenAIService implements LLMService over the official SDK's Responses
// API. It also serves OpenAI-compatible providers via a custom base URL.
type OpenAIService struct {
	client    *openai.Client
	modelName string
	logger    *slog.Logger
}

var _ LLMService = (*OpenAIService)(nil)

// NewOpenAIService creates the OpenAI-backed inference client. baseURL may
// be empty for the hosted API.
func NewOpenAIService(apiKey, modelName, baseURL string, logger *slog.Logger) *OpenAIService {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAIService{
		client:    &client,
		modelName: modelName,
		logger:    logger,
	}
}

func convertOpenAIMessages(messages []chat.ChatMessage) []responses.ResponseInputItemUnionParam {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case chat.ChatRoleSystem:
			items = append(items, responses.ResponseInputItemParamOfMessage(
				m.Content, responses.EasyInputMessageRoleSystem))
		case chat.ChatRoleUser:
			items = append(items, responses.ResponseInputItemParamOfMessage(
				m.Content, responses.EasyInputMessageRoleUser))
		case chat.ChatRoleAgent:
			if m.Content != "" {
				items = append(items, responses.ResponseInputItemParamOfMessage(
					m.Content, responses.EasyInputMessageRoleAssistant))
			}
			for _, tc := range m.ToolCalls {
				items = append(items, responses.ResponseInputItemParamOfFunctionCall(
					string(tc.Arguments), tc.ID, tc.Name))
			}
		case chat.ChatRoleTool:
			items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(
				m.ToolCallID, m.Content))
		}
	}

	return items
}

func convertOpenAITools(catalog []tools.Definition) ([]responses.ToolUnionParam, error) {
	var out []responses.ToolUnionParam
	for _, def := range catalog {
		schema, err := schemaMap(def)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema for tool %s: %w", def.Name, err)
		}
		out = append(out, responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  schema,
			},
		})
	}
	return out, nil
}

func (o *OpenAIService) Chat(ctx context.Context, messages []chat.ChatMessage, catalog []tools.Definition) (*chat.ChatResponse, error) {
	params := responses.ResponseNewParams{
		Model: o.modelName,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: convertOpenAIMessages(messages),
		},
	}

	toolParams, err := convertOpenAITools(catalog)
	if err != nil {
		return nil, err
	}
	if len(toolParams) > 0 {
		params.Tools = toolParams
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	out := &chat.ChatResponse{}
	var text strings.Builder
	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			for _, content := range item.Content {
				text.WriteString(content.Text)
			}
		case "function_call":
			out.ToolCalls = append(out.ToolCalls, chat.ToolCall{
				ID:        item.CallID,
				Name:      item.Name,
				Arguments: json.RawMessage(item.Arguments),
			})
		}
	}
	out.Message = text.String()

	return out, nil
}
