package services

import (
	"context"
	"encoding/json"

	"github.com/elefant-ai/p2vn/pkg/chat"
	"github.com/elefant-ai/p2vn/pkg/tools"
)

// LLMService is the inference service consumed by the orchestrator: given
// a transcript and the tool catalog it returns one assistant turn, either
// narrative text or tool-call requests (or both). Transport and auth
// failures come back as errors; the engine does not retry them.
type LLMService interface {
	Chat(ctx context.Context, messages []chat.ChatMessage, catalog []tools.Definition) (*chat.ChatResponse, error)
}

// schemaMap renders a tool definition's parameter schema as a plain map,
// the shape both provider APIs take.
func schemaMap(def tools.Definition) (map[string]interface{}, error) {
	data, err := json.Marshal(def.Parameters)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
