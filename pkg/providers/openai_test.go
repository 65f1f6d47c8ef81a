package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripflow/tripflow/pkg/config"
	"github.com/tripflow/tripflow/pkg/domain"
)

func TestNewOpenAIProviderRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIProvider(config.LLMConfig{
		BaseURL: "https://api.deepseek.com/v1",
		Model:   "deepseek-chat",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigurationError)
}

func TestNewOpenAIProvider(t *testing.T) {
	p, err := NewOpenAIProvider(config.LLMConfig{
		APIKey:  "sk-test",
		BaseURL: "https://api.deepseek.com/v1",
		Model:   "deepseek-chat",
	})
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestToOpenAIMessages(t *testing.T) {
	messages := []domain.Message{
		{Role: "system", Content: "You are a travel assistant."},
		{Role: "user", Content: "推荐北京的景点"},
		{Role: "assistant", Content: "", ToolCalls: []domain.ToolCall{
			{
				ID:   "call_00000001",
				Type: "function",
				Function: domain.FunctionCall{
					Name:      "search_poi",
					Arguments: map[string]interface{}{"keyword": "景点", "location": "北京"},
				},
			},
		}},
		{Role: "tool", Content: `{"success":true}`, ToolCallID: "call_00000001"},
	}

	converted, err := toOpenAIMessages(messages)
	require.NoError(t, err)
	assert.Len(t, converted, 4)
}

func TestToOpenAIMessagesUnknownRole(t *testing.T) {
	_, err := toOpenAIMessages([]domain.Message{{Role: "narrator", Content: "x"}})
	assert.Error(t, err)
}

func TestToOpenAITools(t *testing.T) {
	tools := []domain.ToolDefinition{
		{
			Type: "function",
			Function: domain.ToolFunction{
				Name:        "search_poi",
				Description: "Search points of interest",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"keyword": map[string]interface{}{"type": "string"},
					},
					"required": []string{"keyword"},
				},
			},
		},
	}

	converted := toOpenAITools(tools)
	assert.Len(t, converted, 1)
}
