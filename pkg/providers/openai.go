package providers

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/tripflow/tripflow/pkg/config"
	"github.com/tripflow/tripflow/pkg/domain"
)

// OpenAIProvider implements domain.Generator against any OpenAI-compatible
// chat completion endpoint. DeepSeek is the default target but the provider
// only depends on the wire protocol.
type OpenAIProvider struct {
	client openai.Client
	cfg    config.LLMConfig
}

// NewOpenAIProvider creates a provider from the LLM section of the config.
func NewOpenAIProvider(cfg config.LLMConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: llm api_key is not set", domain.ErrConfigurationError)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

// toOpenAIMessages converts domain messages to the OpenAI API format
func toOpenAIMessages(messages []domain.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	openAIMessages := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "user":
			openAIMessages[i] = openai.UserMessage(msg.Content)
		case "system":
			openAIMessages[i] = openai.SystemMessage(msg.Content)
		case "tool":
			openAIMessages[i] = openai.ToolMessage(msg.Content, msg.ToolCallID)
		case "assistant":
			assistantMsg := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			if len(msg.ToolCalls) > 0 {
				assistantMsg.ToolCalls = make([]openai.ChatCompletionMessageToolCallUnion, len(msg.ToolCalls))
				for j, tc := range msg.ToolCalls {
					args, err := json.Marshal(tc.Function.Arguments)
					if err != nil {
						return nil, fmt.Errorf("failed to marshal tool call arguments: %w", err)
					}
					assistantMsg.ToolCalls[j] = openai.ChatCompletionMessageToolCallUnion{
						ID:   tc.ID,
						Type: "function",
						Function: openai.ChatCompletionMessageFunctionToolCallFunction{
							Name:      tc.Function.Name,
							Arguments: string(args),
						},
					}
				}
			}
			openAIMessages[i] = assistantMsg.ToParam()
		default:
			return nil, fmt.Errorf("unknown message role: %s", msg.Role)
		}
	}
	return openAIMessages, nil
}

func toOpenAITools(tools []domain.ToolDefinition) []openai.ChatCompletionToolUnionParam {
	openaiTools := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, tool := range tools {
		openaiTools[i] = openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        tool.Function.Name,
			Description: openai.String(tool.Function.Description),
			Parameters:  tool.Function.Parameters,
		})
	}
	return openaiTools
}

func (p *OpenAIProvider) applyOptions(params *openai.ChatCompletionNewParams, opts *domain.GenerationOptions) {
	params.Temperature = openai.Float(p.cfg.Temperature)
	if p.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.cfg.MaxTokens))
	}

	if opts != nil {
		if opts.Temperature >= 0 {
			params.Temperature = openai.Float(opts.Temperature)
		}
		if opts.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
		}
	}
}

// Generate produces a complete response for the conversation.
func (p *OpenAIProvider) Generate(ctx context.Context, messages []domain.Message, opts *domain.GenerationOptions) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: empty messages", domain.ErrInvalidInput)
	}

	openAIMessages, err := toOpenAIMessages(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.cfg.Model),
		Messages: openAIMessages,
	}
	p.applyOptions(&params, opts)

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrGenerationFailed)
	}

	return completion.Choices[0].Message.Content, nil
}

// Stream produces a response token by token, invoking callback per chunk.
func (p *OpenAIProvider) Stream(ctx context.Context, messages []domain.Message, opts *domain.GenerationOptions, callback domain.StreamCallback) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: empty messages", domain.ErrInvalidInput)
	}
	if callback == nil {
		return fmt.Errorf("%w: nil callback", domain.ErrInvalidInput)
	}

	openAIMessages, err := toOpenAIMessages(messages)
	if err != nil {
		return fmt.Errorf("failed to convert messages: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.cfg.Model),
		Messages: openAIMessages,
	}
	p.applyOptions(&params, opts)

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := callback(chunk.Choices[0].Delta.Content); err != nil {
				return fmt.Errorf("callback error: %w", err)
			}
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	return nil
}

// GenerateWithTools produces a complete response that may request tool calls.
func (p *OpenAIProvider) GenerateWithTools(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition, opts *domain.GenerationOptions) (*domain.GenerationResult, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: empty messages", domain.ErrInvalidInput)
	}

	openAIMessages, err := toOpenAIMessages(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.cfg.Model),
		Messages: openAIMessages,
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}
	p.applyOptions(&params, opts)

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", domain.ErrGenerationFailed)
	}

	choice := completion.Choices[0]
	result := &domain.GenerationResult{
		Content:  choice.Message.Content,
		Finished: true,
	}

	if len(choice.Message.ToolCalls) > 0 {
		result.ToolCalls = make([]domain.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = make(map[string]interface{})
			}
			result.ToolCalls[i] = domain.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: domain.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: args,
				},
			}
		}
	}

	return result, nil
}

// StreamWithTools streams a response, surfacing incremental tool call deltas
// alongside content chunks.
func (p *OpenAIProvider) StreamWithTools(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition, opts *domain.GenerationOptions, callback domain.ToolCallCallback) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: empty messages", domain.ErrInvalidInput)
	}
	if callback == nil {
		return fmt.Errorf("%w: nil callback", domain.ErrInvalidInput)
	}

	openAIMessages, err := toOpenAIMessages(messages)
	if err != nil {
		return fmt.Errorf("failed to convert messages: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.cfg.Model),
		Messages: openAIMessages,
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}
	p.applyOptions(&params, opts)

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		var toolCalls []domain.ToolCall

		if len(choice.Delta.ToolCalls) > 0 {
			toolCalls = make([]domain.ToolCall, len(choice.Delta.ToolCalls))
			for i, tc := range choice.Delta.ToolCalls {
				var args map[string]interface{}
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					args = make(map[string]interface{})
				}
				toolCalls[i] = domain.ToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: domain.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: args,
					},
				}
			}
		}

		if err := callback(choice.Delta.Content, toolCalls); err != nil {
			return fmt.Errorf("callback error: %w", err)
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	return nil
}

// Health performs a minimal completion call to verify the endpoint is usable.
func (p *OpenAIProvider) Health(ctx context.Context) error {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("Hello"),
		},
		MaxCompletionTokens: openai.Int(1),
	}

	if _, err := p.client.Chat.Completions.New(ctx, params); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}

	return nil
}
