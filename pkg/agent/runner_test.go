package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/tools"
)

// scriptedStream is one provider response the fake generator plays back.
type scriptedStream struct {
	chunks    []string
	toolCalls []domain.ToolCall
	err       error
	// blockUntilCancelled makes the stream hang after its chunks until the
	// context is cancelled, for teardown tests.
	blockUntilCancelled bool
}

// fakeLLM plays scripted streams back in call order. Stream and
// StreamWithTools consume from the same script queue.
type fakeLLM struct {
	scripts []scriptedStream
	call    int
}

func (f *fakeLLM) next() scriptedStream {
	if f.call >= len(f.scripts) {
		return scriptedStream{}
	}
	s := f.scripts[f.call]
	f.call++
	return s
}

func (f *fakeLLM) Generate(ctx context.Context, messages []domain.Message, opts *domain.GenerationOptions) (string, error) {
	s := f.next()
	return strings.Join(s.chunks, ""), s.err
}

func (f *fakeLLM) Stream(ctx context.Context, messages []domain.Message, opts *domain.GenerationOptions, callback domain.StreamCallback) error {
	s := f.next()
	if s.err != nil {
		return s.err
	}
	for _, chunk := range s.chunks {
		if err := callback(chunk); err != nil {
			return err
		}
	}
	if s.blockUntilCancelled {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeLLM) GenerateWithTools(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition, opts *domain.GenerationOptions) (*domain.GenerationResult, error) {
	s := f.next()
	if s.err != nil {
		return nil, s.err
	}
	return &domain.GenerationResult{
		Content:   strings.Join(s.chunks, ""),
		ToolCalls: s.toolCalls,
		Finished:  true,
	}, nil
}

func (f *fakeLLM) StreamWithTools(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition, opts *domain.GenerationOptions, callback domain.ToolCallCallback) error {
	s := f.next()
	if s.err != nil {
		return s.err
	}
	for _, chunk := range s.chunks {
		if err := callback(chunk, nil); err != nil {
			return err
		}
	}
	if len(s.toolCalls) > 0 {
		if err := callback("", s.toolCalls); err != nil {
			return err
		}
	}
	return nil
}

// frame is one decoded SSE frame.
type frame struct {
	Kind string
	Data map[string]interface{}
}

func decodeFrames(t *testing.T, raw []string) []frame {
	t.Helper()
	frames := make([]frame, 0, len(raw))
	for _, r := range raw {
		require.True(t, strings.HasSuffix(r, "\n\n"), "frame must end with blank line: %q", r)
		lines := strings.SplitN(strings.TrimRight(r, "\n"), "\n", 2)
		require.Len(t, lines, 2)
		kind := strings.TrimPrefix(lines[0], "event: ")
		payload := strings.TrimPrefix(lines[1], "data: ")

		var envelope struct {
			Type string                 `json:"type"`
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(payload), &envelope))
		assert.Equal(t, kind, envelope.Type)
		frames = append(frames, frame{Kind: kind, Data: envelope.Data})
	}
	return frames
}

func collectFrames(t *testing.T, ch <-chan string) []frame {
	t.Helper()
	raw := make([]string, 0)
	for f := range ch {
		raw = append(raw, f)
	}
	return decodeFrames(t, raw)
}

func kinds(frames []frame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Kind)
	}
	return out
}

func newTestRegistry(tool tools.Tool) (*tools.Registry, *tools.Executor) {
	registry := tools.NewRegistry()
	if tool != nil {
		registry.Register(tool)
	}
	return registry, tools.NewExecutor(registry)
}

type fixedTool struct {
	name   string
	result *tools.Result
	err    error
	args   map[string]interface{}
}

func (f *fixedTool) Name() string { return f.name }

func (f *fixedTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{Type: "function", Function: domain.ToolFunction{Name: f.name}}
}

func (f *fixedTool) Execute(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	f.args = args
	return f.result, f.err
}

func TestRunNoTools(t *testing.T) {
	llm := &fakeLLM{scripts: []scriptedStream{{chunks: []string{"Hi", "!"}}}}
	registry, executor := newTestRegistry(nil)
	runner := NewRunner(&Agent{ID: "chat-assistant", Detection: DetectionNone}, llm, registry, executor)

	frames := collectFrames(t, runner.Run(context.Background(), RunRequest{UserInput: "hello"}))

	require.Equal(t, []string{
		"RUN_STARTED",
		"TEXT_MESSAGE_DELTA",
		"TEXT_MESSAGE_DELTA",
		"TEXT_MESSAGE_CONTENT",
		"RUN_FINISHED",
	}, kinds(frames))

	assert.Equal(t, "Hi", frames[1].Data["delta"])
	assert.Equal(t, "!", frames[2].Data["delta"])
	assert.Equal(t, "Hi!", frames[3].Data["content"])
	assert.Equal(t, frames[1].Data["messageId"], frames[2].Data["messageId"])

	result := frames[4].Data["result"].(map[string]interface{})
	assert.Equal(t, "Hi!", result["content"])
	assert.Equal(t, "chat-assistant", result["agentId"])
	assert.Equal(t, frames[0].Data["runId"], result["runId"])
}

func TestRunTextualToolCall(t *testing.T) {
	llm := &fakeLLM{scripts: []scriptedStream{
		{chunks: []string{`Sure [TOOL_CALL:mark_location:{"location":"天安门"}] done`}},
		{}, // synthesis round produces nothing, forcing the fallback
	}}
	tool := &fixedTool{
		name: "mark_location",
		result: &tools.Result{
			Success: true,
			Data:    map[string]interface{}{"coordinates": map[string]interface{}{"lat": 39.9, "lng": 116.4}},
		},
	}
	registry, executor := newTestRegistry(tool)
	runner := NewRunner(&Agent{ID: "simple-trip-planner", Detection: DetectionTextual}, llm, registry, executor)

	frames := collectFrames(t, runner.Run(context.Background(), RunRequest{UserInput: "标记天安门"}))

	require.Equal(t, []string{
		"RUN_STARTED",
		"TOOL_CALL_REQUEST",
		"TOOL_CALL_RESULT",
		"TEXT_MESSAGE_CONTENT",
		"RUN_FINISHED",
	}, kinds(frames))

	assert.Equal(t, "mark_location", frames[1].Data["toolName"])
	assert.Equal(t, "天安门", tool.args["location"])

	// Request and result carry the same call id.
	assert.Equal(t, frames[1].Data["callId"], frames[2].Data["callId"])
	result := frames[2].Data["result"].(map[string]interface{})
	assert.Equal(t, true, result["success"])

	content := frames[3].Data["content"].(string)
	assert.NotContains(t, content, "[TOOL_CALL:")
	assert.Contains(t, content, "Sure")
}

func TestRunTextualSynthesis(t *testing.T) {
	llm := &fakeLLM{scripts: []scriptedStream{
		{chunks: []string{`[TOOL_CALL:search_poi:{"keyword":"外滩"}]`}},
		{chunks: []string{"外滩在黄浦江边，", "晚上的夜景最好看。"}},
	}}
	tool := &fixedTool{name: "search_poi", result: &tools.Result{Success: true}}
	registry, executor := newTestRegistry(tool)
	runner := NewRunner(&Agent{ID: "simple-trip-planner", Detection: DetectionTextual}, llm, registry, executor)

	frames := collectFrames(t, runner.Run(context.Background(), RunRequest{UserInput: "介绍外滩"}))

	require.Equal(t, []string{
		"RUN_STARTED",
		"TOOL_CALL_REQUEST",
		"TOOL_CALL_RESULT",
		"TEXT_MESSAGE_DELTA",
		"TEXT_MESSAGE_DELTA",
		"TEXT_MESSAGE_CONTENT",
		"RUN_FINISHED",
	}, kinds(frames))

	assert.Equal(t, "外滩在黄浦江边，晚上的夜景最好看。", frames[5].Data["content"])
	// Synthesis streams under its own message id.
	assert.Equal(t, frames[3].Data["messageId"], frames[5].Data["messageId"])
}

func TestRunStructuredToolCall(t *testing.T) {
	llm := &fakeLLM{scripts: []scriptedStream{
		{
			chunks: []string{"我来查询路线。"},
			toolCalls: []domain.ToolCall{{
				ID:   "call_abc123",
				Type: "function",
				Function: domain.FunctionCall{
					Name:      "calculate_route",
					Arguments: map[string]interface{}{"origin": "天安门", "destination": "颐和园"},
				},
			}},
		},
		{chunks: []string{"驾车约40分钟。"}},
	}}
	tool := &fixedTool{name: "calculate_route", result: &tools.Result{Success: true}}
	registry, executor := newTestRegistry(tool)
	runner := NewRunner(&Agent{
		ID:        "trip-planner",
		ToolNames: []string{"calculate_route"},
		Detection: DetectionStructured,
	}, llm, registry, executor)

	frames := collectFrames(t, runner.Run(context.Background(), RunRequest{UserInput: "怎么去颐和园"}))

	require.Equal(t, []string{
		"RUN_STARTED",
		"TEXT_MESSAGE_DELTA",
		"TOOL_CALL_REQUEST",
		"TOOL_CALL_RESULT",
		"TEXT_MESSAGE_DELTA",
		"TEXT_MESSAGE_CONTENT",
		"RUN_FINISHED",
	}, kinds(frames))

	// Provider-assigned call id is kept.
	assert.Equal(t, "call_abc123", frames[2].Data["callId"])
	assert.Equal(t, "call_abc123", frames[3].Data["callId"])
	assert.Equal(t, "天安门", tool.args["origin"])
}

func TestRunStructuredSkipsNamelessCalls(t *testing.T) {
	llm := &fakeLLM{scripts: []scriptedStream{
		{toolCalls: []domain.ToolCall{
			{ID: "call_1", Type: "function", Function: domain.FunctionCall{Name: ""}},
		}},
	}}
	registry, executor := newTestRegistry(nil)
	runner := NewRunner(&Agent{ID: "trip-planner", Detection: DetectionStructured}, llm, registry, executor)

	frames := collectFrames(t, runner.Run(context.Background(), RunRequest{UserInput: "hi"}))

	require.Equal(t, []string{"RUN_STARTED", "TEXT_MESSAGE_CONTENT", "RUN_FINISHED"}, kinds(frames))
}

func TestRunToolFailureContinuesRun(t *testing.T) {
	llm := &fakeLLM{scripts: []scriptedStream{
		{chunks: []string{`[TOOL_CALL:mark_location:{"location":"nowhere"}]`}},
	}}
	tool := &fixedTool{name: "mark_location", err: errors.New("geocoder offline")}
	registry, executor := newTestRegistry(tool)
	runner := NewRunner(&Agent{ID: "simple-trip-planner", Detection: DetectionTextual}, llm, registry, executor)

	frames := collectFrames(t, runner.Run(context.Background(), RunRequest{UserInput: "标记"}))

	assert.Equal(t, "RUN_STARTED", frames[0].Kind)
	assert.Equal(t, "RUN_FINISHED", frames[len(frames)-1].Kind)

	var result map[string]interface{}
	for _, f := range frames {
		if f.Kind == "TOOL_CALL_RESULT" {
			result = f.Data["result"].(map[string]interface{})
		}
	}
	require.NotNil(t, result)
	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "geocoder offline")
}

func TestRunStreamErrorEmitsRunError(t *testing.T) {
	llm := &fakeLLM{scripts: []scriptedStream{{err: errors.New("connection refused")}}}
	registry, executor := newTestRegistry(nil)
	runner := NewRunner(&Agent{ID: "chat-assistant", Detection: DetectionNone}, llm, registry, executor)

	frames := collectFrames(t, runner.Run(context.Background(), RunRequest{UserInput: "hello", RunID: "run_fixed"}))

	require.Equal(t, []string{"RUN_STARTED", "RUN_ERROR"}, kinds(frames))
	assert.Equal(t, "run_fixed", frames[1].Data["runId"])
	assert.Contains(t, frames[1].Data["error"], "connection refused")
}

func TestRunAnnounceMessage(t *testing.T) {
	llm := &fakeLLM{scripts: []scriptedStream{{chunks: []string{"好的"}}}}
	registry, executor := newTestRegistry(nil)
	runner := NewRunner(&Agent{
		ID:        "budget-analyzer",
		Detection: DetectionNone,
		Announce:  "开始分析您的旅行预算...",
	}, llm, registry, executor)

	frames := collectFrames(t, runner.Run(context.Background(), RunRequest{UserInput: "预算"}))

	require.Equal(t, "SYSTEM_MESSAGE", frames[1].Kind)
	assert.Equal(t, "开始分析您的旅行预算...", frames[1].Data["message"])
}

func TestRunCancellationStopsStream(t *testing.T) {
	llm := &fakeLLM{scripts: []scriptedStream{{chunks: []string{"第一段"}, blockUntilCancelled: true}}}
	registry, executor := newTestRegistry(nil)
	runner := NewRunner(&Agent{ID: "chat-assistant", Detection: DetectionNone}, llm, registry, executor)

	ctx, cancel := context.WithCancel(context.Background())
	ch := runner.Run(ctx, RunRequest{UserInput: "hello"})

	raw := []string{<-ch, <-ch} // RUN_STARTED + first delta
	cancel()
	for f := range ch {
		raw = append(raw, f)
	}

	frames := decodeFrames(t, raw)
	for _, f := range frames {
		assert.NotEqual(t, "RUN_FINISHED", f.Kind)
	}
}

func TestRunUsesProvidedRunID(t *testing.T) {
	llm := &fakeLLM{scripts: []scriptedStream{{chunks: []string{"ok"}}}}
	registry, executor := newTestRegistry(nil)
	runner := NewRunner(&Agent{ID: "chat-assistant", Detection: DetectionNone}, llm, registry, executor)

	frames := collectFrames(t, runner.Run(context.Background(), RunRequest{UserInput: "hi", RunID: "run_mine"}))
	assert.Equal(t, "run_mine", frames[0].Data["runId"])
}
