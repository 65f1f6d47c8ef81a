package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(llm *fakeLLM) *Service {
	registry, executor := newTestRegistry(nil)
	return NewService(llm, registry, executor)
}

func TestServiceBuiltinAgents(t *testing.T) {
	service := newTestService(&fakeLLM{})

	infos := service.Agents()
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.AgentID)
	}
	assert.Equal(t, []string{"budget-analyzer", "chat-assistant", "simple-trip-planner", "trip-planner"}, ids)

	for _, id := range ids {
		require.NotNil(t, service.Get(id), "agent %s", id)
	}
	assert.Nil(t, service.Get("nonexistent"))
}

func TestServiceRunUnknownAgent(t *testing.T) {
	service := newTestService(&fakeLLM{})

	frames := collectFrames(t, service.Run(context.Background(), "ghost", RunRequest{UserInput: "hi"}))

	require.Len(t, frames, 1)
	assert.Equal(t, "RUN_ERROR", frames[0].Kind)
	assert.Regexp(t, `^run_`, frames[0].Data["runId"])
	assert.Contains(t, frames[0].Data["error"], "ghost")
}

func TestServiceRunUnknownAgentKeepsCallerRunID(t *testing.T) {
	service := newTestService(&fakeLLM{})

	frames := collectFrames(t, service.Run(context.Background(), "ghost", RunRequest{UserInput: "hi", RunID: "run_caller01"}))

	require.Len(t, frames, 1)
	assert.Equal(t, "run_caller01", frames[0].Data["runId"])
}

func TestServiceRunDispatches(t *testing.T) {
	llm := &fakeLLM{scripts: []scriptedStream{{chunks: []string{"你好！"}}}}
	service := newTestService(llm)

	frames := collectFrames(t, service.Run(context.Background(), "chat-assistant", RunRequest{UserInput: "你好"}))

	require.NotEmpty(t, frames)
	assert.Equal(t, "RUN_STARTED", frames[0].Kind)
	assert.Equal(t, "RUN_FINISHED", frames[len(frames)-1].Kind)
	assert.Equal(t, "chat-assistant", frames[0].Data["agentId"])
}

func TestServiceRegisterReplaces(t *testing.T) {
	service := newTestService(&fakeLLM{})

	service.Register(&Agent{ID: "chat-assistant", Name: "替换助手", Detection: DetectionNone})
	runner := service.Get("chat-assistant")
	require.NotNil(t, runner)
	assert.Equal(t, "替换助手", runner.Agent().Name)
}

func TestAgentSystemPromptContextEnrichment(t *testing.T) {
	persona := &Agent{ID: "simple-trip-planner", SystemPrompt: "基础提示"}

	prompt := persona.systemPrompt("", map[string]interface{}{
		"previous_pois": []interface{}{
			map[string]interface{}{"name": "故宫"},
			map[string]interface{}{"name": "天坛"},
		},
		"previous_routes": []interface{}{
			map[string]interface{}{"origin": "故宫", "destination": "天坛"},
		},
		"map_markers": []interface{}{
			map[string]interface{}{"name": "酒店"},
		},
	})

	assert.Contains(t, prompt, "基础提示")
	assert.Contains(t, prompt, "之前搜索过的POI: 故宫, 天坛")
	assert.Contains(t, prompt, "之前计算过的路线: 故宫到天坛")
	assert.Contains(t, prompt, "地图上的标记: 酒店")
}

func TestAgentSystemPromptCustomWins(t *testing.T) {
	persona := &Agent{ID: "chat-assistant", SystemPrompt: "默认提示"}
	assert.Equal(t, "自定义提示", persona.systemPrompt("自定义提示", nil))
}
