package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tripflow/tripflow/pkg/agui"
	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/tools"
)

const chatAssistantPrompt = `你是一个友好的AI助手，专门帮助用户解答各种问题。

你可以提供以下帮助：
1. 回答一般性问题
2. 提供信息咨询
3. 协助解决问题
4. 进行日常对话
5. 提供建议和指导

请保持回答友好、准确、有用。如果遇到不确定的问题，请诚实地说不知道，并建议用户如何获取准确信息。`

const tripPlannerPrompt = `你是一个专业的旅行规划助手。请用中文回答用户的问题，帮助用户规划旅行行程。

你可以提供以下帮助：
1. 推荐旅游目的地和景点
2. 制定详细的行程安排
3. 提供交通和住宿建议
4. 估算旅行费用
5. 回答旅行相关问题

当需要搜索具体信息时，你可以使用以下工具：
- search_poi: 搜索景点、餐厅、酒店等
- calculate_route: 计算路线距离和时间
- mark_location: 在地图上标记地点
- plan_trip: 基于选中的地点规划行程

请保持回答简洁明了，并提供实用的建议。如果用户询问具体的地点、价格或路线信息，请主动使用相关工具进行搜索。`

const simpleTripPrompt = `你是一个专业的旅行规划助手。你可以帮助用户：

1. 搜索景点、餐厅、酒店等POI信息
2. 在地图上标记指定地点
3. 计算路线和距离
4. 基于选中的地点规划完整行程
5. 提供旅行建议和规划

当用户要求"标记"、"在地图上标记"某个地点时，请使用：
[TOOL_CALL:mark_location:{"location":"地点名称","label":"标记标签","category":"attraction"}]

当用户询问关于地点、景点、餐厅、酒店等信息时，请使用：
[TOOL_CALL:search_poi:{"keyword":"具体景点名称","city":"城市名称","category":"attraction"}]

当用户询问路线、距离、交通方式时，请使用：
[TOOL_CALL:calculate_route:{"origin":"起点","destination":"终点","mode":"driving"}]

当用户要求"规划行程"、"生成行程"、"为这些地点规划行程"时，请使用：
[TOOL_CALL:plan_trip:{"selected_locations":["地点ID1","地点ID2"],"trip_duration":"1天","transport_mode":"mixed"}]

请根据用户的问题，智能地决定是否需要调用工具，并在回复中包含相应的工具调用指令。`

const budgetAnalyzerPrompt = `你是一个专业的旅行费用分析助手。请用中文回答用户的问题，帮助用户分析旅行费用和制定预算。

你可以提供以下帮助：
1. 分析旅行各项费用（交通、住宿、餐饮、门票等）
2. 制定合理的预算建议
3. 提供费用优化建议
4. 比较不同选项的费用差异
5. 分析费用趋势和变化

请保持回答专业、准确，并给出可执行的建议。`

// defaultAgents returns the built-in personas.
func defaultAgents() []*Agent {
	return []*Agent{
		{
			ID:           "chat-assistant",
			Name:         "对话助手",
			Description:  "通用对话助手，回答各种问题和提供咨询服务",
			SystemPrompt: chatAssistantPrompt,
			Detection:    DetectionNone,
		},
		{
			ID:           "trip-planner",
			Name:         "行程规划助手",
			Description:  "专业的旅行行程规划助手，帮助您制定详细的旅行计划",
			SystemPrompt: tripPlannerPrompt,
			ToolNames:    []string{"search_poi", "calculate_route", "mark_location", "plan_trip"},
			Detection:    DetectionStructured,
			Announce:     "开始分析您的旅行需求...",
		},
		{
			ID:           "simple-trip-planner",
			Name:         "简化行程规划师",
			Description:  "简化的行程规划助手，通过文本指令调用工具",
			SystemPrompt: simpleTripPrompt,
			ToolNames: []string{
				"search_poi", "calculate_route", "mark_location", "plan_trip",
				"create_trip", "add_itinerary_item", "list_trips",
				"add_expense", "update_expense", "delete_expense", "query_trip_budget",
			},
			Detection: DetectionTextual,
			Announce:  "开始分析您的旅行需求...",
		},
		{
			ID:           "budget-analyzer",
			Name:         "费用分析助手",
			Description:  "费用分析专家，协助您制定和管理旅行预算",
			SystemPrompt: budgetAnalyzerPrompt,
			Detection:    DetectionNone,
			Announce:     "开始分析您的旅行预算...",
		},
	}
}

// Info is the public description of one persona.
type Info struct {
	AgentID     string `json:"agentId"`
	AgentName   string `json:"agentName"`
	Description string `json:"description"`
}

// Service dispatches runs to the registered personas. The zero set is the
// built-in four; Register replaces a persona by id.
type Service struct {
	mu      sync.RWMutex
	runners map[string]*Runner

	llm      domain.Generator
	registry *tools.Registry
	executor *tools.Executor
	encoder  agui.Encoder
}

// NewService builds the dispatch service with the built-in personas.
func NewService(llm domain.Generator, registry *tools.Registry, executor *tools.Executor) *Service {
	s := &Service{
		runners:  make(map[string]*Runner),
		llm:      llm,
		registry: registry,
		executor: executor,
	}
	for _, persona := range defaultAgents() {
		s.Register(persona)
	}
	return s
}

// Register adds or replaces a persona.
func (s *Service) Register(persona *Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runners[persona.ID] = NewRunner(persona, s.llm, s.registry, s.executor)
}

// Get returns the runner for an agent id, or nil when unknown.
func (s *Service) Get(agentID string) *Runner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runners[agentID]
}

// Agents lists the registered personas sorted by id.
func (s *Service) Agents() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]Info, 0, len(s.runners))
	for _, runner := range s.runners {
		a := runner.Agent()
		infos = append(infos, Info{AgentID: a.ID, AgentName: a.Name, Description: a.Description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].AgentID < infos[j].AgentID })
	return infos
}

// Run dispatches a run to the named persona. An unknown agent id yields a
// stream holding a single RUN_ERROR frame so the transport stays well
// formed.
func (s *Service) Run(ctx context.Context, agentID string, req RunRequest) <-chan string {
	runner := s.Get(agentID)
	if runner == nil {
		frames := make(chan string, 1)
		runID := req.RunID
		if runID == "" {
			runID = agui.NewRunID()
		}
		frames <- s.encoder.EncodeRunError(runID, fmt.Sprintf("Agent %s 不存在", agentID))
		close(frames)
		return frames
	}
	return runner.Run(ctx, req)
}
