package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/store"
)

// PendingAction is a tool call awaiting user confirmation before execution.
type PendingAction struct {
	ID           string                 `json:"id"`
	FunctionName string                 `json:"function_name"`
	Arguments    map[string]interface{} `json:"arguments"`
}

// TripQueryResult is one conversational turn of the trip creation assistant.
type TripQueryResult struct {
	Content       string         `json:"content"`
	PendingAction *PendingAction `json:"pending_action,omitempty"`
}

// TripAI collects trip details over a conversation and creates the trip once
// the user confirms. Tool calls are never executed directly; they surface as
// pending actions for explicit confirmation.
type TripAI struct {
	store *store.Store
	llm   domain.Generator
}

// NewTripAI builds the trip creation assistant.
func NewTripAI(s *store.Store, llm domain.Generator) *TripAI {
	return &TripAI{store: s, llm: llm}
}

// ProcessQuery runs one conversational turn.
func (s *TripAI) ProcessQuery(ctx context.Context, userID, query string, history []domain.Message) (*TripQueryResult, error) {
	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{Role: "system", Content: tripCreationPrompt})
	messages = append(messages, history...)
	messages = append(messages, domain.Message{Role: "user", Content: query})

	result, err := s.llm.GenerateWithTools(ctx, messages, tripCreationTools(), nil)
	if err != nil {
		return nil, fmt.Errorf("trip query failed: %w", err)
	}

	if len(result.ToolCalls) > 0 {
		call := result.ToolCalls[0]
		content := result.Content
		if strings.TrimSpace(content) == "" {
			content = "我已经收集到所有必要信息，准备为您创建行程。请确认以下信息："
		}
		return &TripQueryResult{
			Content: content,
			PendingAction: &PendingAction{
				ID:           call.ID,
				FunctionName: call.Function.Name,
				Arguments:    call.Function.Arguments,
			},
		}, nil
	}

	content := result.Content
	if strings.TrimSpace(content) == "" {
		content = "抱歉，我无法理解您的请求。"
	}
	return &TripQueryResult{Content: content}, nil
}

// ExecuteToolCall runs a confirmed pending action.
func (s *TripAI) ExecuteToolCall(ctx context.Context, userID, functionName string, args map[string]interface{}) (map[string]interface{}, error) {
	switch functionName {
	case "create_trip":
		data, err := s.createTrip(ctx, args, userID)
		if err != nil {
			return nil, fmt.Errorf("执行失败：%v", err)
		}
		return map[string]interface{}{
			"message": fmt.Sprintf("✅ 行程创建成功：%s", data["title"]),
			"data":    data,
		}, nil
	default:
		return nil, fmt.Errorf("未知功能：%s", functionName)
	}
}

func (s *TripAI) createTrip(ctx context.Context, args map[string]interface{}, userID string) (map[string]interface{}, error) {
	startDate := parseDate(args, "start_date")
	endDate := parseDate(args, "end_date")

	durationDays := 0
	if v, ok := args["duration_days"].(float64); ok {
		durationDays = int(v)
	}
	if durationDays == 0 && startDate != nil && endDate != nil {
		durationDays = int(endDate.Sub(*startDate).Hours()/24) + 1
	}
	if durationDays <= 0 {
		durationDays = 1
	}

	trip := &store.Trip{
		UserID:        userID,
		Title:         stringField(args, "title"),
		Description:   stringField(args, "description"),
		Destination:   stringField(args, "destination"),
		StartDate:     startDate,
		EndDate:       endDate,
		DurationDays:  durationDays,
		Currency:      stringField(args, "currency"),
		Status:        stringField(args, "status"),
		TravelerCount: 1,
	}
	if budget, ok := args["budget_total"].(float64); ok {
		trip.BudgetTotal = &budget
	}
	if count, ok := args["traveler_count"].(float64); ok && count > 0 {
		trip.TravelerCount = int(count)
	}
	if isPublic, ok := args["is_public"].(bool); ok {
		trip.IsPublic = isPublic
	}
	if raw, ok := args["tags"].([]interface{}); ok {
		for _, item := range raw {
			if tag, ok := item.(string); ok {
				trip.Tags = append(trip.Tags, tag)
			}
		}
	}

	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"id":            trip.ID,
		"title":         trip.Title,
		"destination":   trip.Destination,
		"duration_days": trip.DurationDays,
	}
	if trip.StartDate != nil {
		data["start_date"] = trip.StartDate.Format("2006-01-02")
	}
	if trip.EndDate != nil {
		data["end_date"] = trip.EndDate.Format("2006-01-02")
	}
	return data, nil
}

func parseDate(args map[string]interface{}, key string) *time.Time {
	raw, ok := args[key].(string)
	if !ok || raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}

func stringField(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

const tripCreationPrompt = `你是一名AI行程创建助手，帮助用户通过对话方式创建旅行行程。

你的角色定位：
- 通过友好的对话，逐步收集创建行程所需的所有信息
- 引导用户提供必要的信息，但不要过于机械
- 根据用户的回答，智能推测和补充信息
- 在收集齐所有信息后，使用工具创建行程

创建行程需要收集的信息：
1. **行程标题** (title) - 必填，例如："北京三日游"、"上海迪士尼之旅"
2. **目的地** (destination) - 必填，例如："北京"、"上海"
3. **开始日期** (start_date) - 必填，格式：YYYY-MM-DD
4. **结束日期** (end_date) - 必填，格式：YYYY-MM-DD
5. **行程天数** (duration_days) - 可选，如果提供了开始和结束日期，会自动计算
6. **总预算** (budget_total) - 可选，数字，例如：5000
7. **货币单位** (currency) - 可选，默认："CNY"
8. **同行人数** (traveler_count) - 可选，默认：1
9. **标签** (tags) - 可选，字符串数组，例如：["休闲", "文化"]

重要提示：
1. 当用户要求创建行程时，必须通过对话收集所有必填信息（标题、目的地、开始日期、结束日期）
2. 如果用户没有提供某些信息，要友好地询问
3. 可以根据上下文智能推测信息，例如"去北京玩3天"可以推测目的地是"北京"，天数是3
4. 只有在收集齐所有必填信息后，才调用 create_trip 工具
5. 工具调用需要用户确认后才能执行
6. 在调用工具前，要向用户展示收集到的信息，让用户确认`

func tripCreationTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Type: "function",
			Function: domain.ToolFunction{
				Name:        "create_trip",
				Description: "创建新的旅行行程",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"title": map[string]interface{}{
							"type":        "string",
							"description": "行程标题，必填，例如：'北京三日游'",
						},
						"destination": map[string]interface{}{
							"type":        "string",
							"description": "目的地，必填，例如：'北京'",
						},
						"start_date": map[string]interface{}{
							"type":        "string",
							"description": "开始日期，必填，格式：YYYY-MM-DD",
						},
						"end_date": map[string]interface{}{
							"type":        "string",
							"description": "结束日期，必填，格式：YYYY-MM-DD",
						},
						"duration_days": map[string]interface{}{
							"type":        "integer",
							"description": "行程天数，可选，如果提供了开始和结束日期会自动计算",
						},
						"budget_total": map[string]interface{}{
							"type":        "number",
							"description": "总预算，可选",
						},
						"currency": map[string]interface{}{
							"type":        "string",
							"description": "货币单位，可选，默认：'CNY'",
						},
						"traveler_count": map[string]interface{}{
							"type":        "integer",
							"description": "同行人数，可选，默认：1",
						},
						"status": map[string]interface{}{
							"type":        "string",
							"enum":        []string{"draft", "planned", "active", "completed", "cancelled"},
							"description": "行程状态，可选，默认：'draft'",
						},
						"tags": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"description": "标签，可选",
						},
						"is_public": map[string]interface{}{
							"type":        "boolean",
							"description": "是否公开，可选，默认：false",
						},
						"description": map[string]interface{}{
							"type":        "string",
							"description": "行程描述，可选",
						},
					},
					"required": []string{"title", "destination", "start_date", "end_date"},
				},
			},
		},
	}
}
