package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/store"
)

// fakeGenerator returns a scripted GenerateWithTools result.
type fakeGenerator struct {
	result   *domain.GenerationResult
	err      error
	messages []domain.Message
}

func (f *fakeGenerator) Generate(ctx context.Context, messages []domain.Message, opts *domain.GenerationOptions) (string, error) {
	return f.result.Content, f.err
}

func (f *fakeGenerator) Stream(ctx context.Context, messages []domain.Message, opts *domain.GenerationOptions, callback domain.StreamCallback) error {
	return f.err
}

func (f *fakeGenerator) GenerateWithTools(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition, opts *domain.GenerationOptions) (*domain.GenerationResult, error) {
	f.messages = messages
	return f.result, f.err
}

func (f *fakeGenerator) StreamWithTools(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition, opts *domain.GenerationOptions, callback domain.ToolCallCallback) error {
	return f.err
}

func newServiceTestStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { s.Close() })

	user, err := s.CreateUser(context.Background(), "planner@example.com", "hashed", "规划者")
	require.NoError(t, err)
	return s, user.ID
}

func createServiceTestTrip(t *testing.T, s *store.Store, userID string, budget float64) *store.Trip {
	t.Helper()
	trip := &store.Trip{UserID: userID, Title: "成都美食之旅", Destination: "成都"}
	if budget > 0 {
		trip.BudgetTotal = &budget
	}
	require.NoError(t, s.CreateTrip(context.Background(), trip))
	return trip
}

func toolCall(name string, args map[string]interface{}) domain.ToolCall {
	return domain.ToolCall{
		ID:       "call_1",
		Type:     "function",
		Function: domain.FunctionCall{Name: name, Arguments: args},
	}
}

func TestExpenseAIPlainAnswer(t *testing.T) {
	s, userID := newServiceTestStore(t)
	llm := &fakeGenerator{result: &domain.GenerationResult{Content: "旅行预算建议控制在每日500元。"}}
	ai := NewExpenseAI(s, llm)

	answer, err := ai.ProcessQuery(context.Background(), userID, "", "预算建议", nil)
	require.NoError(t, err)
	assert.Equal(t, "旅行预算建议控制在每日500元。", answer)

	// System prompt carries the user identity.
	require.NotEmpty(t, llm.messages)
	assert.Contains(t, llm.messages[0].Content, userID)
}

func TestExpenseAIAddExpense(t *testing.T) {
	s, userID := newServiceTestStore(t)
	trip := createServiceTestTrip(t, s, userID, 1000)

	llm := &fakeGenerator{result: &domain.GenerationResult{
		ToolCalls: []domain.ToolCall{toolCall("add_expense", map[string]interface{}{
			"trip_id":     trip.ID,
			"amount":      128.0,
			"category":    "food",
			"description": "火锅",
		})},
	}}
	ai := NewExpenseAI(s, llm)

	answer, err := ai.ProcessQuery(context.Background(), userID, "", "记一笔火锅128元", nil)
	require.NoError(t, err)
	assert.Contains(t, answer, "✅ 已添加费用记录：¥128.00 - 火锅 (food)")

	expenses, err := s.ListExpenses(context.Background(), userID, trip.ID)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, 128.0, expenses[0].Amount)
}

func TestExpenseAIAddExpenseResolvesRecentTrip(t *testing.T) {
	s, userID := newServiceTestStore(t)
	trip := createServiceTestTrip(t, s, userID, 0)

	llm := &fakeGenerator{result: &domain.GenerationResult{
		ToolCalls: []domain.ToolCall{toolCall("add_expense", map[string]interface{}{
			"amount":      50.0,
			"category":    "transportation",
			"description": "地铁",
		})},
	}}
	ai := NewExpenseAI(s, llm)

	answer, err := ai.ProcessQuery(context.Background(), userID, "", "地铁50元", nil)
	require.NoError(t, err)
	assert.Contains(t, answer, "已添加费用记录")

	expenses, err := s.ListExpenses(context.Background(), userID, trip.ID)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
}

func TestExpenseAINoTripToResolve(t *testing.T) {
	s, userID := newServiceTestStore(t)
	llm := &fakeGenerator{result: &domain.GenerationResult{
		ToolCalls: []domain.ToolCall{toolCall("add_expense", map[string]interface{}{
			"amount":      50.0,
			"category":    "food",
			"description": "午餐",
		})},
	}}
	ai := NewExpenseAI(s, llm)

	answer, err := ai.ProcessQuery(context.Background(), userID, "", "午餐50元", nil)
	require.NoError(t, err)
	assert.Contains(t, answer, "❌ 执行失败：请先创建一个行程")
}

func TestExpenseAISummary(t *testing.T) {
	s, userID := newServiceTestStore(t)
	trip := createServiceTestTrip(t, s, userID, 1000)
	for _, e := range []struct {
		amount   float64
		category string
	}{{100, "food"}, {300, "accommodation"}} {
		require.NoError(t, s.AddExpense(context.Background(), userID, &store.Expense{
			TripID: trip.ID, Amount: e.amount, Category: e.category,
		}))
	}

	llm := &fakeGenerator{result: &domain.GenerationResult{
		ToolCalls: []domain.ToolCall{toolCall("get_expense_summary", map[string]interface{}{"trip_id": trip.ID})},
	}}
	ai := NewExpenseAI(s, llm)

	answer, err := ai.ProcessQuery(context.Background(), userID, "", "费用统计", nil)
	require.NoError(t, err)
	assert.Contains(t, answer, "📊 费用统计：")
	assert.Contains(t, answer, "总支出：¥400.00")
	assert.Contains(t, answer, "总笔数：2笔")
	assert.Contains(t, answer, "平均支出：¥200.00")
	assert.Contains(t, answer, "• food: ¥100.00 (1笔, 25.0%)")
}

func TestExpenseAIUnknownFunction(t *testing.T) {
	s, userID := newServiceTestStore(t)
	llm := &fakeGenerator{result: &domain.GenerationResult{
		ToolCalls: []domain.ToolCall{toolCall("launch_rocket", nil)},
	}}
	ai := NewExpenseAI(s, llm)

	answer, err := ai.ProcessQuery(context.Background(), userID, "", "发射", nil)
	require.NoError(t, err)
	assert.Equal(t, "❌ 未知功能：launch_rocket", answer)
}

func TestExpenseAIEmptyContent(t *testing.T) {
	s, userID := newServiceTestStore(t)
	llm := &fakeGenerator{result: &domain.GenerationResult{Content: "  "}}
	ai := NewExpenseAI(s, llm)

	answer, err := ai.ProcessQuery(context.Background(), userID, "", "???", nil)
	require.NoError(t, err)
	assert.Equal(t, "抱歉，我无法理解您的请求。", answer)
}

func TestTripAIPendingAction(t *testing.T) {
	s, userID := newServiceTestStore(t)
	llm := &fakeGenerator{result: &domain.GenerationResult{
		Content: "",
		ToolCalls: []domain.ToolCall{toolCall("create_trip", map[string]interface{}{
			"title":       "北京三日游",
			"destination": "北京",
			"start_date":  "2026-09-15",
			"end_date":    "2026-09-17",
		})},
	}}
	ai := NewTripAI(s, llm)

	result, err := ai.ProcessQuery(context.Background(), userID, "去北京玩三天", nil)
	require.NoError(t, err)
	require.NotNil(t, result.PendingAction)
	assert.Equal(t, "create_trip", result.PendingAction.FunctionName)
	assert.Equal(t, "我已经收集到所有必要信息，准备为您创建行程。请确认以下信息：", result.Content)

	// Nothing is persisted until the action is confirmed.
	trips, err := s.ListTrips(context.Background(), userID, "all", 10)
	require.NoError(t, err)
	assert.Empty(t, trips)
}

func TestTripAIExecuteCreateTrip(t *testing.T) {
	s, userID := newServiceTestStore(t)
	ai := NewTripAI(s, &fakeGenerator{})

	result, err := ai.ExecuteToolCall(context.Background(), userID, "create_trip", map[string]interface{}{
		"title":        "北京三日游",
		"destination":  "北京",
		"start_date":   "2026-09-15",
		"end_date":     "2026-09-17",
		"budget_total": 5000.0,
		"tags":         []interface{}{"休闲", "文化"},
	})
	require.NoError(t, err)
	assert.Equal(t, "✅ 行程创建成功：北京三日游", result["message"])

	data := result["data"].(map[string]interface{})
	assert.Equal(t, 3, data["duration_days"])
	assert.Equal(t, "2026-09-15", data["start_date"])

	trip, err := s.GetTrip(context.Background(), data["id"].(string), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"休闲", "文化"}, trip.Tags)
	require.NotNil(t, trip.BudgetTotal)
	assert.Equal(t, 5000.0, *trip.BudgetTotal)
	require.NotNil(t, trip.StartDate)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), trip.StartDate.UTC())
}

func TestTripAIExecuteUnknownFunction(t *testing.T) {
	s, userID := newServiceTestStore(t)
	ai := NewTripAI(s, &fakeGenerator{})

	_, err := ai.ExecuteToolCall(context.Background(), userID, "delete_everything", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未知功能")
}

func TestTripAIPlainConversation(t *testing.T) {
	s, userID := newServiceTestStore(t)
	llm := &fakeGenerator{result: &domain.GenerationResult{Content: "请问您想去哪里旅行？"}}
	ai := NewTripAI(s, llm)

	result, err := ai.ProcessQuery(context.Background(), userID, "帮我创建一个行程", nil)
	require.NoError(t, err)
	assert.Nil(t, result.PendingAction)
	assert.Equal(t, "请问您想去哪里旅行？", result.Content)
}
