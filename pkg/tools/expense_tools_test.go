package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddExpenseTool(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tripID := createToolTestTrip(t, s, ctx, 1000)
	tool := NewAddExpenseTool(s)

	result, err := tool.Execute(ctx, map[string]interface{}{
		"trip_id":     tripID,
		"amount":      float64(150),
		"category":    "food",
		"description": "午餐烤鸭",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "成功记录费用：午餐烤鸭", result.Message)

	data := result.Data.(map[string]interface{})
	assert.NotEmpty(t, data["expense_id"])
	assert.Equal(t, 150.0, data["amount"])
	assert.Equal(t, 150.0, data["total_expenses"])
	assert.Equal(t, 850.0, data["remaining_budget"])
}

func TestAddExpenseToolMessageFallsBackToCategory(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tripID := createToolTestTrip(t, s, ctx, 0)
	tool := NewAddExpenseTool(s)

	result, err := tool.Execute(ctx, map[string]interface{}{
		"trip_id":  tripID,
		"amount":   float64(80),
		"category": "transportation",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "成功记录费用：transportation", result.Message)
}

func TestAddExpenseToolErrors(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tool := NewAddExpenseTool(s)

	t.Run("unknown trip", func(t *testing.T) {
		result, err := tool.Execute(ctx, map[string]interface{}{
			"trip_id":  "no-such-trip",
			"amount":   float64(100),
			"category": "food",
		})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "行程不存在", result.Error)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		result, err := tool.Execute(ctx, map[string]interface{}{
			"trip_id":  "whatever",
			"amount":   float64(-5),
			"category": "food",
		})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "金额必须为正数", result.Error)
	})

	t.Run("no user", func(t *testing.T) {
		result, err := tool.Execute(context.Background(), map[string]interface{}{
			"trip_id":  "whatever",
			"amount":   float64(10),
			"category": "food",
		})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "未登录", result.Error)
	})
}

func TestUpdateExpenseTool(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tripID := createToolTestTrip(t, s, ctx, 1000)

	add := NewAddExpenseTool(s)
	added, err := add.Execute(ctx, map[string]interface{}{
		"trip_id":     tripID,
		"amount":      float64(200),
		"category":    "food",
		"description": "晚餐",
	})
	require.NoError(t, err)
	require.True(t, added.Success)
	expenseID := added.Data.(map[string]interface{})["expense_id"].(string)

	tool := NewUpdateExpenseTool(s)
	result, err := tool.Execute(ctx, map[string]interface{}{
		"expense_id":  expenseID,
		"amount":      float64(180),
		"description": "晚餐小吃",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "费用已更新", result.Message)

	data := result.Data.(map[string]interface{})
	assert.Equal(t, 180.0, data["amount"])
	assert.Equal(t, "晚餐小吃", data["description"])
}

func TestUpdateExpenseToolUnknown(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tool := NewUpdateExpenseTool(s)

	result, err := tool.Execute(ctx, map[string]interface{}{
		"expense_id": "no-such-expense",
		"amount":     float64(50),
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "费用记录不存在", result.Error)
}

func TestDeleteExpenseTool(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tripID := createToolTestTrip(t, s, ctx, 1000)

	add := NewAddExpenseTool(s)
	added, err := add.Execute(ctx, map[string]interface{}{
		"trip_id":  tripID,
		"amount":   float64(60),
		"category": "shopping",
	})
	require.NoError(t, err)
	expenseID := added.Data.(map[string]interface{})["expense_id"].(string)

	tool := NewDeleteExpenseTool(s)
	result, err := tool.Execute(ctx, map[string]interface{}{"expense_id": expenseID})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "费用已删除", result.Message)

	again, err := tool.Execute(ctx, map[string]interface{}{"expense_id": expenseID})
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Equal(t, "费用记录不存在", again.Error)
}

func TestQueryTripBudgetTool(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tripID := createToolTestTrip(t, s, ctx, 1000)

	add := NewAddExpenseTool(s)
	for _, exp := range []struct {
		amount   float64
		category string
	}{
		{120, "food"},
		{80, "food"},
		{300, "accommodation"},
	} {
		result, err := add.Execute(ctx, map[string]interface{}{
			"trip_id":  tripID,
			"amount":   exp.amount,
			"category": exp.category,
		})
		require.NoError(t, err)
		require.True(t, result.Success)
	}

	tool := NewQueryTripBudgetTool(s)
	result, err := tool.Execute(ctx, map[string]interface{}{"trip_id": tripID})
	require.NoError(t, err)
	require.True(t, result.Success)

	data := result.Data.(map[string]interface{})
	assert.Equal(t, tripID, data["trip_id"])
	assert.Equal(t, 1000.0, data["total_budget"])
	assert.Equal(t, 500.0, data["total_expenses"])
	assert.Equal(t, 500.0, data["remaining_budget"])
	assert.Equal(t, 50.0, data["budget_usage_percent"])
	assert.Equal(t, 3, data["expense_count"])

	breakdown := data["category_breakdown"].(map[string]float64)
	assert.Equal(t, 200.0, breakdown["food"])
	assert.Equal(t, 300.0, breakdown["accommodation"])
}

func TestQueryTripBudgetToolMostRecentTrip(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tripID := createToolTestTrip(t, s, ctx, 500)

	tool := NewQueryTripBudgetTool(s)
	result, err := tool.Execute(ctx, map[string]interface{}{})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, tripID, result.Data.(map[string]interface{})["trip_id"])
}

func TestQueryTripBudgetToolNoTrips(t *testing.T) {
	s := newToolTestStore(t)
	ctx := newToolTestContext(t, s)
	tool := NewQueryTripBudgetTool(s)

	result, err := tool.Execute(ctx, map[string]interface{}{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "行程不存在", result.Error)
}
