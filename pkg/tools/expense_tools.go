package tools

import (
	"context"
	"fmt"

	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/store"
)

// AddExpenseTool records a spend against a trip.
type AddExpenseTool struct {
	store *store.Store
}

// NewAddExpenseTool creates the add_expense tool.
func NewAddExpenseTool(s *store.Store) *AddExpenseTool {
	return &AddExpenseTool{store: s}
}

func (t *AddExpenseTool) Name() string { return "add_expense" }

func (t *AddExpenseTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "add_expense",
			Description: "为行程记录一笔费用",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"trip_id": map[string]interface{}{
						"type":        "string",
						"description": "行程ID",
					},
					"amount": map[string]interface{}{
						"type":        "number",
						"description": "金额（元）",
					},
					"category": map[string]interface{}{
						"type":        "string",
						"description": "费用类别",
						"enum":        []string{"transportation", "accommodation", "food", "attraction", "shopping", "other"},
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "费用描述，如'午餐烤鸭'",
					},
					"location": map[string]interface{}{
						"type":        "string",
						"description": "消费地点",
					},
				},
				"required": []string{"trip_id", "amount", "category"},
			},
		},
	}
}

func (t *AddExpenseTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	userID := UserIDFromContext(ctx)
	if userID == "" {
		return &Result{Success: false, Error: "未登录"}, nil
	}

	amount, ok := floatArg(args, "amount")
	if !ok || amount <= 0 {
		return &Result{Success: false, Error: "金额必须为正数"}, nil
	}

	expense := &store.Expense{
		TripID:          stringArg(args, "trip_id", ""),
		ItineraryItemID: stringArg(args, "itinerary_item_id", ""),
		Amount:          amount,
		Category:        stringArg(args, "category", ""),
		Description:     stringArg(args, "description", ""),
		Location:        stringArg(args, "location", ""),
	}

	if err := t.store.AddExpense(ctx, userID, expense); err != nil {
		if isNotFound(err) {
			return &Result{Success: false, Error: "行程不存在"}, nil
		}
		return &Result{Success: false, Error: fmt.Sprintf("添加费用失败: %v", err)}, nil
	}

	stats, err := t.store.TripBudgetStats(ctx, userID, expense.TripID)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("添加费用失败: %v", err)}, nil
	}

	label := expense.Description
	if label == "" {
		label = expense.Category
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"expense_id":       expense.ID,
			"amount":           expense.Amount,
			"category":         expense.Category,
			"description":      expense.Description,
			"total_expenses":   stats.TotalExpenses,
			"remaining_budget": stats.RemainingBudget,
		},
		Message: fmt.Sprintf("成功记录费用：%s", label),
	}, nil
}

// UpdateExpenseTool changes an existing expense.
type UpdateExpenseTool struct {
	store *store.Store
}

// NewUpdateExpenseTool creates the update_expense tool.
func NewUpdateExpenseTool(s *store.Store) *UpdateExpenseTool {
	return &UpdateExpenseTool{store: s}
}

func (t *UpdateExpenseTool) Name() string { return "update_expense" }

func (t *UpdateExpenseTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "update_expense",
			Description: "修改一笔已记录的费用",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"expense_id": map[string]interface{}{
						"type":        "string",
						"description": "费用ID",
					},
					"amount": map[string]interface{}{
						"type":        "number",
						"description": "新金额（元）",
					},
					"category": map[string]interface{}{
						"type":        "string",
						"description": "新费用类别",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "新费用描述",
					},
				},
				"required": []string{"expense_id"},
			},
		},
	}
}

func (t *UpdateExpenseTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	userID := UserIDFromContext(ctx)
	if userID == "" {
		return &Result{Success: false, Error: "未登录"}, nil
	}

	expenseID := stringArg(args, "expense_id", "")
	updates := map[string]interface{}{}
	if amount, ok := floatArg(args, "amount"); ok {
		updates["amount"] = amount
	}
	for _, field := range []string{"category", "description", "location"} {
		if value := stringArg(args, field, ""); value != "" {
			updates[field] = value
		}
	}

	expense, err := t.store.UpdateExpense(ctx, userID, expenseID, updates)
	if err != nil {
		if isNotFound(err) {
			return &Result{Success: false, Error: "费用记录不存在"}, nil
		}
		return &Result{Success: false, Error: fmt.Sprintf("修改费用失败: %v", err)}, nil
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"expense_id":  expense.ID,
			"amount":      expense.Amount,
			"category":    expense.Category,
			"description": expense.Description,
		},
		Message: "费用已更新",
	}, nil
}

// DeleteExpenseTool removes an expense record.
type DeleteExpenseTool struct {
	store *store.Store
}

// NewDeleteExpenseTool creates the delete_expense tool.
func NewDeleteExpenseTool(s *store.Store) *DeleteExpenseTool {
	return &DeleteExpenseTool{store: s}
}

func (t *DeleteExpenseTool) Name() string { return "delete_expense" }

func (t *DeleteExpenseTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "delete_expense",
			Description: "删除一笔费用记录",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"expense_id": map[string]interface{}{
						"type":        "string",
						"description": "费用ID",
					},
				},
				"required": []string{"expense_id"},
			},
		},
	}
}

func (t *DeleteExpenseTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	userID := UserIDFromContext(ctx)
	if userID == "" {
		return &Result{Success: false, Error: "未登录"}, nil
	}

	expenseID := stringArg(args, "expense_id", "")
	if err := t.store.DeleteExpense(ctx, userID, expenseID); err != nil {
		if isNotFound(err) {
			return &Result{Success: false, Error: "费用记录不存在"}, nil
		}
		return &Result{Success: false, Error: fmt.Sprintf("删除费用失败: %v", err)}, nil
	}

	return &Result{
		Success: true,
		Data:    map[string]interface{}{"expense_id": expenseID},
		Message: "费用已删除",
	}, nil
}

// QueryTripBudgetTool reports budget usage for a trip. When trip_id is
// omitted the user's most recent trip is used.
type QueryTripBudgetTool struct {
	store *store.Store
}

// NewQueryTripBudgetTool creates the query_trip_budget tool.
func NewQueryTripBudgetTool(s *store.Store) *QueryTripBudgetTool {
	return &QueryTripBudgetTool{store: s}
}

func (t *QueryTripBudgetTool) Name() string { return "query_trip_budget" }

func (t *QueryTripBudgetTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "query_trip_budget",
			Description: "查询行程的预算使用情况，包括总花费和分类统计",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"trip_id": map[string]interface{}{
						"type":        "string",
						"description": "行程ID，不提供时使用最近创建的行程",
					},
				},
			},
		},
	}
}

func (t *QueryTripBudgetTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	userID := UserIDFromContext(ctx)
	if userID == "" {
		return &Result{Success: false, Error: "未登录"}, nil
	}

	tripID := stringArg(args, "trip_id", "")
	if tripID == "" {
		trip, err := t.store.MostRecentTrip(ctx, userID)
		if err != nil {
			return &Result{Success: false, Error: "行程不存在"}, nil
		}
		tripID = trip.ID
	}

	stats, err := t.store.TripBudgetStats(ctx, userID, tripID)
	if err != nil {
		if isNotFound(err) {
			return &Result{Success: false, Error: "行程不存在"}, nil
		}
		return &Result{Success: false, Error: fmt.Sprintf("查询预算失败: %v", err)}, nil
	}

	return &Result{
		Success: true,
		Data: map[string]interface{}{
			"trip_id":              stats.TripID,
			"trip_title":           stats.TripTitle,
			"total_budget":         stats.TotalBudget,
			"total_expenses":       stats.TotalExpenses,
			"remaining_budget":     stats.RemainingBudget,
			"budget_usage_percent": stats.BudgetUsagePercent,
			"category_breakdown":   stats.CategoryBreakdown,
			"expense_count":        stats.ExpenseCount,
		},
	}, nil
}
