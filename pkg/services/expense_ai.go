// Package services hosts the non-streaming AI services that front the
// persistence layer with provider-native function calling.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/store"
)

// ExpenseAI answers natural-language expense questions. One LLM round with
// function calling; detected calls run against the store and their outcomes
// are folded into a text reply.
type ExpenseAI struct {
	store *store.Store
	llm   domain.Generator
}

// NewExpenseAI builds the expense assistant.
func NewExpenseAI(s *store.Store, llm domain.Generator) *ExpenseAI {
	return &ExpenseAI{store: s, llm: llm}
}

// ProcessQuery handles one natural-language expense request.
func (s *ExpenseAI) ProcessQuery(ctx context.Context, userID, tripID, query string, extra map[string]interface{}) (string, error) {
	prompt := s.buildSystemPrompt(userID, tripID, extra)
	messages := []domain.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: query},
	}

	result, err := s.llm.GenerateWithTools(ctx, messages, expenseTools(), nil)
	if err != nil {
		return "", fmt.Errorf("expense query failed: %w", err)
	}

	if len(result.ToolCalls) > 0 {
		return s.handleToolCalls(ctx, result.ToolCalls, userID, tripID), nil
	}

	if strings.TrimSpace(result.Content) == "" {
		return "抱歉，我无法理解您的请求。", nil
	}
	return result.Content, nil
}

func (s *ExpenseAI) buildSystemPrompt(userID, tripID string, extra map[string]interface{}) string {
	trip := tripID
	if trip == "" {
		trip = "未指定"
	}

	prompt := fmt.Sprintf(`你是一个专业的费用管理助手，可以帮助用户管理旅行费用。

用户ID: %s
行程ID: %s

可用功能：
1. 添加费用记录
2. 查询费用统计
3. 分析费用趋势
4. 提供预算建议
5. 费用分类管理

费用分类包括：
- transportation: 交通
- accommodation: 住宿
- food: 餐饮
- attraction: 景点
- shopping: 购物
- entertainment: 娱乐
- other: 其他

请根据用户的需求提供帮助。如果需要操作费用数据，请使用相应的工具函数。`, userID, trip)

	if len(extra) > 0 {
		if serialized, err := json.MarshalIndent(extra, "", "  "); err == nil {
			prompt += fmt.Sprintf("\n\n当前上下文：\n%s", serialized)
		}
	}
	return prompt
}

func (s *ExpenseAI) handleToolCalls(ctx context.Context, calls []domain.ToolCall, userID, tripID string) string {
	results := make([]string, 0, len(calls))
	for _, call := range calls {
		name := call.Function.Name
		args := call.Function.Arguments
		if args == nil {
			args = map[string]interface{}{}
		}
		if _, ok := args["trip_id"]; !ok && tripID != "" {
			args["trip_id"] = tripID
		}

		var (
			text string
			err  error
		)
		switch name {
		case "add_expense":
			text, err = s.addExpense(ctx, args, userID)
			if err == nil {
				text = fmt.Sprintf("✅ 已添加费用记录：%s", text)
			}
		case "get_expense_summary":
			text, err = s.expenseSummary(ctx, args, userID)
			if err == nil {
				text = fmt.Sprintf("📊 费用统计：\n%s", text)
			}
		case "get_category_stats":
			text, err = s.categoryStats(ctx, args, userID)
			if err == nil {
				text = fmt.Sprintf("📈 分类统计：\n%s", text)
			}
		case "analyze_expense_trends":
			text, err = s.expenseTrends(ctx, args, userID)
			if err == nil {
				text = fmt.Sprintf("📉 费用趋势分析：\n%s", text)
			}
		default:
			text = fmt.Sprintf("❌ 未知功能：%s", name)
		}
		if err != nil {
			text = fmt.Sprintf("❌ 执行失败：%v", err)
		}
		results = append(results, text)
	}
	return strings.Join(results, "\n\n")
}

// resolveTripID returns the explicit trip id or the user's most recent trip.
func (s *ExpenseAI) resolveTripID(ctx context.Context, args map[string]interface{}, userID string) (string, error) {
	if tripID, ok := args["trip_id"].(string); ok && tripID != "" {
		return tripID, nil
	}
	trip, err := s.store.MostRecentTrip(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("请先创建一个行程")
	}
	return trip.ID, nil
}

func (s *ExpenseAI) addExpense(ctx context.Context, args map[string]interface{}, userID string) (string, error) {
	tripID, err := s.resolveTripID(ctx, args, userID)
	if err != nil {
		return "", err
	}

	amount, _ := args["amount"].(float64)
	category, _ := args["category"].(string)
	description, _ := args["description"].(string)
	location, _ := args["location"].(string)

	expense := &store.Expense{
		TripID:      tripID,
		Amount:      amount,
		Category:    category,
		Description: description,
		Location:    location,
	}
	if err := s.store.AddExpense(ctx, userID, expense); err != nil {
		return "", err
	}
	return fmt.Sprintf("¥%.2f - %s (%s)", expense.Amount, expense.Description, expense.Category), nil
}

func (s *ExpenseAI) expenseSummary(ctx context.Context, args map[string]interface{}, userID string) (string, error) {
	tripID, err := s.resolveTripID(ctx, args, userID)
	if err != nil {
		return "", err
	}
	expenses, err := s.store.ListExpenses(ctx, userID, tripID)
	if err != nil {
		return "", err
	}
	if len(expenses) == 0 {
		return "暂无费用数据", nil
	}

	total := 0.0
	byCategory := map[string]float64{}
	counts := map[string]int{}
	for _, e := range expenses {
		total += e.Amount
		byCategory[e.Category] += e.Amount
		counts[e.Category]++
	}
	average := total / float64(len(expenses))

	var b strings.Builder
	fmt.Fprintf(&b, "总支出：¥%.2f\n", total)
	fmt.Fprintf(&b, "总笔数：%d笔\n", len(expenses))
	fmt.Fprintf(&b, "平均支出：¥%.2f\n\n", average)
	b.WriteString("分类明细：\n")
	for _, category := range sortedKeys(byCategory) {
		amount := byCategory[category]
		fmt.Fprintf(&b, "• %s: ¥%.2f (%d笔, %.1f%%)\n", category, amount, counts[category], amount/total*100)
	}
	return strings.TrimSpace(b.String()), nil
}

func (s *ExpenseAI) categoryStats(ctx context.Context, args map[string]interface{}, userID string) (string, error) {
	tripID, err := s.resolveTripID(ctx, args, userID)
	if err != nil {
		return "", err
	}
	stats, err := s.store.TripBudgetStats(ctx, userID, tripID)
	if err != nil {
		return "", err
	}
	if len(stats.CategoryBreakdown) == 0 {
		return "暂无费用数据", nil
	}

	var b strings.Builder
	b.WriteString("费用分类统计：\n")
	for _, category := range sortedKeys(stats.CategoryBreakdown) {
		amount := stats.CategoryBreakdown[category]
		percentage := 0.0
		if stats.TotalExpenses > 0 {
			percentage = amount / stats.TotalExpenses * 100
		}
		fmt.Fprintf(&b, "• %s: ¥%.2f (%.1f%%)\n", category, amount, percentage)
	}
	return strings.TrimSpace(b.String()), nil
}

func (s *ExpenseAI) expenseTrends(ctx context.Context, args map[string]interface{}, userID string) (string, error) {
	tripID, err := s.resolveTripID(ctx, args, userID)
	if err != nil {
		return "", err
	}
	period, _ := args["period"].(string)
	if period == "" {
		period = "daily"
	}

	expenses, err := s.store.ListExpenses(ctx, userID, tripID)
	if err != nil {
		return "", err
	}
	if len(expenses) == 0 {
		return "暂无费用趋势数据", nil
	}

	byDay := map[string]float64{}
	for _, e := range expenses {
		if e.ExpenseDate == nil {
			continue
		}
		byDay[e.ExpenseDate.Format("2006-01-02")] += e.Amount
	}
	if len(byDay) < 2 {
		return "数据不足，无法分析趋势", nil
	}

	days := sortedKeys(byDay)
	total, highest, lowest := 0.0, byDay[days[0]], byDay[days[0]]
	for _, day := range days {
		amount := byDay[day]
		total += amount
		if amount > highest {
			highest = amount
		}
		if amount < lowest {
			lowest = amount
		}
	}
	trend := "下降"
	if byDay[days[len(days)-1]] > byDay[days[0]] {
		trend = "上升"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "费用趋势分析（%s）：\n", period)
	fmt.Fprintf(&b, "• 平均每日支出：¥%.2f\n", total/float64(len(days)))
	fmt.Fprintf(&b, "• 总体趋势：%s\n", trend)
	fmt.Fprintf(&b, "• 最高单日：¥%.2f\n", highest)
	fmt.Fprintf(&b, "• 最低单日：¥%.2f", lowest)
	return b.String(), nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func expenseTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Type: "function",
			Function: domain.ToolFunction{
				Name:        "add_expense",
				Description: "添加费用记录",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"trip_id": map[string]interface{}{
							"type":        "string",
							"description": "行程ID",
						},
						"category": map[string]interface{}{
							"type":        "string",
							"enum":        []string{"transportation", "accommodation", "food", "attraction", "shopping", "entertainment", "other"},
							"description": "费用分类",
						},
						"amount": map[string]interface{}{
							"type":        "number",
							"description": "金额",
						},
						"description": map[string]interface{}{
							"type":        "string",
							"description": "费用描述",
						},
						"location": map[string]interface{}{
							"type":        "string",
							"description": "地点（可选）",
						},
					},
					"required": []string{"trip_id", "category", "amount", "description"},
				},
			},
		},
		{
			Type: "function",
			Function: domain.ToolFunction{
				Name:        "get_expense_summary",
				Description: "获取费用统计摘要",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"trip_id": map[string]interface{}{
							"type":        "string",
							"description": "行程ID（可选）",
						},
					},
				},
			},
		},
		{
			Type: "function",
			Function: domain.ToolFunction{
				Name:        "get_category_stats",
				Description: "获取费用分类统计",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"trip_id": map[string]interface{}{
							"type":        "string",
							"description": "行程ID（可选）",
						},
					},
				},
			},
		},
		{
			Type: "function",
			Function: domain.ToolFunction{
				Name:        "analyze_expense_trends",
				Description: "分析费用趋势",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"trip_id": map[string]interface{}{
							"type":        "string",
							"description": "行程ID（可选）",
						},
						"period": map[string]interface{}{
							"type":        "string",
							"enum":        []string{"daily", "weekly", "monthly"},
							"description": "分析周期",
						},
					},
				},
			},
		},
	}
}
