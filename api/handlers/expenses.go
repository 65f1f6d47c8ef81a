package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/tripflow/tripflow/pkg/auth"
	"github.com/tripflow/tripflow/pkg/services"
	"github.com/tripflow/tripflow/pkg/store"
)

// actionKeywords mark an AI response as having mutated expense data.
var actionKeywords = []string{"已添加", "已更新", "已删除", "已创建", "已修改", "成功记录"}

// ExpensesHandler implements the trip-independent expense routes and the
// natural-language expense assistant.
type ExpensesHandler struct {
	store *store.Store
	ai    *services.ExpenseAI
}

// NewExpensesHandler creates the expenses handler.
func NewExpensesHandler(s *store.Store, ai *services.ExpenseAI) *ExpensesHandler {
	return &ExpensesHandler{store: s, ai: ai}
}

// List returns the user's expenses across every trip, newest first, with
// optional trip, category, and date-range filters.
func (h *ExpensesHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	category := c.Query("category")

	startDate, err := parseDateField(c.Query("start_date"))
	if err != nil {
		badRequest(c, "invalid start_date: "+c.Query("start_date"))
		return
	}
	endDate, err := parseDateField(c.Query("end_date"))
	if err != nil {
		badRequest(c, "invalid end_date: "+c.Query("end_date"))
		return
	}

	expenses, err := h.store.ListUserExpenses(c.Request.Context(), auth.UserID(c), c.Query("trip_id"), listFetchLimit)
	if err != nil {
		fail(c, err)
		return
	}

	expenses = lo.Filter(expenses, func(e store.Expense, _ int) bool {
		if category != "" && e.Category != category {
			return false
		}
		if startDate != nil && (e.ExpenseDate == nil || e.ExpenseDate.Before(*startDate)) {
			return false
		}
		if endDate != nil && (e.ExpenseDate == nil || e.ExpenseDate.After(*endDate)) {
			return false
		}
		return true
	})

	totalAmount := lo.SumBy(expenses, func(e store.Expense) float64 { return e.Amount })
	total := len(expenses)

	c.JSON(http.StatusOK, gin.H{
		"expenses":     lo.Subset(expenses, (page-1)*size, uint(size)),
		"total":        total,
		"page":         page,
		"size":         size,
		"has_next":     page*size < total,
		"total_amount": totalAmount,
	})
}

// Get returns one expense the user owns.
func (h *ExpensesHandler) Get(c *gin.Context) {
	expense, err := h.store.GetExpense(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

// Update applies a partial update to an expense.
func (h *ExpensesHandler) Update(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	expense, err := h.store.UpdateExpense(c.Request.Context(), auth.UserID(c), c.Param("id"), updates)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

// Delete removes an expense.
func (h *ExpensesHandler) Delete(c *gin.Context) {
	if err := h.store.DeleteExpense(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "费用删除成功"})
}

type aiQueryRequest struct {
	Query   string                 `json:"query" binding:"required"`
	TripID  string                 `json:"trip_id"`
	Context map[string]interface{} `json:"context"`
}

// AIQuery runs a natural-language expense operation through the assistant.
func (h *ExpensesHandler) AIQuery(c *gin.Context) {
	var req aiQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	response, err := h.ai.ProcessQuery(c.Request.Context(), auth.UserID(c), req.TripID, req.Query, req.Context)
	if err != nil {
		fail(c, err)
		return
	}

	actionPerformed := lo.SomeBy(actionKeywords, func(keyword string) bool {
		return strings.Contains(response, keyword)
	})

	c.JSON(http.StatusOK, gin.H{
		"response":         response,
		"action_performed": actionPerformed,
	})
}
