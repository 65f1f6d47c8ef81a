package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/tripflow/tripflow/pkg/auth"
	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/store"
)

// listFetchLimit bounds how many rows a list endpoint pulls before paging
// in memory.
const listFetchLimit = 1000

// TripsHandler implements trip, itinerary, budget, and trip-scoped expense
// routes.
type TripsHandler struct {
	store *store.Store
}

// NewTripsHandler creates the trips handler.
func NewTripsHandler(s *store.Store) *TripsHandler {
	return &TripsHandler{store: s}
}

type tripCreateRequest struct {
	Title         string                 `json:"title" binding:"required"`
	Description   string                 `json:"description"`
	Destination   string                 `json:"destination"`
	StartDate     string                 `json:"start_date"`
	EndDate       string                 `json:"end_date"`
	DurationDays  int                    `json:"duration_days"`
	Budget        *float64               `json:"budget"`
	Currency      string                 `json:"currency"`
	Status        string                 `json:"status"`
	IsPublic      bool                   `json:"is_public"`
	Tags          []string               `json:"tags"`
	Preferences   map[string]interface{} `json:"preferences"`
	TravelerCount int                    `json:"traveler_count"`
}

func parseDateField(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, domain.ErrInvalidInput
}

// Create inserts a new trip for the authenticated user.
func (h *TripsHandler) Create(c *gin.Context) {
	var req tripCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	startDate, err := parseDateField(req.StartDate)
	if err != nil {
		badRequest(c, "invalid start_date: "+req.StartDate)
		return
	}
	endDate, err := parseDateField(req.EndDate)
	if err != nil {
		badRequest(c, "invalid end_date: "+req.EndDate)
		return
	}

	duration := req.DurationDays
	if duration <= 0 && startDate != nil && endDate != nil {
		duration = int(endDate.Sub(*startDate).Hours()/24) + 1
	}

	trip := &store.Trip{
		UserID:        auth.UserID(c),
		Title:         req.Title,
		Description:   req.Description,
		Destination:   req.Destination,
		StartDate:     startDate,
		EndDate:       endDate,
		DurationDays:  duration,
		BudgetTotal:   req.Budget,
		Currency:      req.Currency,
		Status:        req.Status,
		IsPublic:      req.IsPublic,
		Tags:          req.Tags,
		Preferences:   req.Preferences,
		TravelerCount: req.TravelerCount,
	}
	if err := h.store.CreateTrip(c.Request.Context(), trip); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, trip)
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("size", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 10
	}
	return page, size
}

// List returns the user's trips with optional status and destination
// filters, newest first.
func (h *TripsHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	status := c.Query("status")
	destination := c.Query("destination")

	trips, err := h.store.ListTrips(c.Request.Context(), auth.UserID(c), status, listFetchLimit)
	if err != nil {
		fail(c, err)
		return
	}

	if destination != "" {
		needle := strings.ToLower(destination)
		trips = lo.Filter(trips, func(t store.Trip, _ int) bool {
			return strings.Contains(strings.ToLower(t.Destination), needle)
		})
	}

	total := len(trips)
	c.JSON(http.StatusOK, gin.H{
		"trips":    lo.Subset(trips, (page-1)*size, uint(size)),
		"total":    total,
		"page":     page,
		"size":     size,
		"has_next": page*size < total,
	})
}

// Get returns one trip.
func (h *TripsHandler) Get(c *gin.Context) {
	trip, err := h.store.GetTrip(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// Update applies a partial update to a trip.
func (h *TripsHandler) Update(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if budget, ok := updates["budget"]; ok {
		updates["budget_total"] = budget
		delete(updates, "budget")
	}

	trip, err := h.store.UpdateTrip(c.Request.Context(), c.Param("id"), auth.UserID(c), updates)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// Delete removes a trip and its dependent rows.
func (h *TripsHandler) Delete(c *gin.Context) {
	if err := h.store.DeleteTrip(c.Request.Context(), c.Param("id"), auth.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "行程删除成功"})
}

// Overview aggregates the user's trips and spending.
func (h *TripsHandler) Overview(c *gin.Context) {
	overview, err := h.store.TripOverviewStats(c.Request.Context(), auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

type itineraryItemRequest struct {
	POIID             string              `json:"poi_id"`
	Name              string              `json:"name" binding:"required"`
	Description       string              `json:"description"`
	Address           string              `json:"address"`
	Coordinates       *domain.Coordinates `json:"coordinates"`
	Category          string              `json:"category"`
	StartTime         string              `json:"start_time"`
	EndTime           string              `json:"end_time"`
	EstimatedDuration int                 `json:"estimated_duration"`
	EstimatedCost     *float64            `json:"estimated_cost"`
	Notes             string              `json:"notes"`
}

type itineraryCreateRequest struct {
	DayNumber int                    `json:"day_number" binding:"required,min=1"`
	Items     []itineraryItemRequest `json:"items"`
}

// CreateItinerary creates (or reuses) a day plan and appends its items.
func (h *TripsHandler) CreateItinerary(c *gin.Context) {
	tripID := c.Param("id")
	userID := auth.UserID(c)

	var req itineraryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	if _, err := h.store.GetTrip(c.Request.Context(), tripID, userID); err != nil {
		fail(c, err)
		return
	}

	itinerary, err := h.store.GetOrCreateItinerary(c.Request.Context(), tripID, req.DayNumber)
	if err != nil {
		fail(c, err)
		return
	}

	for _, item := range req.Items {
		row := &store.ItineraryItem{
			ItineraryID:       itinerary.ID,
			POIID:             item.POIID,
			Name:              item.Name,
			Description:       item.Description,
			Address:           item.Address,
			Coordinates:       item.Coordinates,
			Category:          item.Category,
			StartTime:         item.StartTime,
			EndTime:           item.EndTime,
			EstimatedDuration: item.EstimatedDuration,
			EstimatedCost:     item.EstimatedCost,
			Notes:             item.Notes,
		}
		if err := h.store.AddItineraryItem(c.Request.Context(), row); err != nil {
			fail(c, err)
			return
		}
		itinerary.Items = append(itinerary.Items, *row)
	}

	c.JSON(http.StatusCreated, itinerary)
}

// ListItineraries returns the trip's day plans with their items.
func (h *TripsHandler) ListItineraries(c *gin.Context) {
	tripID := c.Param("id")
	if _, err := h.store.GetTrip(c.Request.Context(), tripID, auth.UserID(c)); err != nil {
		fail(c, err)
		return
	}

	itineraries, err := h.store.ListItineraries(c.Request.Context(), tripID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, itineraries)
}

type expenseCreateRequest struct {
	Amount        float64             `json:"amount" binding:"required"`
	Currency      string              `json:"currency"`
	Category      string              `json:"category" binding:"required"`
	Description   string              `json:"description"`
	Location      string              `json:"location"`
	Coordinates   *domain.Coordinates `json:"coordinates"`
	PaymentMethod string              `json:"payment_method"`
	Notes         string              `json:"notes"`
	ExpenseDate   string              `json:"expense_date"`
	ItineraryID   string              `json:"itinerary_id"`
}

// CreateExpense records an expense against a trip.
func (h *TripsHandler) CreateExpense(c *gin.Context) {
	var req expenseCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	expenseDate, err := parseDateField(req.ExpenseDate)
	if err != nil {
		badRequest(c, "invalid expense_date: "+req.ExpenseDate)
		return
	}

	expense := &store.Expense{
		TripID:        c.Param("id"),
		ItineraryID:   req.ItineraryID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Category:      req.Category,
		Description:   req.Description,
		Location:      req.Location,
		Coordinates:   req.Coordinates,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		ExpenseDate:   expenseDate,
	}
	if err := h.store.AddExpense(c.Request.Context(), auth.UserID(c), expense); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, expense)
}

// ListExpenses returns a trip's expenses, newest first, with optional
// category and date-range filters.
func (h *TripsHandler) ListExpenses(c *gin.Context) {
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

	expenses, err := h.store.ListExpenses(c.Request.Context(), auth.UserID(c), c.Param("id"))
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

// ExpenseStats returns the budget-vs-spend breakdown for a trip.
func (h *TripsHandler) ExpenseStats(c *gin.Context) {
	stats, err := h.store.TripBudgetStats(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type budgetCreateRequest struct {
	TotalBudget float64            `json:"total_budget" binding:"required,gt=0"`
	Currency    string             `json:"currency"`
	Categories  map[string]float64 `json:"categories"`
	IsActive    *bool              `json:"is_active"`
}

// CreateBudget records a spending envelope for a trip.
func (h *TripsHandler) CreateBudget(c *gin.Context) {
	var req budgetCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	budget := &store.Budget{
		TripID:      c.Param("id"),
		TotalBudget: req.TotalBudget,
		Currency:    req.Currency,
		Categories:  req.Categories,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := h.store.CreateBudget(c.Request.Context(), auth.UserID(c), budget); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, budget)
}

// ListBudgets returns a trip's budgets, newest first.
func (h *TripsHandler) ListBudgets(c *gin.Context) {
	budgets, err := h.store.ListBudgets(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if budgets == nil {
		budgets = []store.Budget{}
	}
	c.JSON(http.StatusOK, budgets)
}

// UpdateBudget applies a partial update to a budget.
func (h *TripsHandler) UpdateBudget(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	budget, err := h.store.UpdateBudget(c.Request.Context(), auth.UserID(c), c.Param("id"), updates)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

// DeleteBudget removes a budget.
func (h *TripsHandler) DeleteBudget(c *gin.Context) {
	if err := h.store.DeleteBudget(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "预算删除成功"})
}
