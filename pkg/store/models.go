package store

import (
	"time"

	"github.com/tripflow/tripflow/pkg/domain"
)

// User is an account row.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Trip statuses.
const (
	TripStatusDraft     = "draft"
	TripStatusPlanned   = "planned"
	TripStatusActive    = "active"
	TripStatusCompleted = "completed"
	TripStatusCancelled = "cancelled"
)

// Trip is a whole travel plan.
type Trip struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description,omitempty"`
	Destination   string                 `json:"destination,omitempty"`
	StartDate     *time.Time             `json:"start_date,omitempty"`
	EndDate       *time.Time             `json:"end_date,omitempty"`
	DurationDays  int                    `json:"duration_days"`
	BudgetTotal   *float64               `json:"budget_total,omitempty"`
	Currency      string                 `json:"currency"`
	Status        string                 `json:"status"`
	IsPublic      bool                   `json:"is_public"`
	Tags          []string               `json:"tags,omitempty"`
	Preferences   map[string]interface{} `json:"preferences,omitempty"`
	TravelerCount int                    `json:"traveler_count"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Itinerary is one day of a trip.
type Itinerary struct {
	ID          string          `json:"id"`
	TripID      string          `json:"trip_id"`
	DayNumber   int             `json:"day_number"`
	Date        *time.Time      `json:"date,omitempty"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Items       []ItineraryItem `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ItineraryItem is one concrete activity inside a day.
type ItineraryItem struct {
	ID                string              `json:"id"`
	ItineraryID       string              `json:"itinerary_id"`
	POIID             string              `json:"poi_id,omitempty"`
	Name              string              `json:"name"`
	Description       string              `json:"description,omitempty"`
	Address           string              `json:"address,omitempty"`
	Coordinates       *domain.Coordinates `json:"coordinates,omitempty"`
	Category          string              `json:"category,omitempty"`
	StartTime         string              `json:"start_time,omitempty"`
	EndTime           string              `json:"end_time,omitempty"`
	EstimatedDuration int                 `json:"estimated_duration,omitempty"`
	Rating            float64             `json:"rating,omitempty"`
	PriceLevel        string              `json:"price_level,omitempty"`
	Phone             string              `json:"phone,omitempty"`
	Website           string              `json:"website,omitempty"`
	OpeningHours      string              `json:"opening_hours,omitempty"`
	OrderIndex        int                 `json:"order_index"`
	IsCompleted       bool                `json:"is_completed"`
	Notes             string              `json:"notes,omitempty"`
	EstimatedCost     *float64            `json:"estimated_cost,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// Expense is a spend record attached to a trip, a day, or an item.
type Expense struct {
	ID              string              `json:"id"`
	TripID          string              `json:"trip_id"`
	ItineraryID     string              `json:"itinerary_id,omitempty"`
	ItineraryItemID string              `json:"itinerary_item_id,omitempty"`
	Amount          float64             `json:"amount"`
	Currency        string              `json:"currency"`
	Category        string              `json:"category"`
	Description     string              `json:"description,omitempty"`
	Location        string              `json:"location,omitempty"`
	Coordinates     *domain.Coordinates `json:"coordinates,omitempty"`
	PaymentMethod   string              `json:"payment_method,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	ExpenseDate     *time.Time          `json:"expense_date,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// Budget is a planned spending envelope for a trip, optionally split into
// per-category allocations.
type Budget struct {
	ID          string             `json:"id"`
	TripID      string             `json:"trip_id"`
	TotalBudget float64            `json:"total_budget"`
	Currency    string             `json:"currency"`
	Categories  map[string]float64 `json:"categories,omitempty"`
	IsActive    bool               `json:"is_active"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// BudgetStats summarizes spending against a trip budget.
type BudgetStats struct {
	TripID             string             `json:"trip_id"`
	TripTitle          string             `json:"trip_title"`
	TotalBudget        *float64           `json:"total_budget,omitempty"`
	TotalExpenses      float64            `json:"total_expenses"`
	RemainingBudget    *float64           `json:"remaining_budget,omitempty"`
	BudgetUsagePercent *float64           `json:"budget_usage_percent,omitempty"`
	CategoryBreakdown  map[string]float64 `json:"category_breakdown"`
	ExpenseCount       int                `json:"expense_count"`
}
