package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tripflow/tripflow/pkg/domain"
)

// CreateBudget records a spending envelope for a trip the user owns.
func (s *Store) CreateBudget(ctx context.Context, userID string, budget *Budget) error {
	if budget.TripID == "" {
		return fmt.Errorf("%w: trip_id is required", domain.ErrInvalidInput)
	}
	if budget.TotalBudget <= 0 {
		return fmt.Errorf("%w: total_budget must be positive", domain.ErrInvalidInput)
	}

	trip, err := s.GetTrip(ctx, budget.TripID, userID)
	if err != nil {
		return err
	}

	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}
	if budget.Currency == "" {
		budget.Currency = trip.Currency
	}
	now := time.Now().UTC()
	budget.CreatedAt = now
	budget.UpdatedAt = now

	categories, err := marshalColumn(budget.Categories)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO budgets (id, trip_id, total_budget, currency, categories, is_active,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		budget.ID, budget.TripID, budget.TotalBudget, budget.Currency, categories,
		budget.IsActive, budget.CreatedAt, budget.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create budget: %w", err)
	}
	return nil
}

const budgetColumns = `b.id, b.trip_id, b.total_budget, b.currency, b.categories,
	b.is_active, b.created_at, b.updated_at`

func scanBudget(scanner interface {
	Scan(dest ...interface{}) error
}) (*Budget, error) {
	var budget Budget
	var categories sql.NullString

	err := scanner.Scan(&budget.ID, &budget.TripID, &budget.TotalBudget,
		&budget.Currency, &categories, &budget.IsActive,
		&budget.CreatedAt, &budget.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: budget", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan budget: %w", err)
	}

	unmarshalColumn(categories, &budget.Categories)
	return &budget, nil
}

// GetBudget fetches one budget owned (through its trip) by userID.
func (s *Store) GetBudget(ctx context.Context, userID, budgetID string) (*Budget, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets b
		 JOIN trips t ON t.id = b.trip_id
		 WHERE b.id = ? AND t.user_id = ?`, budgetID, userID)
	return scanBudget(row)
}

// ListBudgets returns a trip's budgets, newest first.
func (s *Store) ListBudgets(ctx context.Context, userID, tripID string) ([]Budget, error) {
	if _, err := s.GetTrip(ctx, tripID, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets b
		 JOIN trips t ON t.id = b.trip_id
		 WHERE b.trip_id = ? AND t.user_id = ?
		 ORDER BY b.created_at DESC`, tripID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []Budget
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *budget)
	}
	return budgets, rows.Err()
}

// UpdateBudget changes the mutable fields of a budget the user owns.
func (s *Store) UpdateBudget(ctx context.Context, userID, budgetID string, updates map[string]interface{}) (*Budget, error) {
	budget, err := s.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	allowed := map[string]bool{
		"total_budget": true, "currency": true, "categories": true, "is_active": true,
	}

	columns := make([]string, 0, len(updates))
	for column := range updates {
		if !allowed[column] {
			return nil, fmt.Errorf("%w: field %q is not updatable", domain.ErrInvalidInput, column)
		}
		columns = append(columns, column)
	}
	if len(columns) == 0 {
		return budget, nil
	}
	sort.Strings(columns)

	setClause := ""
	args := []interface{}{}
	for _, column := range columns {
		value := updates[column]
		switch column {
		case "total_budget":
			amount, ok := value.(float64)
			if !ok || amount <= 0 {
				return nil, fmt.Errorf("%w: total_budget must be a positive number", domain.ErrInvalidInput)
			}
		case "categories":
			marshaled, err := marshalColumn(value)
			if err != nil {
				return nil, err
			}
			value = marshaled
		}
		setClause += column + " = ?, "
		args = append(args, value)
	}

	args = append(args, time.Now().UTC(), budgetID)
	_, err = s.db.ExecContext(ctx,
		`UPDATE budgets SET `+setClause+`updated_at = ? WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update budget: %w", err)
	}

	return s.GetBudget(ctx, userID, budgetID)
}

// DeleteBudget removes a budget the user owns.
func (s *Store) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND trip_id IN (SELECT id FROM trips WHERE user_id = ?)`,
		budgetID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: budget", domain.ErrNotFound)
	}
	return nil
}
