package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tripflow/tripflow/pkg/domain"
)

// AddExpense records a spend against a trip the user owns.
func (s *Store) AddExpense(ctx context.Context, userID string, expense *Expense) error {
	if expense.TripID == "" || expense.Category == "" {
		return fmt.Errorf("%w: trip_id and category are required", domain.ErrInvalidInput)
	}
	if expense.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}

	trip, err := s.GetTrip(ctx, expense.TripID, userID)
	if err != nil {
		return err
	}

	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Currency == "" {
		expense.Currency = trip.Currency
	}
	now := time.Now().UTC()
	if expense.ExpenseDate == nil {
		expense.ExpenseDate = &now
	}
	expense.CreatedAt = now
	expense.UpdatedAt = now

	coordinates, err := marshalColumn(expense.Coordinates)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO expenses (id, trip_id, itinerary_id, itinerary_item_id, amount, currency,
			category, description, location, coordinates, payment_method, notes, expense_date,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.TripID, nullIfEmpty(expense.ItineraryID),
		nullIfEmpty(expense.ItineraryItemID), expense.Amount, expense.Currency,
		expense.Category, expense.Description, expense.Location, coordinates,
		expense.PaymentMethod, expense.Notes, expense.ExpenseDate,
		expense.CreatedAt, expense.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to add expense: %w", err)
	}
	return nil
}

// UpdateExpense changes the mutable fields of an expense the user owns.
func (s *Store) UpdateExpense(ctx context.Context, userID, expenseID string, updates map[string]interface{}) (*Expense, error) {
	expense, err := s.GetExpense(ctx, userID, expenseID)
	if err != nil {
		return nil, err
	}

	allowed := map[string]bool{
		"amount": true, "category": true, "description": true,
		"location": true, "payment_method": true, "notes": true,
	}

	setClause := ""
	args := []interface{}{}
	for column, value := range updates {
		if !allowed[column] {
			return nil, fmt.Errorf("%w: field %q is not updatable", domain.ErrInvalidInput, column)
		}
		if column == "amount" {
			amount, ok := value.(float64)
			if !ok || amount <= 0 {
				return nil, fmt.Errorf("%w: amount must be a positive number", domain.ErrInvalidInput)
			}
		}
		setClause += column + " = ?, "
		args = append(args, value)
	}
	if setClause == "" {
		return expense, nil
	}

	args = append(args, time.Now().UTC(), expenseID)
	_, err = s.db.ExecContext(ctx,
		`UPDATE expenses SET `+setClause+`updated_at = ? WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	return s.GetExpense(ctx, userID, expenseID)
}

// DeleteExpense removes an expense the user owns.
func (s *Store) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND trip_id IN (SELECT id FROM trips WHERE user_id = ?)`,
		expenseID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: expense", domain.ErrNotFound)
	}
	return nil
}

const expenseColumns = `e.id, e.trip_id, COALESCE(e.itinerary_id, ''), COALESCE(e.itinerary_item_id, ''),
	e.amount, e.currency, e.category, COALESCE(e.description, ''), COALESCE(e.location, ''),
	e.coordinates, COALESCE(e.payment_method, ''), COALESCE(e.notes, ''), e.expense_date,
	e.created_at, e.updated_at`

func scanExpense(scanner interface {
	Scan(dest ...interface{}) error
}) (*Expense, error) {
	var expense Expense
	var coordinates sql.NullString
	var expenseDate sql.NullTime

	err := scanner.Scan(&expense.ID, &expense.TripID, &expense.ItineraryID,
		&expense.ItineraryItemID, &expense.Amount, &expense.Currency, &expense.Category,
		&expense.Description, &expense.Location, &coordinates, &expense.PaymentMethod,
		&expense.Notes, &expenseDate, &expense.CreatedAt, &expense.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: expense", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}

	unmarshalColumn(coordinates, &expense.Coordinates)
	if expenseDate.Valid {
		expense.ExpenseDate = &expenseDate.Time
	}
	return &expense, nil
}

// GetExpense fetches one expense owned (through its trip) by userID.
func (s *Store) GetExpense(ctx context.Context, userID, expenseID string) (*Expense, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses e
		 JOIN trips t ON t.id = e.trip_id
		 WHERE e.id = ? AND t.user_id = ?`, expenseID, userID)
	return scanExpense(row)
}

// ListExpenses returns a trip's expenses, newest first.
func (s *Store) ListExpenses(ctx context.Context, userID, tripID string) ([]Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses e
		 JOIN trips t ON t.id = e.trip_id
		 WHERE e.trip_id = ? AND t.user_id = ?
		 ORDER BY e.created_at DESC`, tripID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *expense)
	}
	return expenses, rows.Err()
}

// ListUserExpenses returns expenses across every trip the user owns, newest
// first, optionally narrowed to one trip. A non-positive limit defaults to 100.
func (s *Store) ListUserExpenses(ctx context.Context, userID, tripID string, limit int) ([]Expense, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses e
		 JOIN trips t ON t.id = e.trip_id
		 WHERE t.user_id = ?`
	args := []interface{}{userID}
	if tripID != "" {
		query += ` AND e.trip_id = ?`
		args = append(args, tripID)
	}
	query += ` ORDER BY e.expense_date DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *expense)
	}
	return expenses, rows.Err()
}

// TripBudgetStats computes totals and the per-category breakdown for a trip.
func (s *Store) TripBudgetStats(ctx context.Context, userID, tripID string) (*BudgetStats, error) {
	trip, err := s.GetTrip(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.ListExpenses(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}

	stats := &BudgetStats{
		TripID:            trip.ID,
		TripTitle:         trip.Title,
		TotalBudget:       trip.BudgetTotal,
		CategoryBreakdown: map[string]float64{},
		ExpenseCount:      len(expenses),
	}
	for _, expense := range expenses {
		stats.TotalExpenses += expense.Amount
		stats.CategoryBreakdown[expense.Category] += expense.Amount
	}

	if trip.BudgetTotal != nil {
		remaining := *trip.BudgetTotal - stats.TotalExpenses
		stats.RemainingBudget = &remaining
		if *trip.BudgetTotal > 0 {
			usage := stats.TotalExpenses / *trip.BudgetTotal * 100
			stats.BudgetUsagePercent = &usage
		}
	}

	return stats, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
