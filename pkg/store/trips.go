package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripflow/tripflow/pkg/domain"
)

func marshalColumn(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal column: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalColumn(raw sql.NullString, target interface{}) {
	if !raw.Valid || raw.String == "" {
		return
	}
	// Corrupt JSON in an optional column degrades to the zero value.
	_ = json.Unmarshal([]byte(raw.String), target)
}

// CreateTrip inserts a trip, filling in id, defaults, and timestamps.
func (s *Store) CreateTrip(ctx context.Context, trip *Trip) error {
	if trip.UserID == "" || trip.Title == "" {
		return fmt.Errorf("%w: user_id and title are required", domain.ErrInvalidInput)
	}

	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if trip.DurationDays <= 0 {
		trip.DurationDays = 1
	}
	if trip.Currency == "" {
		trip.Currency = "CNY"
	}
	if trip.Status == "" {
		trip.Status = TripStatusDraft
	}
	if trip.TravelerCount <= 0 {
		trip.TravelerCount = 1
	}
	now := time.Now().UTC()
	trip.CreatedAt = now
	trip.UpdatedAt = now

	tags, err := marshalColumn(trip.Tags)
	if err != nil {
		return err
	}
	preferences, err := marshalColumn(trip.Preferences)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trips (id, user_id, title, description, destination, start_date, end_date,
			duration_days, budget_total, currency, status, is_public, tags, preferences,
			traveler_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trip.ID, trip.UserID, trip.Title, trip.Description, trip.Destination,
		trip.StartDate, trip.EndDate, trip.DurationDays, trip.BudgetTotal,
		trip.Currency, trip.Status, trip.IsPublic, tags, preferences,
		trip.TravelerCount, trip.CreatedAt, trip.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

const tripColumns = `id, user_id, title, COALESCE(description, ''), COALESCE(destination, ''),
	start_date, end_date, duration_days, budget_total, currency, status, is_public,
	tags, preferences, traveler_count, created_at, updated_at`

func scanTrip(scanner interface {
	Scan(dest ...interface{}) error
}) (*Trip, error) {
	var trip Trip
	var startDate, endDate sql.NullTime
	var budget sql.NullFloat64
	var tags, preferences sql.NullString

	err := scanner.Scan(&trip.ID, &trip.UserID, &trip.Title, &trip.Description,
		&trip.Destination, &startDate, &endDate, &trip.DurationDays, &budget,
		&trip.Currency, &trip.Status, &trip.IsPublic, &tags, &preferences,
		&trip.TravelerCount, &trip.CreatedAt, &trip.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: trip", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan trip: %w", err)
	}

	if startDate.Valid {
		trip.StartDate = &startDate.Time
	}
	if endDate.Valid {
		trip.EndDate = &endDate.Time
	}
	if budget.Valid {
		trip.BudgetTotal = &budget.Float64
	}
	unmarshalColumn(tags, &trip.Tags)
	unmarshalColumn(preferences, &trip.Preferences)

	return &trip, nil
}

// GetTrip fetches one trip owned by userID.
func (s *Store) GetTrip(ctx context.Context, tripID, userID string) (*Trip, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id = ? AND user_id = ?`, tripID, userID)
	return scanTrip(row)
}

// ListTrips returns the user's trips, newest first. Status "" or "all"
// matches every status.
func (s *Store) ListTrips(ctx context.Context, userID, status string, limit int) ([]Trip, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + tripColumns + ` FROM trips WHERE user_id = ?`
	args := []interface{}{userID}
	if status != "" && status != "all" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *trip)
	}
	return trips, rows.Err()
}

// MostRecentTrip returns the user's newest trip, if any.
func (s *Store) MostRecentTrip(ctx context.Context, userID string) (*Trip, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`, userID)
	return scanTrip(row)
}

// UpdateTripStatus transitions a trip to a new lifecycle status.
func (s *Store) UpdateTripStatus(ctx context.Context, tripID, userID, status string) error {
	valid := map[string]bool{
		TripStatusDraft: true, TripStatusPlanned: true, TripStatusActive: true,
		TripStatusCompleted: true, TripStatusCancelled: true,
	}
	if !valid[status] {
		return fmt.Errorf("%w: invalid trip status %q", domain.ErrInvalidInput, status)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE trips SET status = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		status, time.Now().UTC(), tripID, userID)
	if err != nil {
		return fmt.Errorf("failed to update trip status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: trip", domain.ErrNotFound)
	}
	return nil
}

// DeleteTrip removes a trip and, via cascade, its itineraries and expenses.
func (s *Store) DeleteTrip(ctx context.Context, tripID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM trips WHERE id = ? AND user_id = ?`, tripID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: trip", domain.ErrNotFound)
	}
	return nil
}

// GetOrCreateItinerary returns the itinerary row for a day, creating it on
// first use.
func (s *Store) GetOrCreateItinerary(ctx context.Context, tripID string, dayNumber int) (*Itinerary, error) {
	if dayNumber <= 0 {
		return nil, fmt.Errorf("%w: day_number must be positive", domain.ErrInvalidInput)
	}

	itinerary, err := s.getItinerary(ctx, tripID, dayNumber)
	if err == nil {
		return itinerary, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	itinerary = &Itinerary{
		ID:        uuid.New().String(),
		TripID:    tripID,
		DayNumber: dayNumber,
		Title:     fmt.Sprintf("第 %d 天", dayNumber),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO itineraries (id, trip_id, day_number, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		itinerary.ID, itinerary.TripID, itinerary.DayNumber, itinerary.Title,
		itinerary.CreatedAt, itinerary.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create itinerary: %w", err)
	}
	return itinerary, nil
}

func (s *Store) getItinerary(ctx context.Context, tripID string, dayNumber int) (*Itinerary, error) {
	var itinerary Itinerary
	var date sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, trip_id, day_number, date, COALESCE(title, ''), COALESCE(description, ''),
			created_at, updated_at
		 FROM itineraries WHERE trip_id = ? AND day_number = ?`, tripID, dayNumber).
		Scan(&itinerary.ID, &itinerary.TripID, &itinerary.DayNumber, &date,
			&itinerary.Title, &itinerary.Description, &itinerary.CreatedAt, &itinerary.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: itinerary", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan itinerary: %w", err)
	}
	if date.Valid {
		itinerary.Date = &date.Time
	}
	return &itinerary, nil
}

// AddItineraryItem appends an activity to a day, assigning the next order
// index.
func (s *Store) AddItineraryItem(ctx context.Context, item *ItineraryItem) error {
	if item.ItineraryID == "" || item.Name == "" {
		return fmt.Errorf("%w: itinerary_id and name are required", domain.ErrInvalidInput)
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	var maxOrder int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM itinerary_items WHERE itinerary_id = ?`, item.ItineraryID).
		Scan(&maxOrder)
	if err != nil {
		return fmt.Errorf("failed to count itinerary items: %w", err)
	}
	item.OrderIndex = maxOrder

	coordinates, err := marshalColumn(item.Coordinates)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO itinerary_items (id, itinerary_id, poi_id, name, description, address,
			coordinates, category, start_time, end_time, estimated_duration, rating,
			price_level, phone, website, opening_hours, order_index, is_completed, notes,
			estimated_cost, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ItineraryID, item.POIID, item.Name, item.Description, item.Address,
		coordinates, item.Category, item.StartTime, item.EndTime, item.EstimatedDuration,
		item.Rating, item.PriceLevel, item.Phone, item.Website, item.OpeningHours,
		item.OrderIndex, item.IsCompleted, item.Notes, item.EstimatedCost,
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to add itinerary item: %w", err)
	}
	return nil
}

// ListItineraries returns every day of a trip in order, items included.
func (s *Store) ListItineraries(ctx context.Context, tripID string) ([]Itinerary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trip_id, day_number, date, COALESCE(title, ''), COALESCE(description, ''),
			created_at, updated_at
		 FROM itineraries WHERE trip_id = ? ORDER BY day_number`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list itineraries: %w", err)
	}
	defer rows.Close()

	var itineraries []Itinerary
	for rows.Next() {
		var itinerary Itinerary
		var date sql.NullTime
		if err := rows.Scan(&itinerary.ID, &itinerary.TripID, &itinerary.DayNumber, &date,
			&itinerary.Title, &itinerary.Description, &itinerary.CreatedAt, &itinerary.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan itinerary: %w", err)
		}
		if date.Valid {
			itinerary.Date = &date.Time
		}
		itineraries = append(itineraries, itinerary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range itineraries {
		items, err := s.listItineraryItems(ctx, itineraries[i].ID)
		if err != nil {
			return nil, err
		}
		itineraries[i].Items = items
	}
	return itineraries, nil
}

func (s *Store) listItineraryItems(ctx context.Context, itineraryID string) ([]ItineraryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, itinerary_id, COALESCE(poi_id, ''), name, COALESCE(description, ''),
			COALESCE(address, ''), coordinates, COALESCE(category, ''),
			COALESCE(start_time, ''), COALESCE(end_time, ''),
			COALESCE(estimated_duration, 0), COALESCE(rating, 0),
			COALESCE(price_level, ''), COALESCE(phone, ''), COALESCE(website, ''),
			COALESCE(opening_hours, ''), order_index, is_completed, COALESCE(notes, ''),
			estimated_cost, created_at, updated_at
		 FROM itinerary_items WHERE itinerary_id = ? ORDER BY order_index`, itineraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list itinerary items: %w", err)
	}
	defer rows.Close()

	var items []ItineraryItem
	for rows.Next() {
		var item ItineraryItem
		var coordinates sql.NullString
		var cost sql.NullFloat64
		if err := rows.Scan(&item.ID, &item.ItineraryID, &item.POIID, &item.Name,
			&item.Description, &item.Address, &coordinates, &item.Category,
			&item.StartTime, &item.EndTime, &item.EstimatedDuration, &item.Rating,
			&item.PriceLevel, &item.Phone, &item.Website, &item.OpeningHours,
			&item.OrderIndex, &item.IsCompleted, &item.Notes, &cost,
			&item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan itinerary item: %w", err)
		}
		unmarshalColumn(coordinates, &item.Coordinates)
		if cost.Valid {
			item.EstimatedCost = &cost.Float64
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateTrip applies a partial update to a trip. Unknown fields are ignored
// so callers can pass request bodies straight through.
func (s *Store) UpdateTrip(ctx context.Context, tripID, userID string, updates map[string]interface{}) (*Trip, error) {
	allowed := map[string]bool{
		"title": true, "description": true, "destination": true,
		"start_date": true, "end_date": true, "duration_days": true,
		"budget_total": true, "currency": true, "status": true,
		"is_public": true, "tags": true, "preferences": true,
		"traveler_count": true,
	}

	columns := make([]string, 0, len(updates))
	args := make([]interface{}, 0, len(updates)+3)
	for field, value := range updates {
		if !allowed[field] {
			continue
		}
		switch field {
		case "tags", "preferences":
			marshaled, err := marshalColumn(value)
			if err != nil {
				return nil, err
			}
			value = marshaled
		case "start_date", "end_date":
			parsed, err := parseDateValue(value)
			if err != nil {
				return nil, err
			}
			value = parsed
		}
		columns = append(columns, field+" = ?")
		args = append(args, value)
	}
	if len(columns) == 0 {
		return s.GetTrip(ctx, tripID, userID)
	}

	sort.Strings(columns)
	args = append(args, time.Now().UTC(), tripID, userID)

	result, err := s.db.ExecContext(ctx,
		`UPDATE trips SET `+strings.Join(columns, ", ")+`, updated_at = ? WHERE id = ? AND user_id = ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: trip", domain.ErrNotFound)
	}
	return s.GetTrip(ctx, tripID, userID)
}

func parseDateValue(value interface{}) (interface{}, error) {
	raw, ok := value.(string)
	if !ok {
		return value, nil
	}
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid date %q", domain.ErrInvalidInput, raw)
}

// DestinationCount is one entry in the trip overview ranking.
type DestinationCount struct {
	Destination string `json:"destination"`
	Count       int    `json:"count"`
}

// TripOverview aggregates a user's trips and spending.
type TripOverview struct {
	TotalTrips          int                `json:"total_trips"`
	ActiveTrips         int                `json:"active_trips"`
	CompletedTrips      int                `json:"completed_trips"`
	TotalExpenses       float64            `json:"total_expenses"`
	AverageTripDuration float64            `json:"average_trip_duration"`
	TopDestinations     []DestinationCount `json:"most_visited_destinations"`
}

// TripOverviewStats computes the cross-trip overview for a user.
func (s *Store) TripOverviewStats(ctx context.Context, userID string) (*TripOverview, error) {
	overview := &TripOverview{}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(duration_days), 0)
		 FROM trips WHERE user_id = ?`, userID).
		Scan(&overview.TotalTrips, &overview.ActiveTrips, &overview.CompletedTrips,
			&overview.AverageTripDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate trips: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(e.amount), 0)
		 FROM expenses e JOIN trips t ON t.id = e.trip_id
		 WHERE t.user_id = ?`, userID).Scan(&overview.TotalExpenses)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT destination, COUNT(*) AS n FROM trips
		 WHERE user_id = ? AND destination IS NOT NULL AND destination != ''
		 GROUP BY destination ORDER BY n DESC, destination LIMIT 5`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to rank destinations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var dc DestinationCount
		if err := rows.Scan(&dc.Destination, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan destination: %w", err)
		}
		overview.TopDestinations = append(overview.TopDestinations, dc)
	}
	return overview, rows.Err()
}
