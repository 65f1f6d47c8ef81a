// Package store persists users, trips, itineraries, and expenses in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding all travel data.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.Initialize(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

// Initialize creates the necessary tables
func (s *Store) Initialize(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL,
			avatar_url TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trips (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			destination TEXT,
			start_date TIMESTAMP,
			end_date TIMESTAMP,
			duration_days INTEGER DEFAULT 1,
			budget_total REAL,
			currency TEXT DEFAULT 'CNY',
			status TEXT DEFAULT 'draft',
			is_public BOOLEAN DEFAULT 0,
			tags TEXT,
			preferences TEXT,
			traveler_count INTEGER DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS itineraries (
			id TEXT PRIMARY KEY,
			trip_id TEXT NOT NULL,
			day_number INTEGER NOT NULL,
			date TIMESTAMP,
			title TEXT,
			description TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS itinerary_items (
			id TEXT PRIMARY KEY,
			itinerary_id TEXT NOT NULL,
			poi_id TEXT,
			name TEXT NOT NULL,
			description TEXT,
			address TEXT,
			coordinates TEXT,
			category TEXT,
			start_time TEXT,
			end_time TEXT,
			estimated_duration INTEGER,
			rating REAL,
			price_level TEXT,
			phone TEXT,
			website TEXT,
			opening_hours TEXT,
			order_index INTEGER DEFAULT 0,
			is_completed BOOLEAN DEFAULT 0,
			notes TEXT,
			estimated_cost REAL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			FOREIGN KEY (itinerary_id) REFERENCES itineraries(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id TEXT PRIMARY KEY,
			trip_id TEXT NOT NULL,
			itinerary_id TEXT,
			itinerary_item_id TEXT,
			amount REAL NOT NULL,
			currency TEXT DEFAULT 'CNY',
			category TEXT NOT NULL,
			description TEXT,
			location TEXT,
			coordinates TEXT,
			payment_method TEXT,
			notes TEXT,
			expense_date TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE,
			FOREIGN KEY (itinerary_id) REFERENCES itineraries(id) ON DELETE SET NULL,
			FOREIGN KEY (itinerary_item_id) REFERENCES itinerary_items(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS budgets (
			id TEXT PRIMARY KEY,
			trip_id TEXT NOT NULL,
			total_budget REAL NOT NULL,
			currency TEXT DEFAULT 'CNY',
			categories TEXT,
			is_active BOOLEAN DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_user_id ON trips(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_itineraries_trip_id ON itineraries(trip_id)`,
		`CREATE INDEX IF NOT EXISTS idx_itinerary_items_itinerary_id ON itinerary_items(itinerary_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_trip_id ON expenses(trip_id)`,
		`CREATE INDEX IF NOT EXISTS idx_budgets_trip_id ON budgets(trip_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
