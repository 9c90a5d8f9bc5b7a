// Package deskservice is a sqlite-backed implementation of the desk booking service API,
// used for local development and integration tests of the UI.
package deskservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"deskbook/internal/config"
	"deskbook/internal/models"
)

var (
	ErrDeskNotFound = errors.New("desk not found")
	ErrInvalidDate  = errors.New("invalid date; expected YYYY-MM-DD")
	ErrEmptyName    = errors.New("employee_name is required")
)

// Store persists desks and bookings.
type Store struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// Open initializes the database at path and creates tables if they don't exist.
func Open(path string, logger *zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{DB: db, path: path, logger: logger}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return s, nil
}

// Path is the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS desks (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			desk_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			employee_name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (desk_id, date),
			FOREIGN KEY (desk_id) REFERENCES desks(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
	}
	for _, q := range queries {
		if _, err := s.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SyncDesks upserts the desks from desks.yaml. Desks missing from the file are deactivated
// so their booking history survives.
func (s *Store) SyncDesks(ctx context.Context, desks []config.DeskConfig) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE desks SET is_active = 0`); err != nil {
		return fmt.Errorf("deactivate desks: %w", err)
	}
	for _, d := range desks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO desks (id, name, is_active, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, is_active = excluded.is_active, updated_at = CURRENT_TIMESTAMP`,
			d.ID, d.Name, d.Active())
		if err != nil {
			return fmt.Errorf("upsert desk %d: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info().Int("desks", len(desks)).Msg("Desks synchronized")
	return nil
}

// ListDesks returns active desks ordered by id with their booking maps.
func (s *Store) ListDesks(ctx context.Context) ([]models.Desk, error) {
	rows, err := s.QueryContext(ctx, `SELECT id, name FROM desks WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	desks := make([]models.Desk, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		index[id] = len(desks)
		desks = append(desks, models.Desk{
			ID:       models.NumberID(id),
			Name:     name,
			Bookings: make(map[string]models.BookingStatus),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	bookingRows, err := s.QueryContext(ctx, `SELECT desk_id, date, employee_name FROM bookings`)
	if err != nil {
		return nil, err
	}
	defer bookingRows.Close()

	for bookingRows.Next() {
		var deskID int64
		var date, employee string
		if err := bookingRows.Scan(&deskID, &date, &employee); err != nil {
			return nil, err
		}
		i, ok := index[deskID]
		if !ok {
			continue
		}
		desks[i].Bookings[date] = models.BookingStatus{IsAvailable: false, EmployeeName: employee}
	}
	return desks, bookingRows.Err()
}

// Book creates or overwrites the booking of deskID on date.
func (s *Store) Book(ctx context.Context, deskID int64, employeeName, date string) error {
	if employeeName == "" {
		return ErrEmptyName
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return ErrInvalidDate
	}
	if err := s.requireDesk(ctx, deskID); err != nil {
		return err
	}

	_, err := s.ExecContext(ctx, `
		INSERT INTO bookings (desk_id, date, employee_name) VALUES (?, ?, ?)
		ON CONFLICT(desk_id, date) DO UPDATE SET employee_name = excluded.employee_name, created_at = CURRENT_TIMESTAMP`,
		deskID, date, employeeName)
	if err != nil {
		return fmt.Errorf("book desk %d: %w", deskID, err)
	}
	return nil
}

// Cancel removes the booking of deskID on date. Cancelling a free slot is not an error.
func (s *Store) Cancel(ctx context.Context, deskID int64, date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return ErrInvalidDate
	}
	if err := s.requireDesk(ctx, deskID); err != nil {
		return err
	}

	if _, err := s.ExecContext(ctx, `DELETE FROM bookings WHERE desk_id = ? AND date = ?`, deskID, date); err != nil {
		return fmt.Errorf("cancel booking %d/%s: %w", deskID, date, err)
	}
	return nil
}

func (s *Store) requireDesk(ctx context.Context, deskID int64) error {
	var active bool
	err := s.QueryRowContext(ctx, `SELECT is_active FROM desks WHERE id = ?`, deskID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return ErrDeskNotFound
	}
	return err
}
