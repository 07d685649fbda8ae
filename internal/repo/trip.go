// Package repo contains all database access logic for the duotrip API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, *pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test. Begin on a
// pgx.Tx opens a savepoint, so multi-statement writes stay isolated there too.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TripRepo defines the persistence operations for Trips.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by primary key.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// ListByCouple returns one page of a couple's trips ordered by start_date
	// descending, plus the total number of trips the couple owns.
	ListByCouple(ctx context.Context, coupleID uuid.UUID, p domain.PageRequest) ([]domain.Trip, int64, error)

	// Update overwrites title, destination and dates of an existing trip.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// Delete removes a trip and, through the foreign key, all of its
	// schedule items. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, couple_id, title, destination, start_date, end_date, created_at, updated_at`

func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		INSERT INTO trips (couple_id, title, destination, start_date, end_date)
		VALUES (@couple_id, @title, @destination, @start_date, @end_date)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"couple_id":   trip.CoupleID,
		"title":       trip.Title,
		"destination": trip.Destination,
		"start_date":  trip.StartDate,
		"end_date":    trip.EndDate,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = @id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) ListByCouple(ctx context.Context, coupleID uuid.UUID, p domain.PageRequest) ([]domain.Trip, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM trips WHERE couple_id = @couple_id`,
		pgx.NamedArgs{"couple_id": coupleID}).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListByCouple: count: %w", err)
	}

	q := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE couple_id = @couple_id
		ORDER BY start_date DESC, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"couple_id": coupleID,
		"limit":     p.Limit,
		"offset":    p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListByCouple: %w", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.ListByCouple: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListByCouple: rows: %w", err)
	}
	return trips, total, nil
}

func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET title       = @title,
		    destination = @destination,
		    start_date  = @start_date,
		    end_date    = @end_date,
		    updated_at  = now()
		WHERE id = @id
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":          trip.ID,
		"title":       trip.Title,
		"destination": trip.Destination,
		"start_date":  trip.StartDate,
		"end_date":    trip.EndDate,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM trips WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t          domain.Trip
		id, couple pgtype.UUID
		start, end pgtype.Date
	)

	err := s.Scan(&id, &couple, &t.Title, &t.Destination, &start, &end, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.CoupleID = uuid.UUID(couple.Bytes)
	t.StartDate = start.Time
	t.EndDate = end.Time
	return t, nil
}
