package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// ScheduleItemRepo defines the persistence operations for schedule items.
// Every operation is scoped by tripID so an item can only be reached through
// the trip that owns it.
type ScheduleItemRepo interface {
	// Create inserts an item. A zero ID is replaced with a fresh UUID; callers
	// that need to recognise the echo of their own insert assign one up front.
	Create(ctx context.Context, item domain.ScheduleItem) (domain.ScheduleItem, error)

	// GetByID returns domain.ErrNotFound if the item does not exist under tripID.
	GetByID(ctx context.Context, tripID, id uuid.UUID) (domain.ScheduleItem, error)

	// ListByTrip returns all items of a trip ordered by visit_date, then
	// order_index, then id. Always non-nil.
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.ScheduleItem, error)

	// ListByDay returns one day's items ordered by order_index, then id.
	ListByDay(ctx context.Context, tripID uuid.UUID, day domain.DayKey) ([]domain.ScheduleItem, error)

	// ListPlacedByCouple returns the items with coordinates across every trip
	// of a couple, or of the one trip tripID when it is non-nil. Ordered by
	// trip start_date, then visit_date, then order_index. Always non-nil.
	ListPlacedByCouple(ctx context.Context, coupleID uuid.UUID, tripID *uuid.UUID) ([]domain.PlacedItem, error)

	// Update applies the non-nil fields of patch and returns the stored row.
	// Returns domain.ErrNotFound if the item does not exist under tripID.
	Update(ctx context.Context, tripID, id uuid.UUID, patch domain.ItemPatch) (domain.ScheduleItem, error)

	// Delete removes one item. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, tripID, id uuid.UUID) error

	// ApplyOrder writes all order_index changes in one transaction, in the
	// given order. Either every write lands or none does.
	ApplyOrder(ctx context.Context, tripID uuid.UUID, writes []domain.OrderWrite) error

	// DeleteAndApplyOrder removes an item and writes the compaction of its
	// day in one transaction.
	DeleteAndApplyOrder(ctx context.Context, tripID, id uuid.UUID, writes []domain.OrderWrite) error
}

type pgScheduleItemRepo struct {
	db db
}

// NewScheduleItemRepo constructs a ScheduleItemRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewScheduleItemRepo(db db) ScheduleItemRepo {
	return &pgScheduleItemRepo{db: db}
}

const itemColumns = `id, trip_id, place_name, place_address, place_phone, latitude, longitude,
	visit_date, COALESCE(visit_time::text, ''), memo, order_index, created_by, created_at`

// placedColumns is itemColumns qualified for a join on schedule_items s.
const placedColumns = `s.id, s.trip_id, s.place_name, s.place_address, s.place_phone, s.latitude, s.longitude,
	s.visit_date, COALESCE(s.visit_time::text, ''), s.memo, s.order_index, s.created_by, s.created_at`

func (r *pgScheduleItemRepo) Create(ctx context.Context, item domain.ScheduleItem) (domain.ScheduleItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	q := `
		INSERT INTO schedule_items (id, trip_id, place_name, place_address, place_phone,
			latitude, longitude, visit_date, visit_time, memo, order_index, created_by)
		VALUES (@id, @trip_id, @place_name, @place_address, @place_phone,
			@latitude, @longitude, @visit_date, NULLIF(@visit_time, '')::time, @memo, @order_index, @created_by)
		RETURNING ` + itemColumns

	args := pgx.NamedArgs{
		"id":            item.ID,
		"trip_id":       item.TripID,
		"place_name":    item.PlaceName,
		"place_address": item.PlaceAddress,
		"place_phone":   item.PlacePhone,
		"latitude":      item.Latitude, // nil becomes NULL
		"longitude":     item.Longitude,
		"visit_date":    item.VisitDate.Time(),
		"visit_time":    item.VisitTime,
		"memo":          item.Memo,
		"order_index":   item.OrderIndex,
		"created_by":    item.CreatedBy,
	}

	result, err := scanItem(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.ScheduleItem{}, fmt.Errorf("repo.ScheduleItemRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgScheduleItemRepo) GetByID(ctx context.Context, tripID, id uuid.UUID) (domain.ScheduleItem, error) {
	q := `SELECT ` + itemColumns + ` FROM schedule_items WHERE id = @id AND trip_id = @trip_id`

	result, err := scanItem(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "trip_id": tripID}))
	if err != nil {
		return domain.ScheduleItem{}, fmt.Errorf("repo.ScheduleItemRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgScheduleItemRepo) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.ScheduleItem, error) {
	q := `
		SELECT ` + itemColumns + `
		FROM schedule_items
		WHERE trip_id = @trip_id
		ORDER BY visit_date, order_index, id`

	items, err := r.list(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.ScheduleItemRepo.ListByTrip: %w", err)
	}
	return items, nil
}

func (r *pgScheduleItemRepo) ListByDay(ctx context.Context, tripID uuid.UUID, day domain.DayKey) ([]domain.ScheduleItem, error) {
	q := `
		SELECT ` + itemColumns + `
		FROM schedule_items
		WHERE trip_id = @trip_id AND visit_date = @visit_date
		ORDER BY order_index, id`

	items, err := r.list(ctx, q, pgx.NamedArgs{"trip_id": tripID, "visit_date": day.Time()})
	if err != nil {
		return nil, fmt.Errorf("repo.ScheduleItemRepo.ListByDay: %w", err)
	}
	return items, nil
}

func (r *pgScheduleItemRepo) ListPlacedByCouple(ctx context.Context, coupleID uuid.UUID, tripID *uuid.UUID) ([]domain.PlacedItem, error) {
	q := `
		SELECT ` + placedColumns + `, t.title
		FROM schedule_items s
		JOIN trips t ON t.id = s.trip_id
		WHERE t.couple_id = @couple_id
		  AND (@trip_id::uuid IS NULL OR t.id = @trip_id)
		  AND s.latitude IS NOT NULL AND s.longitude IS NOT NULL
		ORDER BY t.start_date, t.id, s.visit_date, s.order_index, s.id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"couple_id": coupleID, "trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.ScheduleItemRepo.ListPlacedByCouple: %w", err)
	}
	defer rows.Close()

	placed := []domain.PlacedItem{}
	for rows.Next() {
		var p domain.PlacedItem
		it, err := scanItem(rows, &p.TripTitle)
		if err != nil {
			return nil, fmt.Errorf("repo.ScheduleItemRepo.ListPlacedByCouple: scan: %w", err)
		}
		p.ScheduleItem = it
		placed = append(placed, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ScheduleItemRepo.ListPlacedByCouple: rows: %w", err)
	}
	return placed, nil
}

func (r *pgScheduleItemRepo) Update(ctx context.Context, tripID, id uuid.UUID, patch domain.ItemPatch) (domain.ScheduleItem, error) {
	// visit_time needs an explicit flag: a nil pointer means "keep", while an
	// empty string means "clear".
	q := `
		UPDATE schedule_items
		SET place_name  = COALESCE(@place_name, place_name),
		    visit_time  = CASE WHEN @set_visit_time THEN NULLIF(@visit_time, '')::time ELSE visit_time END,
		    memo        = COALESCE(@memo, memo),
		    order_index = COALESCE(@order_index, order_index)
		WHERE id = @id AND trip_id = @trip_id
		RETURNING ` + itemColumns

	var visitTime string
	if patch.VisitTime != nil {
		visitTime = *patch.VisitTime
	}
	args := pgx.NamedArgs{
		"id":             id,
		"trip_id":        tripID,
		"place_name":     patch.PlaceName,
		"set_visit_time": patch.VisitTime != nil,
		"visit_time":     visitTime,
		"memo":           patch.Memo,
		"order_index":    patch.OrderIndex,
	}

	result, err := scanItem(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.ScheduleItem{}, fmt.Errorf("repo.ScheduleItemRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgScheduleItemRepo) Delete(ctx context.Context, tripID, id uuid.UUID) error {
	if err := deleteItem(ctx, r.db, tripID, id); err != nil {
		return fmt.Errorf("repo.ScheduleItemRepo.Delete: %w", err)
	}
	return nil
}

func (r *pgScheduleItemRepo) ApplyOrder(ctx context.Context, tripID uuid.UUID, writes []domain.OrderWrite) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return applyOrder(ctx, tx, tripID, writes)
	})
	if err != nil {
		return fmt.Errorf("repo.ScheduleItemRepo.ApplyOrder: %w", err)
	}
	return nil
}

func (r *pgScheduleItemRepo) DeleteAndApplyOrder(ctx context.Context, tripID, id uuid.UUID, writes []domain.OrderWrite) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := deleteItem(ctx, tx, tripID, id); err != nil {
			return err
		}
		return applyOrder(ctx, tx, tripID, writes)
	})
	if err != nil {
		return fmt.Errorf("repo.ScheduleItemRepo.DeleteAndApplyOrder: %w", err)
	}
	return nil
}

func (r *pgScheduleItemRepo) list(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.ScheduleItem, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.ScheduleItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return items, nil
}

func deleteItem(ctx context.Context, db db, tripID, id uuid.UUID) error {
	tag, err := db.Exec(ctx, `DELETE FROM schedule_items WHERE id = @id AND trip_id = @trip_id`,
		pgx.NamedArgs{"id": id, "trip_id": tripID})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func applyOrder(ctx context.Context, tx pgx.Tx, tripID uuid.UUID, writes []domain.OrderWrite) error {
	const q = `UPDATE schedule_items SET order_index = @order_index WHERE id = @id AND trip_id = @trip_id`
	for _, w := range writes {
		tag, err := tx.Exec(ctx, q, pgx.NamedArgs{"id": w.ID, "trip_id": tripID, "order_index": w.OrderIndex})
		if err != nil {
			return fmt.Errorf("item %s: %w", w.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("item %s: %w", w.ID, domain.ErrNotFound)
		}
	}
	return nil
}

// scanItem reads the itemColumns of one row; extra receives any columns
// selected after them.
func scanItem(s scanner, extra ...any) (domain.ScheduleItem, error) {
	var (
		it                  domain.ScheduleItem
		id, trip, createdBy pgtype.UUID
		visitDate           pgtype.Date
	)

	dest := []any{&id, &trip, &it.PlaceName, &it.PlaceAddress, &it.PlacePhone,
		&it.Latitude, &it.Longitude, &visitDate, &it.VisitTime, &it.Memo,
		&it.OrderIndex, &createdBy, &it.CreatedAt}
	err := s.Scan(append(dest, extra...)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ScheduleItem{}, domain.ErrNotFound
		}
		return domain.ScheduleItem{}, err
	}

	it.ID = uuid.UUID(id.Bytes)
	it.TripID = uuid.UUID(trip.Bytes)
	it.CreatedBy = uuid.UUID(createdBy.Bytes)
	it.VisitDate = domain.DayKeyOf(visitDate.Time)
	return it, nil
}
