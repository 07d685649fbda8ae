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

// CoupleRepo defines the persistence operations for Couples.
type CoupleRepo interface {
	// Create inserts a couple with only its first member set.
	// Returns domain.ErrConflict if the invite code is already taken.
	Create(ctx context.Context, user1ID uuid.UUID, inviteCode string) (domain.Couple, error)

	// GetByID returns domain.ErrNotFound if no couple has that ID.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Couple, error)

	// GetByUser returns the couple userID belongs to, in either seat.
	// Returns domain.ErrNotFound if the user has no couple.
	GetByUser(ctx context.Context, userID uuid.UUID) (domain.Couple, error)

	// GetByInviteCode returns domain.ErrNotFound for an unknown code.
	GetByInviteCode(ctx context.Context, code string) (domain.Couple, error)

	// SetPartner fills the second seat. It only succeeds while the seat is
	// empty; returns domain.ErrConflict otherwise.
	SetPartner(ctx context.Context, id, user2ID uuid.UUID) (domain.Couple, error)
}

type pgCoupleRepo struct {
	db db
}

// NewCoupleRepo constructs a CoupleRepo backed by the provided db connection.
func NewCoupleRepo(db db) CoupleRepo {
	return &pgCoupleRepo{db: db}
}

const coupleColumns = `id, user1_id, user2_id, invite_code, created_at`

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

func (r *pgCoupleRepo) Create(ctx context.Context, user1ID uuid.UUID, inviteCode string) (domain.Couple, error) {
	q := `
		INSERT INTO couples (user1_id, invite_code)
		VALUES (@user1_id, @invite_code)
		RETURNING ` + coupleColumns

	result, err := scanCouple(r.db.QueryRow(ctx, q, pgx.NamedArgs{"user1_id": user1ID, "invite_code": inviteCode}))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Couple{}, fmt.Errorf("repo.CoupleRepo.Create: invite code taken: %w", domain.ErrConflict)
		}
		return domain.Couple{}, fmt.Errorf("repo.CoupleRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgCoupleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Couple, error) {
	q := `SELECT ` + coupleColumns + ` FROM couples WHERE id = @id`

	result, err := scanCouple(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Couple{}, fmt.Errorf("repo.CoupleRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgCoupleRepo) GetByUser(ctx context.Context, userID uuid.UUID) (domain.Couple, error) {
	// A user may have an unpaired invite of their own and also have joined
	// someone else's; the paired couple wins.
	q := `
		SELECT ` + coupleColumns + `
		FROM couples
		WHERE user1_id = @user_id OR user2_id = @user_id
		ORDER BY (user2_id IS NOT NULL) DESC, created_at DESC
		LIMIT 1`

	result, err := scanCouple(r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID}))
	if err != nil {
		return domain.Couple{}, fmt.Errorf("repo.CoupleRepo.GetByUser: %w", err)
	}
	return result, nil
}

func (r *pgCoupleRepo) GetByInviteCode(ctx context.Context, code string) (domain.Couple, error) {
	q := `SELECT ` + coupleColumns + ` FROM couples WHERE invite_code = @code`

	result, err := scanCouple(r.db.QueryRow(ctx, q, pgx.NamedArgs{"code": code}))
	if err != nil {
		return domain.Couple{}, fmt.Errorf("repo.CoupleRepo.GetByInviteCode: %w", err)
	}
	return result, nil
}

func (r *pgCoupleRepo) SetPartner(ctx context.Context, id, user2ID uuid.UUID) (domain.Couple, error) {
	q := `
		UPDATE couples
		SET user2_id = @user2_id
		WHERE id = @id AND user2_id IS NULL
		RETURNING ` + coupleColumns

	result, err := scanCouple(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "user2_id": user2ID}))
	if errors.Is(err, domain.ErrNotFound) {
		// The row exists (callers look it up first) but the seat was taken
		// between the lookup and the update.
		return domain.Couple{}, fmt.Errorf("repo.CoupleRepo.SetPartner: %w", domain.ErrConflict)
	}
	if err != nil {
		return domain.Couple{}, fmt.Errorf("repo.CoupleRepo.SetPartner: %w", err)
	}
	return result, nil
}

func scanCouple(s scanner) (domain.Couple, error) {
	var (
		c          domain.Couple
		id, u1, u2 pgtype.UUID
	)
	err := s.Scan(&id, &u1, &u2, &c.InviteCode, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Couple{}, domain.ErrNotFound
		}
		return domain.Couple{}, err
	}
	c.ID = uuid.UUID(id.Bytes)
	c.User1ID = uuid.UUID(u1.Bytes)
	if u2.Valid {
		partner := uuid.UUID(u2.Bytes)
		c.User2ID = &partner
	}
	return c, nil
}
