package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/repo"
)

// InviteCodeLength is the number of characters in a couple invite code.
const InviteCodeLength = 8

// inviteAttempts bounds retries on invite-code collisions.
const inviteAttempts = 5

// CoupleService pairs two users through a shareable invite code.
type CoupleService struct {
	couples repo.CoupleRepo
	newCode func() string
}

// NewCoupleService constructs a CoupleService backed by the provided repo.
func NewCoupleService(couples repo.CoupleRepo) *CoupleService {
	return &CoupleService{couples: couples, newCode: randomInviteCode}
}

// Create starts a couple with userID as its first member.
// Returns domain.ErrConflict if the user already belongs to a couple.
func (s *CoupleService) Create(ctx context.Context, userID uuid.UUID) (domain.Couple, error) {
	if err := s.requireSingle(ctx, userID); err != nil {
		return domain.Couple{}, fmt.Errorf("service.CoupleService.Create: %w", err)
	}

	var err error
	for range inviteAttempts {
		var c domain.Couple
		c, err = s.couples.Create(ctx, userID, s.newCode())
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			break
		}
	}
	return domain.Couple{}, fmt.Errorf("service.CoupleService.Create: %w", err)
}

// Join adds userID as the second member of the couple holding code.
//   - unknown code: domain.ErrNotFound
//   - the user's own code: domain.ErrValidation
//   - couple already paired, or user already in a couple: domain.ErrConflict
func (s *CoupleService) Join(ctx context.Context, userID uuid.UUID, code string) (domain.Couple, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != InviteCodeLength {
		return domain.Couple{}, fmt.Errorf("%w: invite code must be %d characters", domain.ErrValidation, InviteCodeLength)
	}

	c, err := s.couples.GetByInviteCode(ctx, code)
	if err != nil {
		return domain.Couple{}, fmt.Errorf("service.CoupleService.Join: %w", err)
	}
	if c.User1ID == userID {
		return domain.Couple{}, fmt.Errorf("%w: cannot join your own invite code", domain.ErrValidation)
	}
	if c.Paired() {
		return domain.Couple{}, fmt.Errorf("service.CoupleService.Join: %w: couple is already paired", domain.ErrConflict)
	}
	if err := s.requireSingle(ctx, userID); err != nil {
		return domain.Couple{}, fmt.Errorf("service.CoupleService.Join: %w", err)
	}

	joined, err := s.couples.SetPartner(ctx, c.ID, userID)
	if err != nil {
		return domain.Couple{}, fmt.Errorf("service.CoupleService.Join: %w", err)
	}
	return joined, nil
}

// Mine returns the couple userID belongs to.
func (s *CoupleService) Mine(ctx context.Context, userID uuid.UUID) (domain.Couple, error) {
	c, err := s.couples.GetByUser(ctx, userID)
	if err != nil {
		return domain.Couple{}, fmt.Errorf("service.CoupleService.Mine: %w", err)
	}
	return c, nil
}

func (s *CoupleService) requireSingle(ctx context.Context, userID uuid.UUID) error {
	_, err := s.couples.GetByUser(ctx, userID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: user already belongs to a couple", domain.ErrConflict)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

// randomInviteCode draws from crypto/rand; rand.Text uses the base32
// alphabet, a subset of [A-Z0-9].
func randomInviteCode() string {
	return rand.Text()[:InviteCodeLength]
}
