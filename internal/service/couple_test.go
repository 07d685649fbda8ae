package service_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/service"
)

func noCouple(_ context.Context, _ uuid.UUID) (domain.Couple, error) {
	return domain.Couple{}, domain.ErrNotFound
}

// ---- Create tests ----------------------------------------------------------

func TestCoupleService_Create(t *testing.T) {
	var gotCode string
	r := &mockCoupleRepo{
		getByUser: noCouple,
		create: func(_ context.Context, user1ID uuid.UUID, code string) (domain.Couple, error) {
			gotCode = code
			return domain.Couple{ID: uuid.New(), User1ID: user1ID, InviteCode: code}, nil
		},
	}
	svc := service.NewCoupleService(r)

	got, err := svc.Create(context.Background(), userA)

	require.NoError(t, err)
	assert.Equal(t, userA, got.User1ID)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{8}$`), gotCode)
}

func TestCoupleService_Create_RetriesCodeCollision(t *testing.T) {
	attempts := 0
	r := &mockCoupleRepo{
		getByUser: noCouple,
		create: func(_ context.Context, user1ID uuid.UUID, code string) (domain.Couple, error) {
			attempts++
			if attempts < 3 {
				return domain.Couple{}, domain.ErrConflict
			}
			return domain.Couple{ID: uuid.New(), User1ID: user1ID, InviteCode: code}, nil
		},
	}
	svc := service.NewCoupleService(r)

	_, err := svc.Create(context.Background(), userA)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestCoupleService_Create_AlreadyInCouple(t *testing.T) {
	svc := service.NewCoupleService(couplesOf(pairedCouple()))

	_, err := svc.Create(context.Background(), userA)

	assert.ErrorIs(t, err, domain.ErrConflict)
}

// ---- Join tests ------------------------------------------------------------

func openCouple() domain.Couple {
	return domain.Couple{ID: uuid.New(), User1ID: userA, InviteCode: "QWER2345"}
}

func joinRepo(c domain.Couple) *mockCoupleRepo {
	return &mockCoupleRepo{
		getByUser: noCouple,
		getByInviteCode: func(_ context.Context, code string) (domain.Couple, error) {
			if code == c.InviteCode {
				return c, nil
			}
			return domain.Couple{}, domain.ErrNotFound
		},
		setPartner: func(_ context.Context, id, user2ID uuid.UUID) (domain.Couple, error) {
			out := c
			out.User2ID = &user2ID
			return out, nil
		},
	}
}

func TestCoupleService_Join(t *testing.T) {
	svc := service.NewCoupleService(joinRepo(openCouple()))

	got, err := svc.Join(context.Background(), userB, "  qwer2345 ")

	require.NoError(t, err)
	require.NotNil(t, got.User2ID)
	assert.Equal(t, userB, *got.User2ID)
	assert.True(t, got.Paired())
}

func TestCoupleService_Join_Rejections(t *testing.T) {
	paired := openCouple()
	paired.User2ID = &userB

	cases := []struct {
		name   string
		couple domain.Couple
		user   uuid.UUID
		code   string
		want   error
	}{
		{"unknown code", openCouple(), userB, "ZZZZ2345", domain.ErrNotFound},
		{"own code", openCouple(), userA, "QWER2345", domain.ErrValidation},
		{"already paired", paired, stranger, "QWER2345", domain.ErrConflict},
		{"malformed code", openCouple(), userB, "abc", domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := service.NewCoupleService(joinRepo(tc.couple))

			_, err := svc.Join(context.Background(), tc.user, tc.code)

			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCoupleService_Join_UserAlreadyInAnotherCouple(t *testing.T) {
	r := joinRepo(openCouple())
	r.getByUser = func(_ context.Context, _ uuid.UUID) (domain.Couple, error) {
		return domain.Couple{ID: uuid.New(), User1ID: userB}, nil
	}
	svc := service.NewCoupleService(r)

	_, err := svc.Join(context.Background(), userB, "QWER2345")

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCoupleService_Mine(t *testing.T) {
	couple := pairedCouple()
	svc := service.NewCoupleService(couplesOf(couple))

	got, err := svc.Mine(context.Background(), userB)
	require.NoError(t, err)
	assert.Equal(t, couple.ID, got.ID)

	_, err = svc.Mine(context.Background(), stranger)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
