package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/duotrip/backend/internal/domain"
	"github.com/pkordes/duotrip/backend/internal/repo"
)

func TestCoupleRepo_CreateAndLookup(t *testing.T) {
	r := repo.NewCoupleRepo(newTestTx(t))
	ctx := context.Background()
	user := uuid.New()

	created, err := r.Create(ctx, user, "AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, user, created.User1ID)
	assert.Nil(t, created.User2ID)

	byCode, err := r.GetByInviteCode(ctx, "AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byCode.ID)

	byUser, err := r.GetByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUser.ID)
}

func TestCoupleRepo_Create_DuplicateCode(t *testing.T) {
	r := repo.NewCoupleRepo(newTestTx(t))
	ctx := context.Background()
	_, err := r.Create(ctx, uuid.New(), "SAMECODE")
	require.NoError(t, err)

	_, err = r.Create(ctx, uuid.New(), "SAMECODE")

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCoupleRepo_SetPartner(t *testing.T) {
	r := repo.NewCoupleRepo(newTestTx(t))
	ctx := context.Background()
	created, err := r.Create(ctx, uuid.New(), "JOINME01")
	require.NoError(t, err)
	partner := uuid.New()

	got, err := r.SetPartner(ctx, created.ID, partner)
	require.NoError(t, err)
	require.NotNil(t, got.User2ID)
	assert.Equal(t, partner, *got.User2ID)

	_, err = r.SetPartner(ctx, created.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrConflict, "second seat is already taken")

	byPartner, err := r.GetByUser(ctx, partner)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byPartner.ID)
}

func TestCoupleRepo_GetByInviteCode_NotFound(t *testing.T) {
	r := repo.NewCoupleRepo(newTestTx(t))

	_, err := r.GetByInviteCode(context.Background(), "NOPE0000")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
