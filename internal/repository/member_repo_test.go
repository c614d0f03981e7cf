package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"pujaledger/internal/model"
	"pujaledger/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMember(name string, active bool) *model.Member {
	return &model.Member{
		Name:        name,
		Role:        model.MemberRoleUser,
		Active:      active,
		JoiningDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemberRepository_ApplyContributionDelta(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMemberRepository(db)
	ctx := context.Background()

	m := newMember("Ravi", true)
	require.NoError(t, repo.Create(ctx, nil, m))

	require.NoError(t, repo.ApplyContributionDelta(ctx, nil, m.ID, 500))
	require.NoError(t, repo.ApplyContributionDelta(ctx, nil, m.ID, -200))
	require.NoError(t, repo.ApplyContributionDelta(ctx, nil, m.ID, 0))

	got, err := repo.GetByID(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got.Contribution)

	err = repo.ApplyContributionDelta(ctx, nil, 9999, 100)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestMemberRepository_ApplyContributionDeltaConcurrent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMemberRepository(db)
	ctx := context.Background()

	m := newMember("Concurrent", true)
	require.NoError(t, repo.Create(ctx, nil, m))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				return repo.ApplyContributionDelta(ctx, tx, m.ID, 10)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.Contribution)
}

func TestMemberRepository_UpdateFieldsIgnoresContribution(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMemberRepository(db)
	ctx := context.Background()

	m := newMember("Asha", true)
	require.NoError(t, repo.Create(ctx, nil, m))

	err := repo.UpdateFields(ctx, nil, m.ID, map[string]interface{}{
		"name":         "Asha Das",
		"contribution": 1000,
		"active":       false,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Das", got.Name)
	assert.False(t, got.Active)
	assert.Equal(t, int64(0), got.Contribution)
}

func TestMemberRepository_ListOrderAndIdentity(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMemberRepository(db)
	identities := NewIdentityRepository(db)
	ctx := context.Background()

	identity := &model.Identity{LoginName: "mgr", PasswordHash: "x", Role: model.IdentityRoleManager}
	require.NoError(t, identities.Create(ctx, nil, identity))

	first := newMember("First", true)
	require.NoError(t, repo.Create(ctx, nil, first))
	second := newMember("Second", true)
	second.Role = model.MemberRoleManager
	second.IdentityID = &identity.ID
	require.NoError(t, repo.Create(ctx, nil, second))

	members, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Second", members[0].Name)
	require.NotNil(t, members[0].Identity)
	assert.Equal(t, "mgr", members[0].Identity.LoginName)
	assert.Nil(t, members[1].Identity)
}

func TestMemberRepository_ActiveTotals(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMemberRepository(db)
	ctx := context.Background()

	a := newMember("A", true)
	b := newMember("B", true)
	c := newMember("C", false)
	for _, m := range []*model.Member{a, b, c} {
		require.NoError(t, repo.Create(ctx, nil, m))
	}
	require.NoError(t, repo.ApplyContributionDelta(ctx, nil, a.ID, 100))
	require.NoError(t, repo.ApplyContributionDelta(ctx, nil, b.ID, 250))
	require.NoError(t, repo.ApplyContributionDelta(ctx, nil, c.ID, 999))

	count, sum, err := repo.ActiveTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, int64(350), sum)
}

func TestMemberRepository_DriftAndRecompute(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMemberRepository(db)
	txns := NewTransactionRepository(db)
	ctx := context.Background()

	clean := newMember("Clean", true)
	drifted := newMember("Drifted", true)
	require.NoError(t, repo.Create(ctx, nil, clean))
	require.NoError(t, repo.Create(ctx, nil, drifted))

	require.NoError(t, txns.Create(ctx, nil, memberEntry("R-1", clean.ID, 400, 400)))
	require.NoError(t, repo.ApplyContributionDelta(ctx, nil, clean.ID, 400))

	require.NoError(t, txns.Create(ctx, nil, memberEntry("R-2", drifted.ID, 500, 200)))
	require.NoError(t, repo.ApplyContributionDelta(ctx, nil, drifted.ID, 700))

	drifts, err := repo.ListContributionDrift(ctx, nil)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, drifted.ID, drifts[0].MemberID)
	assert.Equal(t, int64(700), drifts[0].Recorded)
	assert.Equal(t, int64(200), drifts[0].Ledger)
	assert.Equal(t, int64(500), drifts[0].Drift())

	require.NoError(t, repo.RecomputeContribution(ctx, nil, drifted.ID))

	drifts, err = repo.ListContributionDrift(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestMemberRepository_ListWithoutLedgerEntries(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMemberRepository(db)
	txns := NewTransactionRepository(db)
	ctx := context.Background()

	legacy := newMember("Legacy", true)
	tracked := newMember("Tracked", true)
	zero := newMember("Zero", true)
	for _, m := range []*model.Member{legacy, tracked, zero} {
		require.NoError(t, repo.Create(ctx, nil, m))
	}
	require.NoError(t, repo.ApplyContributionDelta(ctx, nil, legacy.ID, 300))
	require.NoError(t, repo.ApplyContributionDelta(ctx, nil, tracked.ID, 100))
	require.NoError(t, txns.Create(ctx, nil, memberEntry("R-T", tracked.ID, 100, 100)))

	members, err := repo.ListWithoutLedgerEntries(ctx, nil)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, legacy.ID, members[0].ID)
}

func TestMemberRepository_Delete(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMemberRepository(db)
	ctx := context.Background()

	m := newMember("Gone", true)
	require.NoError(t, repo.Create(ctx, nil, m))
	require.NoError(t, repo.Delete(ctx, nil, m.ID))

	_, err := repo.GetByID(ctx, nil, m.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, nil, m.ID), ErrMemberNotFound)
}

func memberEntry(receipt string, memberID, amount, paid int64) *model.Transaction {
	now := time.Now()
	t := &model.Transaction{
		ReceiptNo:  receipt,
		Kind:       model.KindMemberContribution,
		MemberID:   &memberID,
		Amount:     amount,
		PaidAmount: paid,
		FiscalYear: 2024,
		CreatedBy:  1,
	}
	if paid > 0 {
		t.PaidDate = &now
	}
	t.Recompute()
	return t
}
