package service

import (
	"context"
	"testing"

	"pujaledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileContributions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reconcile := NewReconcileService(f.db, nil, f.ledger.logger)

	clean := f.addMember(t, "Clean")
	drifted := f.addMember(t, "Drifted")
	for _, id := range []int64{clean.ID, drifted.ID} {
		memberID := id
		_, err := f.ledger.AddIncome(ctx, AddIncomeInput{MemberID: &memberID, Amount: 500, PaidAmount: i64(300), FiscalYear: 2024})
		require.NoError(t, err)
	}

	drifts, err := reconcile.ReconcileContributions(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	require.NoError(t, f.db.Model(&model.Member{}).Where("id = ?", drifted.ID).UpdateColumn("contribution", 999).Error)

	drifts, err = reconcile.ReconcileContributions(ctx, false)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, Drift{MemberID: drifted.ID, Name: "Drifted", Recorded: 999, Ledger: 300, Drift: 699}, drifts[0])
	assert.Equal(t, int64(999), f.contribution(t, drifted.ID))

	drifts, err = reconcile.ReconcileContributions(ctx, true)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, int64(300), f.contribution(t, drifted.ID))
	assert.Equal(t, int64(300), f.contribution(t, clean.ID))

	drifts, err = reconcile.ReconcileContributions(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}
