package repository

import (
	"context"
	"testing"
	"time"

	"pujaledger/internal/model"
	"pujaledger/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func publicEntry(receipt, kind, para string, amount, paid int64, fy int, paidAt *time.Time) *model.Transaction {
	t := &model.Transaction{
		ReceiptNo:   receipt,
		Kind:        kind,
		DisplayName: "Donor " + receipt,
		Para:        para,
		Amount:      amount,
		PaidAmount:  paid,
		PaidDate:    paidAt,
		FiscalYear:  fy,
		CreatedBy:   1,
	}
	t.Recompute()
	return t
}

func TestTransactionRepository_SaveAndLock(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	entry := publicEntry("RCP-1", model.KindDonation, "North", 500, 200, 2024, nil)
	require.NoError(t, repo.Create(ctx, nil, entry))

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.GetForUpdate(ctx, tx, entry.ID)
		if err != nil {
			return err
		}
		locked.PaidAmount = 500
		locked.Recompute()
		return repo.Save(ctx, tx, locked)
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.PaidAmount)
	assert.Equal(t, model.StatusPaid, got.Status)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := repo.GetForUpdate(ctx, tx, 424242)
		return err
	})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestTransactionRepository_SaveDoesNotResurrect(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	entry := publicEntry("RCP-2", model.KindChanda, "East", 100, 0, 2024, nil)
	require.NoError(t, repo.Create(ctx, nil, entry))
	require.NoError(t, repo.Delete(ctx, nil, entry.ID))

	require.NoError(t, repo.Save(ctx, nil, entry))
	_, err := repo.GetByID(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, nil, entry.ID), ErrTransactionNotFound)
}

func TestTransactionRepository_ListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.Create(ctx, nil, publicEntry("A", model.KindChanda, "N", 100, 100, 2023, &now)))
	require.NoError(t, repo.Create(ctx, nil, publicEntry("B", model.KindDonation, "N", 100, 0, 2024, nil)))
	require.NoError(t, repo.Create(ctx, nil, publicEntry("C", model.KindDonation, "S", 300, 300, 2024, &now)))

	all, err := repo.List(ctx, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "C", all[0].ReceiptNo)

	fy := 2024
	byYear, err := repo.List(ctx, TransactionFilter{FiscalYear: &fy})
	require.NoError(t, err)
	assert.Len(t, byYear, 2)

	due, err := repo.List(ctx, TransactionFilter{FiscalYear: &fy, Status: model.StatusDue})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "B", due[0].ReceiptNo)

	chanda, err := repo.List(ctx, TransactionFilter{Kind: model.KindChanda})
	require.NoError(t, err)
	require.Len(t, chanda, 1)
	assert.Equal(t, "A", chanda[0].ReceiptNo)
}

func TestTransactionRepository_DuplicateReceipt(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, nil, publicEntry("DUP", model.KindChanda, "", 10, 0, 2024, nil)))
	err := repo.Create(ctx, nil, publicEntry("DUP", model.KindChanda, "", 10, 0, 2024, nil))
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
