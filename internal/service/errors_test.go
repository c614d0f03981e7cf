package service

import (
	"context"
	"testing"

	"pujaledger/internal/model"
	"pujaledger/internal/repository"
	"pujaledger/internal/testutil"
	"pujaledger/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_UniqueViolationByTable(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	// 流水号冲突是通用冲突，不能报成登录名重复
	txns := repository.NewTransactionRepository(db)
	entry := func() *model.Transaction {
		return &model.Transaction{ReceiptNo: "RCP-DUP", Amount: 10, PaidAmount: 10, Kind: model.KindChanda, Status: model.StatusPaid, FiscalYear: 2024, CreatedBy: 1}
	}
	require.NoError(t, txns.Create(ctx, nil, entry()))
	err := translate(txns.Create(ctx, nil, entry()), "add income")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
	assert.False(t, apperr.HasCode(err, apperr.CodeDuplicateLogin))

	identities := repository.NewIdentityRepository(db)
	require.NoError(t, identities.Create(ctx, nil, &model.Identity{LoginName: "dup", PasswordHash: "x", Role: model.IdentityRoleAdmin}))
	err = translateIdentity(identities.Create(ctx, nil, &model.Identity{LoginName: "dup", PasswordHash: "y", Role: model.IdentityRoleAdmin}), "create identity")
	assert.True(t, apperr.HasCode(err, apperr.CodeDuplicateLogin))

	assert.True(t, apperr.HasCode(translateIdentity(repository.ErrIdentityNotFound, "load identity"), apperr.CodeIdentityNotFound))
}
