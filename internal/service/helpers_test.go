package service

import (
	"context"
	"testing"
	"time"

	"pujaledger/internal/logging"
	"pujaledger/internal/model"
	"pujaledger/internal/repository"
	"pujaledger/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	ledger  *LedgerService
	members *MemberService
	reports *ReportService
	repo    *repository.MemberRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	logger := logging.Nop()
	return &fixture{
		db:      db,
		ledger:  NewLedgerService(db, NewEventRecorder(db, true, "puja.ledger.events"), nil, logger),
		members: NewMemberService(db, nil, logger),
		reports: NewReportService(db, nil, time.UTC, logger),
		repo:    repository.NewMemberRepository(db),
	}
}

func (f *fixture) addMember(t *testing.T, name string) *model.Member {
	t.Helper()
	m, err := f.members.CreateMember(context.Background(), CreateMemberInput{Name: name, Role: model.MemberRoleUser})
	require.NoError(t, err)
	return m
}

func (f *fixture) contribution(t *testing.T, id int64) int64 {
	t.Helper()
	m, err := f.repo.GetByID(context.Background(), nil, id)
	require.NoError(t, err)
	return m.Contribution
}

// ledgerSum 引用该会员的现存流水 paidAmount 之和
func (f *fixture) ledgerSum(t *testing.T, id int64) int64 {
	t.Helper()
	sum, err := repository.NewTransactionRepository(f.db).SumPaidByMember(context.Background(), id)
	require.NoError(t, err)
	return sum
}

func (f *fixture) count(t *testing.T, table interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(table).Count(&n).Error)
	return n
}

func i64(v int64) *int64 { return &v }
func intp(v int) *int    { return &v }
func str(v string) *string { return &v }

func memberFilter() repository.TransactionFilter {
	return repository.TransactionFilter{Kind: model.KindMemberContribution}
}
