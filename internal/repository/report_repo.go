package repository

import (
	"context"
	"time"

	"pujaledger/internal/model"

	"gorm.io/gorm"
)

// ReportRepository 报表读查询，每次都重新扫描账本和会员表
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// IncomeTotals 公开收入（Chanda/Donation）应收与实收
type IncomeTotals struct {
	Budget    int64
	Collected int64
}

type ParaTotal struct {
	Para  string
	Total int64
}

// DatedAmount 带日期的金额，按天汇总在 service 层按业务时区完成
type DatedAmount struct {
	Date   time.Time
	Amount int64
}

type DonorTotal struct {
	DonorID int64
	Name    string
	Total   int64
}

type DonorPayment struct {
	DonorID  int64
	Name     string
	PaidDate time.Time
	Amount   int64
}

type ExpenseRow struct {
	Category string
	Amount   int64
	PaidDate *time.Time
}

func (r *ReportRepository) ledger(ctx context.Context, fiscalYear *int) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.Transaction{})
	if fiscalYear != nil {
		query = query.Where("ledger_transaction.fiscal_year = ?", *fiscalYear)
	}
	return query
}

func (r *ReportRepository) PublicIncomeTotals(ctx context.Context, fiscalYear *int) (IncomeTotals, error) {
	var totals IncomeTotals
	err := r.ledger(ctx, fiscalYear).
		Select("COALESCE(SUM(amount), 0) AS budget, COALESCE(SUM(paid_amount), 0) AS collected").
		Where("kind IN ?", model.PublicIncomeKinds).
		Scan(&totals).Error
	return totals, err
}

// MemberDue 会员会费流水中尚未付清的部分
func (r *ReportRepository) MemberDue(ctx context.Context, fiscalYear *int) (int64, error) {
	var due int64
	err := r.ledger(ctx, fiscalYear).
		Select("COALESCE(SUM(amount - paid_amount), 0)").
		Where("kind = ?", model.KindMemberContribution).
		Scan(&due).Error
	return due, err
}

func (r *ReportRepository) ExpenseTotal(ctx context.Context, fiscalYear *int) (int64, error) {
	var total int64
	err := r.ledger(ctx, fiscalYear).
		Select("COALESCE(SUM(amount), 0)").
		Where("kind = ?", model.KindExpense).
		Scan(&total).Error
	return total, err
}

func (r *ReportRepository) ActiveMemberContribution(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Member{}).
		Select("COALESCE(SUM(contribution), 0)").
		Where("active = ?", true).
		Scan(&total).Error
	return total, err
}

// PaidIncomeByKind 已付清的公开收入按类型求和
func (r *ReportRepository) PaidIncomeByKind(ctx context.Context, fiscalYear *int) (map[string]int64, error) {
	var rows []struct {
		Kind  string
		Total int64
	}
	err := r.ledger(ctx, fiscalYear).
		Select("kind, COALESCE(SUM(paid_amount), 0) AS total").
		Where("kind IN ? AND status = ?", model.PublicIncomeKinds, model.StatusPaid).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Kind] = row.Total
	}
	return out, nil
}

func (r *ReportRepository) ParaTotals(ctx context.Context, fiscalYear *int) ([]ParaTotal, error) {
	var rows []ParaTotal
	err := r.ledger(ctx, fiscalYear).
		Select("para, COALESCE(SUM(paid_amount), 0) AS total").
		Where("kind IN ? AND status = ?", model.PublicIncomeKinds, model.StatusPaid).
		Group("para").
		Order("total DESC").
		Order("para ASC").
		Scan(&rows).Error
	return rows, err
}

// PaidIncomeRows 已付清的公开收入，按付款日期升序
func (r *ReportRepository) PaidIncomeRows(ctx context.Context, fiscalYear *int) ([]DatedAmount, error) {
	var rows []DatedAmount
	err := r.ledger(ctx, fiscalYear).
		Select("paid_date AS date, paid_amount AS amount").
		Where("kind IN ? AND status = ? AND paid_date IS NOT NULL", model.PublicIncomeKinds, model.StatusPaid).
		Order("paid_date ASC").
		Scan(&rows).Error
	return rows, err
}

// MemberJoinRows 在册会员的 contribution，按入会日期归入当天
func (r *ReportRepository) MemberJoinRows(ctx context.Context) ([]DatedAmount, error) {
	var rows []DatedAmount
	err := r.db.WithContext(ctx).
		Model(&model.Member{}).
		Select("joining_date AS date, contribution AS amount").
		Where("active = ? AND contribution <> ?", true, 0).
		Order("joining_date ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *ReportRepository) ExpenseRows(ctx context.Context, fiscalYear *int) ([]ExpenseRow, error) {
	var rows []ExpenseRow
	err := r.ledger(ctx, fiscalYear).
		Select("category, amount, paid_date").
		Where("kind = ?", model.KindExpense).
		Order("paid_date ASC").
		Order("id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *ReportRepository) TopDonors(ctx context.Context, fiscalYear *int, limit int) ([]DonorTotal, error) {
	var rows []DonorTotal
	err := r.ledger(ctx, fiscalYear).
		Select("ledger_transaction.donor_id AS donor_id, COALESCE(MAX(donor.name), MAX(ledger_transaction.display_name)) AS name, COALESCE(SUM(ledger_transaction.paid_amount), 0) AS total").
		Joins("LEFT JOIN donor ON donor.id = ledger_transaction.donor_id").
		Where("ledger_transaction.kind = ? AND ledger_transaction.status = ? AND ledger_transaction.donor_id IS NOT NULL",
			model.KindDonation, model.StatusPaid).
		Group("ledger_transaction.donor_id").
		Order("total DESC").
		Order("donor_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *ReportRepository) DonorPayments(ctx context.Context, fiscalYear *int) ([]DonorPayment, error) {
	var rows []DonorPayment
	err := r.ledger(ctx, fiscalYear).
		Select("ledger_transaction.donor_id AS donor_id, COALESCE(donor.name, ledger_transaction.display_name) AS name, ledger_transaction.paid_date AS paid_date, ledger_transaction.paid_amount AS amount").
		Joins("LEFT JOIN donor ON donor.id = ledger_transaction.donor_id").
		Where("ledger_transaction.kind = ? AND ledger_transaction.status = ? AND ledger_transaction.donor_id IS NOT NULL AND ledger_transaction.paid_date IS NOT NULL",
			model.KindDonation, model.StatusPaid).
		Order("ledger_transaction.paid_date ASC").
		Scan(&rows).Error
	return rows, err
}
