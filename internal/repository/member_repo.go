package repository

import (
	"context"
	"errors"

	"pujaledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContributionDrift 会员缓存的 contribution 与账本实际之和不一致
type ContributionDrift struct {
	MemberID int64  `json:"memberId"`
	Name     string `json:"name"`
	Recorded int64  `json:"recorded"`
	Ledger   int64  `json:"ledger"`
}

func (d ContributionDrift) Drift() int64 {
	return d.Recorded - d.Ledger
}

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *MemberRepository) Create(ctx context.Context, tx *gorm.DB, member *model.Member) error {
	return r.conn(tx).WithContext(ctx).Omit(clause.Associations).Create(member).Error
}

func (r *MemberRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Member, error) {
	var member model.Member
	err := r.conn(tx).WithContext(ctx).Preload("Identity").Where("id = ?", id).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Member, error) {
	var member model.Member
	err := r.conn(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

// UpdateFields 更新资料字段，contribution 不允许经此修改
func (r *MemberRepository) UpdateFields(ctx context.Context, tx *gorm.DB, id int64, fields map[string]interface{}) error {
	delete(fields, "contribution")
	if len(fields) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).
		Model(&model.Member{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *MemberRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	result := r.conn(tx).WithContext(ctx).Where("id = ?", id).Delete(&model.Member{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// List 全部会员，按创建时间倒序，带关联账号
func (r *MemberRepository) List(ctx context.Context) ([]*model.Member, error) {
	var members []*model.Member
	err := r.db.WithContext(ctx).
		Preload("Identity").
		Order("created_at DESC").
		Order("id DESC").
		Find(&members).Error
	return members, err
}

// ApplyContributionDelta 原子地调整会员 contribution
//
// 所有 contribution 的变化都必须经过这里，且与账本写入在同一事务中。
// 使用 contribution = contribution + ? 而不是读-改-写，避免并发丢失更新。
func (r *MemberRepository) ApplyContributionDelta(ctx context.Context, tx *gorm.DB, id int64, delta int64) error {
	if delta == 0 {
		return nil
	}
	result := r.conn(tx).WithContext(ctx).
		Model(&model.Member{}).
		Where("id = ?", id).
		UpdateColumn("contribution", gorm.Expr("contribution + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// ActiveTotals 在册会员人数与 contribution 之和
func (r *MemberRepository) ActiveTotals(ctx context.Context) (count int64, contribution int64, err error) {
	var row struct {
		Count        int64
		Contribution int64
	}
	err = r.db.WithContext(ctx).
		Model(&model.Member{}).
		Select("COUNT(*) AS count, COALESCE(SUM(contribution), 0) AS contribution").
		Where("active = ?", true).
		Scan(&row).Error
	return row.Count, row.Contribution, err
}

// ListContributionDrift 找出 contribution 与账本 paidAmount 之和不一致的会员
func (r *MemberRepository) ListContributionDrift(ctx context.Context, tx *gorm.DB) ([]ContributionDrift, error) {
	var drifts []ContributionDrift
	ledgerSum := func() *gorm.DB {
		return r.conn(tx).
			Model(&model.Transaction{}).
			Select("COALESCE(SUM(paid_amount), 0)").
			Where("ledger_transaction.member_id = member.id")
	}
	err := r.conn(tx).WithContext(ctx).
		Model(&model.Member{}).
		Select("member.id AS member_id, member.name AS name, member.contribution AS recorded, (?) AS ledger", ledgerSum()).
		Where("member.contribution <> (?)", ledgerSum()).
		Order("member.id").
		Scan(&drifts).Error
	return drifts, err
}

// RecomputeContribution 用账本之和覆盖会员的 contribution，单条 SQL 完成
func (r *MemberRepository) RecomputeContribution(ctx context.Context, tx *gorm.DB, id int64) error {
	ledgerSum := r.conn(tx).
		Model(&model.Transaction{}).
		Select("COALESCE(SUM(paid_amount), 0)").
		Where("member_id = ?", id)
	return r.conn(tx).WithContext(ctx).
		Model(&model.Member{}).
		Where("id = ?", id).
		UpdateColumn("contribution", gorm.Expr("(?)", ledgerSum)).Error
}

// ListWithoutLedgerEntries 有 contribution 但账本中没有任何流水的会员（历史数据）
func (r *MemberRepository) ListWithoutLedgerEntries(ctx context.Context, tx *gorm.DB) ([]*model.Member, error) {
	var members []*model.Member
	entries := r.conn(tx).
		Model(&model.Transaction{}).
		Select("1").
		Where("ledger_transaction.member_id = member.id")
	err := r.conn(tx).WithContext(ctx).
		Where("contribution > ?", 0).
		Where("NOT EXISTS (?)", entries).
		Order("id").
		Find(&members).Error
	return members, err
}
