package repository

import (
	"context"
	"errors"

	"pujaledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionFilter 流水列表筛选条件，零值表示不限
type TransactionFilter struct {
	FiscalYear *int
	Kind       string
	Status     string
}

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var trans model.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// GetForUpdate 事务内锁定流水行
func (r *TransactionRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Transaction, error) {
	var trans model.Transaction
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// Save 写回可变字段，不会在行已删除时插入新行
func (r *TransactionRepository) Save(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ?", trans.ID).
		Updates(map[string]interface{}{
			"display_name":  trans.DisplayName,
			"display_phone": trans.DisplayPhone,
			"para":          trans.Para,
			"amount":        trans.Amount,
			"paid_amount":   trans.PaidAmount,
			"status":        trans.Status,
			"paid_date":     trans.PaidDate,
			"category":      trans.Category,
			"payment_mode":  trans.PaymentMode,
			"notes":         trans.Notes,
			"fiscal_year":   trans.FiscalYear,
		}).Error
}

func (r *TransactionRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).Where("id = ?", id).Delete(&model.Transaction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// List 按创建时间倒序
func (r *TransactionRepository) List(ctx context.Context, filter TransactionFilter) ([]*model.Transaction, error) {
	var transactions []*model.Transaction

	query := r.db.WithContext(ctx).Model(&model.Transaction{})
	if filter.FiscalYear != nil {
		query = query.Where("fiscal_year = ?", *filter.FiscalYear)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Find(&transactions).Error
	return transactions, err
}

// SumPaidByMember 引用该会员的全部流水 paidAmount 之和
func (r *TransactionRepository) SumPaidByMember(ctx context.Context, memberID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("COALESCE(SUM(paid_amount), 0)").
		Where("member_id = ?", memberID).
		Scan(&total).Error
	return total, err
}
