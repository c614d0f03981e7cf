package repository

import (
	"context"
	"errors"

	"pujaledger/internal/model"

	"gorm.io/gorm"
)

type IdentityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *IdentityRepository) Create(ctx context.Context, tx *gorm.DB, identity *model.Identity) error {
	return r.conn(tx).WithContext(ctx).Create(identity).Error
}

func (r *IdentityRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Identity, error) {
	var identity model.Identity
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return &identity, nil
}

func (r *IdentityRepository) GetByLoginName(ctx context.Context, tx *gorm.DB, loginName string) (*model.Identity, error) {
	var identity model.Identity
	err := r.conn(tx).WithContext(ctx).Where("login_name = ?", loginName).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return &identity, nil
}

// LoginNameTaken 登录名是否已被占用，excludeID 用于排除自身
func (r *IdentityRepository) LoginNameTaken(ctx context.Context, tx *gorm.DB, loginName string, excludeID int64) (bool, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).
		Model(&model.Identity{}).
		Where("login_name = ? AND id <> ?", loginName, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *IdentityRepository) CountByRole(ctx context.Context, tx *gorm.DB, role string) (int64, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).
		Model(&model.Identity{}).
		Where("role = ?", role).
		Count(&count).Error
	return count, err
}

func (r *IdentityRepository) UpdateFields(ctx context.Context, tx *gorm.DB, id int64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).
		Model(&model.Identity{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *IdentityRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	result := r.conn(tx).WithContext(ctx).Where("id = ?", id).Delete(&model.Identity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}
