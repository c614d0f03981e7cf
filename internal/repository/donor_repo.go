package repository

import (
	"context"
	"errors"

	"pujaledger/internal/model"

	"gorm.io/gorm"
)

type DonorRepository struct {
	db *gorm.DB
}

func NewDonorRepository(db *gorm.DB) *DonorRepository {
	return &DonorRepository{db: db}
}

func (r *DonorRepository) Create(ctx context.Context, tx *gorm.DB, donor *model.Donor) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(donor).Error
}

func (r *DonorRepository) GetByID(ctx context.Context, id int64) (*model.Donor, error) {
	var donor model.Donor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&donor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonorNotFound
		}
		return nil, err
	}
	return &donor, nil
}

func (r *DonorRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Donor{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *DonorRepository) List(ctx context.Context) ([]*model.Donor, error) {
	var donors []*model.Donor
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&donors).Error
	return donors, err
}
