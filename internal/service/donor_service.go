package service

import (
	"context"
	"strings"

	"pujaledger/internal/infrastructure/cache"
	"pujaledger/internal/logging"
	"pujaledger/internal/model"
	"pujaledger/internal/repository"
	"pujaledger/pkg/apperr"

	"gorm.io/gorm"
)

type DonorService struct {
	donors *repository.DonorRepository
	cache  *cache.ReportCache
	logger *logging.Logger
}

func NewDonorService(db *gorm.DB, reportCache *cache.ReportCache, logger *logging.Logger) *DonorService {
	return &DonorService{
		donors: repository.NewDonorRepository(db),
		cache:  reportCache,
		logger: logger.WithComponent(logging.ComponentDonor),
	}
}

// CreateDonor 总是新建一行，不按姓名或电话去重
func (s *DonorService) CreateDonor(ctx context.Context, name, phone string) (*model.Donor, error) {
	donor := &model.Donor{
		Name:  model.NameOrAnonymous(name),
		Phone: strings.TrimSpace(phone),
	}
	if err := s.donors.Create(ctx, nil, donor); err != nil {
		return nil, apperr.Internal("create donor", err)
	}
	s.invalidate(ctx)
	return donor, nil
}

// UpdateDonor 仅用于更正姓名和电话；捐赠人报表按姓名展示，需要失效缓存
func (s *DonorService) UpdateDonor(ctx context.Context, id int64, name, phone *string) (*model.Donor, error) {
	if _, err := s.donors.GetByID(ctx, id); err != nil {
		return nil, translate(err, "load donor")
	}

	fields := map[string]interface{}{}
	if name != nil {
		fields["name"] = model.NameOrAnonymous(*name)
	}
	if phone != nil {
		fields["phone"] = strings.TrimSpace(*phone)
	}
	if len(fields) > 0 {
		if err := s.donors.UpdateFields(ctx, id, fields); err != nil {
			return nil, apperr.Internal("update donor", err)
		}
		s.invalidate(ctx)
		s.logger.Info("donor updated", "donor_id", id)
	}

	donor, err := s.donors.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "load donor")
	}
	return donor, nil
}

func (s *DonorService) ListDonors(ctx context.Context) ([]*model.Donor, error) {
	donors, err := s.donors.List(ctx)
	if err != nil {
		return nil, apperr.Internal("list donors", err)
	}
	return donors, nil
}

func (s *DonorService) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", logging.FieldError, err)
	}
}
