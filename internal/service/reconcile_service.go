package service

import (
	"context"

	"pujaledger/internal/infrastructure/cache"
	"pujaledger/internal/logging"
	"pujaledger/internal/repository"
	"pujaledger/pkg/apperr"

	"gorm.io/gorm"
)

type Drift struct {
	MemberID int64  `json:"memberId"`
	Name     string `json:"name"`
	Recorded int64  `json:"recorded"`
	Ledger   int64  `json:"ledger"`
	Drift    int64  `json:"drift"`
}

// ReconcileService 比对会员 contribution 与账本 paidAmount 之和
type ReconcileService struct {
	db      *gorm.DB
	members *repository.MemberRepository
	cache   *cache.ReportCache
	logger  *logging.Logger
}

func NewReconcileService(db *gorm.DB, reportCache *cache.ReportCache, logger *logging.Logger) *ReconcileService {
	return &ReconcileService{
		db:      db,
		members: repository.NewMemberRepository(db),
		cache:   reportCache,
		logger:  logger.WithComponent(logging.ComponentReconcile),
	}
}

// ReconcileContributions 返回发现的偏差；fix 为 true 时在同一事务内用账本之和覆盖
func (s *ReconcileService) ReconcileContributions(ctx context.Context, fix bool) ([]Drift, error) {
	var found []repository.ContributionDrift
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		found, err = s.members.ListContributionDrift(ctx, tx)
		if err != nil || !fix {
			return err
		}
		for _, d := range found {
			if err := s.members.RecomputeContribution(ctx, tx, d.MemberID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("reconcile contributions", err)
	}

	drifts := make([]Drift, 0, len(found))
	for _, d := range found {
		drifts = append(drifts, Drift{
			MemberID: d.MemberID,
			Name:     d.Name,
			Recorded: d.Recorded,
			Ledger:   d.Ledger,
			Drift:    d.Drift(),
		})
		s.logger.Warn("contribution drift",
			logging.FieldMemberID, d.MemberID,
			"recorded", d.Recorded,
			"ledger", d.Ledger,
			"fixed", fix,
		)
	}

	if fix && len(drifts) > 0 {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("report cache bump failed", logging.FieldError, err)
		}
	}
	return drifts, nil
}
