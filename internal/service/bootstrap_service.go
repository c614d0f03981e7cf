package service

import (
	"context"
	"errors"
	"time"

	"pujaledger/internal/config"
	"pujaledger/internal/infrastructure/lock"
	"pujaledger/internal/logging"
	"pujaledger/internal/model"
	"pujaledger/internal/repository"
	"pujaledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const backfillPara = "Member Contribution"

var ErrBootstrapLocked = errors.New("另一个实例正在执行启动任务")

// BootstrapService 进程启动时的一次性任务，均为先检查后执行，可重复运行
type BootstrapService struct {
	db         *gorm.DB
	rdb        *redis.Client
	identities *repository.IdentityRepository
	members    *repository.MemberRepository
	txns       *repository.TransactionRepository
	admin      config.AdminConfig
	loc        *time.Location
	logger     *logging.Logger
	now        func() time.Time
}

// NewBootstrapService rdb 可为 nil，此时不加分布式锁
func NewBootstrapService(db *gorm.DB, rdb *redis.Client, admin config.AdminConfig, loc *time.Location, logger *logging.Logger) *BootstrapService {
	if loc == nil {
		loc = time.UTC
	}
	return &BootstrapService{
		db:         db,
		rdb:        rdb,
		identities: repository.NewIdentityRepository(db),
		members:    repository.NewMemberRepository(db),
		txns:       repository.NewTransactionRepository(db),
		admin:      admin,
		loc:        loc,
		logger:     logger.WithComponent(logging.ComponentBootstrap),
		now:        time.Now,
	}
}

func (s *BootstrapService) withLock(ctx context.Context, name string, fn func() error) error {
	if s.rdb == nil {
		return fn()
	}
	l := lock.NewBootstrapLock(s.rdb, name)
	ok, err := l.TryLock(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBootstrapLocked
	}
	defer func() {
		if err := l.Unlock(ctx); err != nil {
			s.logger.Warn("release bootstrap lock failed", "lock", l.Key(), logging.FieldError, err)
		}
	}()
	return fn()
}

// SeedAdmin 没有任何 Admin 账号时按配置创建一个
func (s *BootstrapService) SeedAdmin(ctx context.Context) (bool, error) {
	if s.admin.LoginName == "" || s.admin.Password == "" {
		s.logger.Warn("admin seed skipped, admin.login_name or admin.password not configured")
		return false, nil
	}

	created := false
	err := s.withLock(ctx, "seed-admin", func() error {
		count, err := s.identities.CountByRole(ctx, nil, model.IdentityRoleAdmin)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		hash, err := HashPassword(s.admin.Password)
		if err != nil {
			return err
		}
		identity := &model.Identity{
			LoginName:    s.admin.LoginName,
			PasswordHash: hash,
			Role:         model.IdentityRoleAdmin,
		}
		if err := s.identities.Create(ctx, nil, identity); err != nil {
			return err
		}
		created = true
		s.logger.Info("admin account created", "login_name", identity.LoginName)
		return nil
	})
	return created, err
}

// BackfillMemberContributions 为只有 contribution 而没有任何流水的会员补一条已付清的会费流水，
// 不修改 contribution 本身
func (s *BootstrapService) BackfillMemberContributions(ctx context.Context) (int, error) {
	inserted := 0
	err := s.withLock(ctx, "backfill-contributions", func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			members, err := s.members.ListWithoutLedgerEntries(ctx, tx)
			if err != nil {
				return err
			}
			now := s.now()
			for _, m := range members {
				memberID := m.ID
				entry := &model.Transaction{
					ReceiptNo:    idgen.GenerateReceiptNo(idgen.PrefixBackfill),
					Kind:         model.KindMemberContribution,
					MemberID:     &memberID,
					DisplayName:  m.Name,
					DisplayPhone: m.Phone,
					Para:         backfillPara,
					Amount:       m.Contribution,
					PaidAmount:   m.Contribution,
					PaidDate:     &now,
					FiscalYear:   now.In(s.loc).Year(),
				}
				entry.Recompute()
				if err := s.txns.Create(ctx, tx, entry); err != nil {
					return err
				}
				inserted++
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		s.logger.Info("member contributions backfilled", "count", inserted)
	}
	return inserted, nil
}
