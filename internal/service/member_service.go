package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"pujaledger/internal/infrastructure/cache"
	"pujaledger/internal/logging"
	"pujaledger/internal/model"
	"pujaledger/internal/repository"
	"pujaledger/pkg/apperr"

	"gorm.io/gorm"
)

type MemberService struct {
	db         *gorm.DB
	members    *repository.MemberRepository
	identities *repository.IdentityRepository
	reports    *repository.ReportRepository
	cache      *cache.ReportCache
	logger     *logging.Logger
	now        func() time.Time
}

func NewMemberService(db *gorm.DB, reportCache *cache.ReportCache, logger *logging.Logger) *MemberService {
	return &MemberService{
		db:         db,
		members:    repository.NewMemberRepository(db),
		identities: repository.NewIdentityRepository(db),
		reports:    repository.NewReportRepository(db),
		cache:      reportCache,
		logger:     logger.WithComponent(logging.ComponentMember),
		now:        time.Now,
	}
}

type CreateMemberInput struct {
	Name        string
	Role        string
	Position    string
	Phone       string
	AadhaarID   string
	Active      *bool
	JoiningDate *time.Time
	LoginName   string
	Password    string
}

// UpdateMemberInput nil 表示保持原值
type UpdateMemberInput struct {
	Name        *string
	Role        *string
	Position    *string
	Phone       *string
	AadhaarID   *string
	Active      *bool
	JoiningDate *time.Time
	LoginName   *string
	Password    *string
}

type MemberStats struct {
	ActiveMemberCount       int64 `json:"activeMemberCount"`
	TotalCollection         int64 `json:"totalCollection"`
	TotalMemberContribution int64 `json:"totalMemberContribution"`
	TotalExpense            int64 `json:"totalExpense"`
	RemainingBalance        int64 `json:"remainingBalance"`
}

func (s *MemberService) CreateMember(ctx context.Context, in CreateMemberInput) (*model.Member, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation(apperr.CodeParamError, "name is required")
	}
	if !model.IsValidMemberRole(in.Role) {
		return nil, apperr.Validation(apperr.CodeInvalidRole, "invalid role")
	}
	loginName := strings.TrimSpace(in.LoginName)
	if in.Role == model.MemberRoleManager && (loginName == "" || in.Password == "") {
		return nil, apperr.Validation(apperr.CodeLoginRequired, "login name and password are required for Manager")
	}

	member := &model.Member{
		Name:        name,
		Role:        in.Role,
		Position:    in.Position,
		Phone:       in.Phone,
		AadhaarID:   in.AadhaarID,
		Active:      true,
		JoiningDate: s.now(),
	}
	if in.Active != nil {
		member.Active = *in.Active
	}
	if in.JoiningDate != nil {
		member.JoiningDate = *in.JoiningDate
	}

	// 账号与会员在同一事务中写入，任一失败都整体回滚
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if in.Role == model.MemberRoleManager {
			identity, err := s.createManagerIdentity(ctx, tx, loginName, in.Password)
			if err != nil {
				return err
			}
			member.IdentityID = &identity.ID
		}
		return s.members.Create(ctx, tx, member)
	})
	if err != nil {
		return nil, translate(err, "create member")
	}

	s.invalidate(ctx)
	s.logger.Info("member created", logging.FieldMemberID, member.ID, "role", member.Role)
	created, err := s.members.GetByID(ctx, nil, member.ID)
	if err != nil {
		return nil, translate(err, "load member")
	}
	return created, nil
}

func (s *MemberService) UpdateMember(ctx context.Context, id int64, in UpdateMemberInput) (*model.Member, error) {
	var updated *model.Member
	err := s.db.Transaction(func(tx *gorm.DB) error {
		member, err := s.members.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.Validation(apperr.CodeParamError, "name cannot be blank")
			}
			fields["name"] = name
		}
		if in.Position != nil {
			fields["position"] = *in.Position
		}
		if in.Phone != nil {
			fields["phone"] = *in.Phone
		}
		if in.AadhaarID != nil {
			fields["aadhaar_id"] = *in.AadhaarID
		}
		if in.Active != nil {
			fields["active"] = *in.Active
		}
		if in.JoiningDate != nil {
			fields["joining_date"] = *in.JoiningDate
		}

		role := member.Role
		if in.Role != nil {
			if !model.IsValidMemberRole(*in.Role) {
				return apperr.Validation(apperr.CodeInvalidRole, "invalid role")
			}
			role = *in.Role
			fields["role"] = role
		}

		if err := s.syncIdentity(ctx, tx, member, role, in, fields); err != nil {
			return err
		}
		if err := s.members.UpdateFields(ctx, tx, id, fields); err != nil {
			return err
		}

		updated, err = s.members.GetByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, translate(err, "update member")
	}

	s.invalidate(ctx)
	s.logger.Info("member updated", logging.FieldMemberID, id, "role", updated.Role)
	return updated, nil
}

// syncIdentity 保证 identity_id 有值当且仅当角色为 Manager
func (s *MemberService) syncIdentity(ctx context.Context, tx *gorm.DB, member *model.Member, role string, in UpdateMemberInput, fields map[string]interface{}) error {
	loginName := ""
	if in.LoginName != nil {
		loginName = strings.TrimSpace(*in.LoginName)
	}
	password := ""
	if in.Password != nil {
		password = *in.Password
	}

	if role != model.MemberRoleManager {
		if member.IdentityID != nil {
			if err := s.identities.Delete(ctx, tx, *member.IdentityID); err != nil && !errors.Is(err, repository.ErrIdentityNotFound) {
				return err
			}
			fields["identity_id"] = nil
		}
		return nil
	}

	if member.IdentityID == nil {
		if loginName == "" || password == "" {
			return apperr.Validation(apperr.CodeLoginRequired, "login name and password are required for Manager")
		}
		identity, err := s.createManagerIdentity(ctx, tx, loginName, password)
		if err != nil {
			return err
		}
		fields["identity_id"] = identity.ID
		return nil
	}

	identityFields := map[string]interface{}{}
	if loginName != "" {
		taken, err := s.identities.LoginNameTaken(ctx, tx, loginName, *member.IdentityID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict(apperr.CodeDuplicateLogin, "login name already exists")
		}
		identityFields["login_name"] = loginName
	}
	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return apperr.Internal("hash password", err)
		}
		identityFields["password_hash"] = hash
	}
	if err := s.identities.UpdateFields(ctx, tx, *member.IdentityID, identityFields); err != nil {
		return translateIdentity(err, "update identity")
	}
	return nil
}

func (s *MemberService) createManagerIdentity(ctx context.Context, tx *gorm.DB, loginName, password string) (*model.Identity, error) {
	taken, err := s.identities.LoginNameTaken(ctx, tx, loginName, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict(apperr.CodeDuplicateLogin, "login name already exists")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	identity := &model.Identity{LoginName: loginName, PasswordHash: hash, Role: model.IdentityRoleManager}
	if err := s.identities.Create(ctx, tx, identity); err != nil {
		return nil, translateIdentity(err, "create identity")
	}
	return identity, nil
}

// DeleteMember 先删关联账号再删会员；历史流水保留悬空的 member_id
func (s *MemberService) DeleteMember(ctx context.Context, id int64) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		member, err := s.members.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if member.IdentityID != nil {
			if err := s.identities.Delete(ctx, tx, *member.IdentityID); err != nil && !errors.Is(err, repository.ErrIdentityNotFound) {
				return err
			}
		}
		return s.members.Delete(ctx, tx, id)
	})
	if err != nil {
		return translate(err, "delete member")
	}

	s.invalidate(ctx)
	s.logger.Info("member deleted", logging.FieldMemberID, id)
	return nil
}

func (s *MemberService) ListMembers(ctx context.Context) ([]*model.Member, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, apperr.Internal("list members", err)
	}
	return members, nil
}

func (s *MemberService) GetStats(ctx context.Context) (*MemberStats, error) {
	count, contribution, err := s.members.ActiveTotals(ctx)
	if err != nil {
		return nil, apperr.Internal("member totals", err)
	}
	income, err := s.reports.PublicIncomeTotals(ctx, nil)
	if err != nil {
		return nil, apperr.Internal("income totals", err)
	}
	expense, err := s.reports.ExpenseTotal(ctx, nil)
	if err != nil {
		return nil, apperr.Internal("expense total", err)
	}

	total := income.Collected + contribution
	return &MemberStats{
		ActiveMemberCount:       count,
		TotalCollection:         total,
		TotalMemberContribution: contribution,
		TotalExpense:            expense,
		RemainingBalance:        total - expense,
	}, nil
}

func (s *MemberService) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", logging.FieldError, err)
	}
}
