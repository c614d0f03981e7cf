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
	"pujaledger/pkg/idgen"

	"gorm.io/gorm"
)

// LedgerService 收入与支出流水
//
// 会员 contribution 的所有变化都在这里发生，并与流水写入处于同一数据库事务：
//   - 新增收入：+paid
//   - 修改收入：+(newPaid - oldPaid)
//   - 标记付清：+(amount - oldPaid)
//   - 删除流水：-paid
type LedgerService struct {
	db      *gorm.DB
	members *repository.MemberRepository
	donors  *repository.DonorRepository
	txns    *repository.TransactionRepository
	events  *EventRecorder
	cache   *cache.ReportCache
	logger  *logging.Logger
	now     func() time.Time
}

func NewLedgerService(db *gorm.DB, events *EventRecorder, reportCache *cache.ReportCache, logger *logging.Logger) *LedgerService {
	return &LedgerService{
		db:      db,
		members: repository.NewMemberRepository(db),
		donors:  repository.NewDonorRepository(db),
		txns:    repository.NewTransactionRepository(db),
		events:  events,
		cache:   reportCache,
		logger:  logger.WithComponent(logging.ComponentLedger),
		now:     time.Now,
	}
}

type AddIncomeInput struct {
	PayerName  string
	Phone      string
	MemberID   *int64
	Amount     int64
	PaidAmount *int64
	Kind       string
	FiscalYear int
	Para       string
	Category   string
	CreatedBy  int64
}

// UpdateIncomeInput nil 表示保持原值
type UpdateIncomeInput struct {
	Amount     *int64
	PaidAmount *int64
	PayerName  *string
	Phone      *string
	FiscalYear *int
	Para       *string
	Category   *string
}

type AddExpenseInput struct {
	Amount      int64
	Category    string
	PaymentMode string
	FiscalYear  int
	Para        string
	Notes       string
	CreatedBy   int64
}

type UpdateExpenseInput struct {
	Amount      *int64
	Category    *string
	PaymentMode *string
	FiscalYear  *int
	Para        *string
	Notes       *string
}

// resolvedIncome 收入类型判定结果：带会员的一律记为 MemberContribution
type resolvedIncome struct {
	Kind         string
	MemberID     *int64
	DonorID      *int64
	DisplayName  string
	DisplayPhone string
}

func validateAmounts(amount, paid int64) error {
	if amount <= 0 {
		return apperr.Validation(apperr.CodeInvalidAmount, "amount must be greater than 0")
	}
	if paid < 0 {
		return apperr.Validation(apperr.CodeInvalidAmount, "paid amount cannot be negative")
	}
	if paid > amount {
		return apperr.Validation(apperr.CodeOverpayment, "paid amount cannot exceed amount")
	}
	return nil
}

// checkIncomeInput 纯校验，不访问存储；失败时不会产生任何写入
func checkIncomeInput(in AddIncomeInput) error {
	var paid int64
	if in.PaidAmount != nil {
		paid = *in.PaidAmount
	}
	if err := validateAmounts(in.Amount, paid); err != nil {
		return err
	}
	if in.FiscalYear <= 0 {
		return apperr.Validation(apperr.CodeMissingFiscalYear, "fiscal year is required")
	}
	if in.MemberID != nil {
		return nil
	}
	switch in.Kind {
	case model.KindChanda:
		return nil
	case model.KindDonation:
		if strings.TrimSpace(in.PayerName) == "" && strings.TrimSpace(in.Phone) == "" {
			return apperr.Validation(apperr.CodeMissingPayer, "payer name or phone is required for a donation")
		}
		return nil
	case model.KindMemberContribution:
		return apperr.Validation(apperr.CodeInvalidKind, "member contribution requires a member")
	default:
		return apperr.Validation(apperr.CodeInvalidKind, "invalid income kind")
	}
}

// resolveKind 决定最终类型并生成展示快照；捐款会在事务内新建捐赠人
func (s *LedgerService) resolveKind(ctx context.Context, tx *gorm.DB, in AddIncomeInput) (*resolvedIncome, error) {
	if in.MemberID != nil {
		member, err := s.members.GetByID(ctx, tx, *in.MemberID)
		if err != nil {
			return nil, err
		}
		return &resolvedIncome{
			Kind:         model.KindMemberContribution,
			MemberID:     &member.ID,
			DisplayName:  member.Name,
			DisplayPhone: member.Phone,
		}, nil
	}

	if in.Kind == model.KindDonation {
		donor := &model.Donor{
			Name:  model.NameOrAnonymous(in.PayerName),
			Phone: strings.TrimSpace(in.Phone),
		}
		if err := s.donors.Create(ctx, tx, donor); err != nil {
			return nil, err
		}
		return &resolvedIncome{
			Kind:         model.KindDonation,
			DonorID:      &donor.ID,
			DisplayName:  donor.Name,
			DisplayPhone: donor.Phone,
		}, nil
	}

	return &resolvedIncome{
		Kind:         model.KindChanda,
		DisplayName:  model.NameOrAnonymous(in.PayerName),
		DisplayPhone: strings.TrimSpace(in.Phone),
	}, nil
}

func (s *LedgerService) AddIncome(ctx context.Context, in AddIncomeInput) (*model.Transaction, error) {
	if err := checkIncomeInput(in); err != nil {
		return nil, err
	}

	var paid int64
	if in.PaidAmount != nil {
		paid = *in.PaidAmount
	}

	var entry *model.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		resolved, err := s.resolveKind(ctx, tx, in)
		if err != nil {
			return err
		}

		entry = &model.Transaction{
			ReceiptNo:    idgen.GenerateReceiptNo(idgen.PrefixIncome),
			Kind:         resolved.Kind,
			MemberID:     resolved.MemberID,
			DonorID:      resolved.DonorID,
			DisplayName:  resolved.DisplayName,
			DisplayPhone: resolved.DisplayPhone,
			Para:         strings.TrimSpace(in.Para),
			Category:     in.Category,
			Amount:       in.Amount,
			PaidAmount:   paid,
			FiscalYear:   in.FiscalYear,
			CreatedBy:    in.CreatedBy,
		}
		entry.Recompute()
		if paid > 0 {
			now := s.now()
			entry.PaidDate = &now
		}

		if err := s.txns.Create(ctx, tx, entry); err != nil {
			return err
		}
		if entry.MemberID != nil {
			if err := s.members.ApplyContributionDelta(ctx, tx, *entry.MemberID, paid); err != nil {
				return err
			}
		}
		return s.events.Record(ctx, tx, model.EventIncomeCreated, entry)
	})
	if err != nil {
		return nil, translate(err, "add income")
	}

	s.invalidate(ctx)
	s.logger.Info("income added",
		logging.FieldTxnID, entry.ID,
		logging.FieldReceiptNo, entry.ReceiptNo,
		"kind", entry.Kind,
		logging.FieldAmount, entry.Amount,
		logging.FieldDelta, paid,
	)
	return entry, nil
}

func (s *LedgerService) UpdateIncome(ctx context.Context, id int64, in UpdateIncomeInput) (*model.Transaction, error) {
	var entry *model.Transaction
	var delta int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.txns.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if entry.Kind == model.KindExpense {
			return apperr.State(apperr.CodeWrongEntryKind, "use the expense endpoint to edit an expense")
		}

		oldPaid := entry.PaidAmount
		if in.Amount != nil {
			entry.Amount = *in.Amount
		}
		if in.PaidAmount != nil {
			entry.PaidAmount = *in.PaidAmount
		}
		if err := validateAmounts(entry.Amount, entry.PaidAmount); err != nil {
			return err
		}
		if in.FiscalYear != nil {
			if *in.FiscalYear <= 0 {
				return apperr.Validation(apperr.CodeMissingFiscalYear, "fiscal year is required")
			}
			entry.FiscalYear = *in.FiscalYear
		}
		if in.PayerName != nil {
			entry.DisplayName = strings.TrimSpace(*in.PayerName)
		}
		if in.Phone != nil {
			entry.DisplayPhone = strings.TrimSpace(*in.Phone)
		}
		if in.Para != nil {
			entry.Para = strings.TrimSpace(*in.Para)
		}
		if in.Category != nil {
			entry.Category = *in.Category
		}

		entry.Recompute()
		switch {
		case entry.PaidAmount == 0:
			entry.PaidDate = nil
		case entry.PaidDate == nil:
			now := s.now()
			entry.PaidDate = &now
		}

		if err := s.txns.Save(ctx, tx, entry); err != nil {
			return err
		}

		delta = entry.PaidAmount - oldPaid
		if err := s.applyMemberDelta(ctx, tx, entry, delta); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, model.EventIncomeUpdated, entry)
	})
	if err != nil {
		return nil, translate(err, "update income")
	}

	s.invalidate(ctx)
	s.logger.Info("income updated", logging.FieldTxnID, id, logging.FieldDelta, delta)
	return entry, nil
}

// MarkIncomeAsPaid 补齐未付部分；只把差额计入会员，重复调用不会重复计数
func (s *LedgerService) MarkIncomeAsPaid(ctx context.Context, id int64) (*model.Transaction, error) {
	var entry *model.Transaction
	var delta int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.txns.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if entry.Kind == model.KindExpense {
			return apperr.State(apperr.CodeExpenseNotPayable, "expense is already paid")
		}

		delta = entry.Amount - entry.PaidAmount
		if delta <= 0 {
			entry.Recompute()
			return nil
		}

		now := s.now()
		entry.PaidAmount = entry.Amount
		entry.PaidDate = &now
		entry.Recompute()

		if err := s.txns.Save(ctx, tx, entry); err != nil {
			return err
		}
		if err := s.applyMemberDelta(ctx, tx, entry, delta); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, model.EventIncomePaid, entry)
	})
	if err != nil {
		return nil, translate(err, "mark income paid")
	}

	if delta > 0 {
		s.invalidate(ctx)
		s.logger.Info("income marked paid", logging.FieldTxnID, id, logging.FieldDelta, delta)
	}
	return entry, nil
}

// DeleteTransaction 删除任意流水；会员流水先扣回已计入的 paidAmount
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	return s.deleteEntry(ctx, id, false)
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) error {
	return s.deleteEntry(ctx, id, true)
}

func (s *LedgerService) deleteEntry(ctx context.Context, id int64, expenseOnly bool) error {
	var entry *model.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.txns.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if expenseOnly && entry.Kind != model.KindExpense {
			return apperr.State(apperr.CodeWrongEntryKind, "transaction is not an expense")
		}

		if err := s.applyMemberDelta(ctx, tx, entry, -entry.PaidAmount); err != nil {
			return err
		}
		if err := s.txns.Delete(ctx, tx, id); err != nil {
			return err
		}

		eventType := model.EventIncomeDeleted
		if entry.Kind == model.KindExpense {
			eventType = model.EventExpenseDeleted
		}
		return s.events.Record(ctx, tx, eventType, entry)
	})
	if err != nil {
		return translate(err, "delete transaction")
	}

	s.invalidate(ctx)
	s.logger.Info("transaction deleted",
		logging.FieldTxnID, id,
		logging.FieldReceiptNo, entry.ReceiptNo,
		"kind", entry.Kind,
	)
	return nil
}

// applyMemberDelta 会员已被删除时跳过，流水保留悬空引用
func (s *LedgerService) applyMemberDelta(ctx context.Context, tx *gorm.DB, entry *model.Transaction, delta int64) error {
	if entry.MemberID == nil || delta == 0 {
		return nil
	}
	err := s.members.ApplyContributionDelta(ctx, tx, *entry.MemberID, delta)
	if errors.Is(err, repository.ErrMemberNotFound) {
		s.logger.Warn("member of ledger entry no longer exists, contribution not adjusted",
			logging.FieldTxnID, entry.ID,
			logging.FieldMemberID, *entry.MemberID,
			logging.FieldDelta, delta,
		)
		return nil
	}
	return err
}

func (s *LedgerService) AddExpense(ctx context.Context, in AddExpenseInput) (*model.Transaction, error) {
	if in.Amount <= 0 {
		return nil, apperr.Validation(apperr.CodeInvalidAmount, "amount must be greater than 0")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, apperr.Validation(apperr.CodeMissingCategory, "category is required")
	}
	if in.FiscalYear <= 0 {
		return nil, apperr.Validation(apperr.CodeMissingFiscalYear, "fiscal year is required")
	}
	if in.PaymentMode != "" && !model.IsValidPaymentMode(in.PaymentMode) {
		return nil, apperr.Validation(apperr.CodeInvalidPaymentMode, "payment mode must be Cash, UPI or Bank")
	}

	now := s.now()
	entry := &model.Transaction{
		ReceiptNo:   idgen.GenerateReceiptNo(idgen.PrefixExpense),
		Kind:        model.KindExpense,
		Para:        strings.TrimSpace(in.Para),
		Category:    category,
		PaymentMode: in.PaymentMode,
		Notes:       in.Notes,
		Amount:      in.Amount,
		PaidAmount:  in.Amount,
		PaidDate:    &now,
		FiscalYear:  in.FiscalYear,
		CreatedBy:   in.CreatedBy,
	}
	entry.Recompute()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.txns.Create(ctx, tx, entry); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, model.EventExpenseCreated, entry)
	})
	if err != nil {
		return nil, translate(err, "add expense")
	}

	s.invalidate(ctx)
	s.logger.Info("expense added",
		logging.FieldTxnID, entry.ID,
		logging.FieldAmount, entry.Amount,
		"category", entry.Category,
	)
	return entry, nil
}

func (s *LedgerService) UpdateExpense(ctx context.Context, id int64, in UpdateExpenseInput) (*model.Transaction, error) {
	var entry *model.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.txns.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if entry.Kind != model.KindExpense {
			return apperr.State(apperr.CodeWrongEntryKind, "transaction is not an expense")
		}

		if in.Amount != nil {
			if *in.Amount <= 0 {
				return apperr.Validation(apperr.CodeInvalidAmount, "amount must be greater than 0")
			}
			entry.Amount = *in.Amount
			entry.PaidAmount = *in.Amount
		}
		if in.Category != nil {
			category := strings.TrimSpace(*in.Category)
			if category == "" {
				return apperr.Validation(apperr.CodeMissingCategory, "category is required")
			}
			entry.Category = category
		}
		if in.PaymentMode != nil {
			if *in.PaymentMode != "" && !model.IsValidPaymentMode(*in.PaymentMode) {
				return apperr.Validation(apperr.CodeInvalidPaymentMode, "payment mode must be Cash, UPI or Bank")
			}
			entry.PaymentMode = *in.PaymentMode
		}
		if in.FiscalYear != nil {
			if *in.FiscalYear <= 0 {
				return apperr.Validation(apperr.CodeMissingFiscalYear, "fiscal year is required")
			}
			entry.FiscalYear = *in.FiscalYear
		}
		if in.Para != nil {
			entry.Para = strings.TrimSpace(*in.Para)
		}
		if in.Notes != nil {
			entry.Notes = *in.Notes
		}
		entry.Recompute()

		if err := s.txns.Save(ctx, tx, entry); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, model.EventExpenseUpdated, entry)
	})
	if err != nil {
		return nil, translate(err, "update expense")
	}

	s.invalidate(ctx)
	s.logger.Info("expense updated", logging.FieldTxnID, id)
	return entry, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]*model.Transaction, error) {
	list, err := s.txns.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("list transactions", err)
	}
	return list, nil
}

func (s *LedgerService) ListExpenses(ctx context.Context, fiscalYear *int) ([]*model.Transaction, error) {
	return s.ListTransactions(ctx, repository.TransactionFilter{FiscalYear: fiscalYear, Kind: model.KindExpense})
}

func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	entry, err := s.txns.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "load transaction")
	}
	return entry, nil
}

func (s *LedgerService) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", logging.FieldError, err)
	}
}
