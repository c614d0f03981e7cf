package model

import (
	"time"
)

// 流水类型
const (
	KindChanda             = "Chanda"
	KindDonation           = "Donation"
	KindMemberContribution = "MemberContribution"
	KindExpense            = "Expense"
)

// 付款状态
const (
	StatusPaid = "Paid"
	StatusDue  = "Due"
)

// 支出付款方式
const (
	PaymentModeCash = "Cash"
	PaymentModeUPI  = "UPI"
	PaymentModeBank = "Bank"
)

// PublicIncomeKinds 非会员收入类型，会员的钱通过 Member.Contribution 统计
var PublicIncomeKinds = []string{KindChanda, KindDonation}

func IsIncomeKind(kind string) bool {
	switch kind {
	case KindChanda, KindDonation, KindMemberContribution:
		return true
	}
	return false
}

func IsValidPaymentMode(mode string) bool {
	switch mode {
	case PaymentModeCash, PaymentModeUPI, PaymentModeBank:
		return true
	}
	return false
}

// DeriveStatus 付款状态只由金额推导，不信任存储值
func DeriveStatus(paidAmount, amount int64) string {
	if paidAmount >= amount {
		return StatusPaid
	}
	return StatusDue
}

// Transaction 账本流水（收入与支出）
//
// MemberID / DonorID 是弱引用，会员或捐赠人删除后保留原值用于展示
type Transaction struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReceiptNo    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"receiptNo"`
	Kind         string     `gorm:"type:varchar(32);index;not null" json:"kind"`
	DonorID      *int64     `gorm:"index" json:"donorId"`
	MemberID     *int64     `gorm:"index" json:"memberId"`
	DisplayName  string     `gorm:"type:varchar(128)" json:"displayName"`
	DisplayPhone string     `gorm:"type:varchar(32)" json:"displayPhone"`
	Para         string     `gorm:"type:varchar(64);index" json:"para"`
	Amount       int64      `gorm:"not null" json:"amount"`
	PaidAmount   int64      `gorm:"not null;default:0" json:"paidAmount"`
	Status       string     `gorm:"type:varchar(8);index;not null" json:"status"`
	PaidDate     *time.Time `gorm:"index" json:"paidDate"`
	Category     string     `gorm:"type:varchar(64)" json:"category"`
	PaymentMode  string     `gorm:"type:varchar(8)" json:"paymentMode,omitempty"`
	Notes        string     `gorm:"type:varchar(512)" json:"notes,omitempty"`
	FiscalYear   int        `gorm:"index;not null" json:"fiscalYear"`
	CreatedBy    int64      `gorm:"not null" json:"createdBy"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Transaction) TableName() string {
	return "ledger_transaction"
}

// Recompute 根据 PaidAmount/Amount 重新推导状态
func (t *Transaction) Recompute() {
	t.Status = DeriveStatus(t.PaidAmount, t.Amount)
}

// DisplayNameOrAnonymous 展示用名字
func (t *Transaction) DisplayNameOrAnonymous() string {
	if t.Kind == KindExpense {
		return ""
	}
	return NameOrAnonymous(t.DisplayName)
}

// DisplayPhoneOrDash 展示用电话
func (t *Transaction) DisplayPhoneOrDash() string {
	if t.DisplayPhone == "" {
		return "-"
	}
	return t.DisplayPhone
}
