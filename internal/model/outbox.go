package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 账本事件类型
const (
	EventIncomeCreated  = "ledger.income.created"
	EventIncomeUpdated  = "ledger.income.updated"
	EventIncomePaid     = "ledger.income.paid"
	EventIncomeDeleted  = "ledger.income.deleted"
	EventExpenseCreated = "ledger.expense.created"
	EventExpenseUpdated = "ledger.expense.updated"
	EventExpenseDeleted = "ledger.expense.deleted"
)

// OutboxMessage 与账本写入同一事务落库，由 job.OutboxSender 投递
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"messageKey"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	EventType  string    `gorm:"type:varchar(64);not null" json:"eventType"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retryCount"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}
