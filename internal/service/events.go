package service

import (
	"context"
	"encoding/json"
	"time"

	"pujaledger/internal/model"
	"pujaledger/internal/repository"
	"pujaledger/pkg/idgen"

	"gorm.io/gorm"
)

// LedgerEvent 账本变更事件，经 outbox 投递到消息中间件
type LedgerEvent struct {
	EventID       string    `json:"eventId"`
	EventType     string    `json:"eventType"`
	TransactionID int64     `json:"transactionId"`
	ReceiptNo     string    `json:"receiptNo"`
	Kind          string    `json:"kind"`
	MemberID      *int64    `json:"memberId,omitempty"`
	DonorID       *int64    `json:"donorId,omitempty"`
	Amount        int64     `json:"amount"`
	PaidAmount    int64     `json:"paidAmount"`
	Status        string    `json:"status"`
	FiscalYear    int       `json:"fiscalYear"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// EventRecorder 在账本事务内写入 outbox；未启用时什么也不做
type EventRecorder struct {
	enabled bool
	topic   string
	outbox  *repository.OutboxRepository
}

func NewEventRecorder(db *gorm.DB, enabled bool, topic string) *EventRecorder {
	return &EventRecorder{
		enabled: enabled,
		topic:   topic,
		outbox:  repository.NewOutboxRepository(db),
	}
}

func (r *EventRecorder) Record(ctx context.Context, tx *gorm.DB, eventType string, t *model.Transaction) error {
	if r == nil || !r.enabled {
		return nil
	}
	payload, err := json.Marshal(LedgerEvent{
		EventID:       idgen.GenerateEventKey(),
		EventType:     eventType,
		TransactionID: t.ID,
		ReceiptNo:     t.ReceiptNo,
		Kind:          t.Kind,
		MemberID:      t.MemberID,
		DonorID:       t.DonorID,
		Amount:        t.Amount,
		PaidAmount:    t.PaidAmount,
		Status:        t.Status,
		FiscalYear:    t.FiscalYear,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return r.outbox.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: t.ReceiptNo, // 同一流水的事件进入同一分区，保持顺序
		Topic:      r.topic,
		EventType:  eventType,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	})
}
