package service

import (
	"context"

	"pujaledger/internal/model"
	"pujaledger/internal/repository"

	"gorm.io/gorm"
)

// HealthStatus 健康检查结果，附带待投递和已放弃的 outbox 消息数
type HealthStatus struct {
	Status        string `json:"status"`
	OutboxPending int64  `json:"outboxPending"`
	OutboxFailed  int64  `json:"outboxFailed"`
}

type HealthService struct {
	db     *gorm.DB
	outbox *repository.OutboxRepository
}

func NewHealthService(db *gorm.DB) *HealthService {
	return &HealthService{db: db, outbox: repository.NewOutboxRepository(db)}
}

// Check 数据库不可用时返回错误
func (s *HealthService) Check(ctx context.Context) (*HealthStatus, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	pending, err := s.outbox.CountByStatus(ctx, model.OutboxStatusPending)
	if err != nil {
		return nil, err
	}
	failed, err := s.outbox.CountByStatus(ctx, model.OutboxStatusFailed)
	if err != nil {
		return nil, err
	}
	return &HealthStatus{Status: "ok", OutboxPending: pending, OutboxFailed: failed}, nil
}
