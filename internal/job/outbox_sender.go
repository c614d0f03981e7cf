package job

import (
	"context"
	"time"

	"pujaledger/internal/infrastructure/mq"
	"pujaledger/internal/logging"
	"pujaledger/internal/model"
	"pujaledger/internal/repository"

	"gorm.io/gorm"
)

// OutboxSender 轮询 outbox 表，把待发送的账本事件投递到消息中间件
type OutboxSender struct {
	outboxRepo    *repository.OutboxRepository
	publisher     mq.Publisher
	logger        *logging.Logger
	maxRetryCount int
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
}

func NewOutboxSender(db *gorm.DB, publisher mq.Publisher, maxRetryCount int, logger *logging.Logger) *OutboxSender {
	if maxRetryCount <= 0 {
		maxRetryCount = 5
	}
	return &OutboxSender{
		outboxRepo:    repository.NewOutboxRepository(db),
		publisher:     publisher,
		logger:        logger.WithComponent(logging.ComponentOutbox),
		maxRetryCount: maxRetryCount,
		stopCh:        make(chan struct{}),
		interval:      500 * time.Millisecond,
		batchSize:     100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.logger.Info("outbox sender started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("outbox sender stopped by context")
			return
		case <-s.stopCh:
			s.logger.Info("outbox sender stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// processPendingMessages 按 id 顺序投递一批，返回成功条数
func (s *OutboxSender) processPendingMessages(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("load pending outbox messages failed", logging.FieldError, err)
		return 0
	}

	// 同一 key 前面的消息投递失败时，本批跳过其后续消息，保证单条流水的事件有序
	blocked := make(map[string]struct{})
	sent := 0
	for _, msg := range messages {
		if _, ok := blocked[msg.MessageKey]; ok {
			continue
		}
		if s.sendMessage(ctx, msg) {
			sent++
		} else {
			blocked[msg.MessageKey] = struct{}{}
		}
	}
	return sent
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	err := s.publisher.Publish(ctx, msg.Topic, msg.MessageKey, []byte(msg.Payload))
	if err == nil {
		if err := s.outboxRepo.MarkAsSent(ctx, msg.ID); err != nil {
			s.logger.Error("mark outbox message sent failed", "outbox_id", msg.ID, logging.FieldError, err)
			return false
		}
		s.logger.Debug("outbox message sent",
			"outbox_id", msg.ID,
			"topic", msg.Topic,
			logging.FieldReceiptNo, msg.MessageKey,
		)
		return true
	}

	giveUp := msg.RetryCount+1 >= s.maxRetryCount
	s.logger.Warn("publish outbox message failed",
		"outbox_id", msg.ID,
		"retry_count", msg.RetryCount+1,
		"give_up", giveUp,
		logging.FieldError, err,
	)
	if err := s.outboxRepo.RecordFailure(ctx, msg.ID, giveUp); err != nil {
		s.logger.Error("record outbox failure failed", "outbox_id", msg.ID, logging.FieldError, err)
	}
	return false
}
