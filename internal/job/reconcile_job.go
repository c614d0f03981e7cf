package job

import (
	"context"
	"time"

	"pujaledger/internal/infrastructure/lock"
	"pujaledger/internal/logging"
	"pujaledger/internal/service"

	"github.com/go-redis/redis/v8"
)

// ReconcileJob 定期比对会员 contribution 与账本，只报告偏差不修正
type ReconcileJob struct {
	reconcile *service.ReconcileService
	rdb       *redis.Client
	logger    *logging.Logger
	stopCh    chan struct{}
	interval  time.Duration
}

// NewReconcileJob rdb 非空时多实例间用分布式锁保证同一时刻只有一个在跑
func NewReconcileJob(reconcile *service.ReconcileService, rdb *redis.Client, intervalMinutes int, logger *logging.Logger) *ReconcileJob {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	return &ReconcileJob{
		reconcile: reconcile,
		rdb:       rdb,
		logger:    logger.WithComponent(logging.ComponentReconcile),
		stopCh:    make(chan struct{}),
		interval:  time.Duration(intervalMinutes) * time.Minute,
	}
}

func (j *ReconcileJob) Start(ctx context.Context) {
	j.logger.Info("reconcile job started", "interval", j.interval.String())

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("reconcile job stopped by context")
			return
		case <-j.stopCh:
			j.logger.Info("reconcile job stopped")
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *ReconcileJob) Stop() {
	close(j.stopCh)
}

// runOnce 返回发现的偏差条数；未拿到锁时返回 -1
func (j *ReconcileJob) runOnce(ctx context.Context) int {
	if j.rdb != nil {
		l := lock.NewReconcileLock(j.rdb)
		ok, err := l.TryLock(ctx)
		if err != nil {
			j.logger.Error("acquire reconcile lock failed", logging.FieldError, err)
			return -1
		}
		if !ok {
			j.logger.Debug("reconcile skipped, another instance holds the lock")
			return -1
		}
		defer func() {
			if err := l.Unlock(ctx); err != nil {
				j.logger.Warn("release reconcile lock failed", logging.FieldError, err)
			}
		}()
	}

	drifts, err := j.reconcile.ReconcileContributions(ctx, false)
	if err != nil {
		j.logger.Error("reconcile contributions failed", logging.FieldError, err)
		return 0
	}
	if len(drifts) > 0 {
		j.logger.Warn("contribution drift detected", "members", len(drifts))
	}
	return len(drifts)
}
