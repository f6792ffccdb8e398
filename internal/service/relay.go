package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/pkg/logger"
	"github.com/d60-Lab/relation-feed/pkg/metrics"
)

// EventPublisher 事件投递出口，生产环境为 broker.KafkaPublisher
type EventPublisher interface {
	Publish(ctx context.Context, key, eventType string, payload []byte) error
}

// Relay 轮询 outbox 并把事件投递到 EventPublisher
type Relay struct {
	db           *gorm.DB
	pub          EventPublisher
	workers      int
	claimLimit   int
	maxAttempts  int
	pollInterval time.Duration
}

func NewRelay(db *gorm.DB, pub EventPublisher, workers, claimLimit, maxAttempts int, pollInterval time.Duration) *Relay {
	if workers <= 0 {
		workers = 2
	}
	if claimLimit <= 0 {
		claimLimit = 64
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	return &Relay{db: db, pub: pub, workers: workers, claimLimit: claimLimit, maxAttempts: maxAttempts, pollInterval: pollInterval}
}

// Start 启动若干 worker 轮询处理 outbox；返回停止函数，等待在途批次结束。
func (r *Relay) Start() func(context.Context) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.loop(stop)
		}()
	}
	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stop) })
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Relay) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := r.ProcessOnce(context.Background()); err != nil {
				logger.Error("relay outbox batch failed", zap.Error(err))
			}
		}
	}
}

// claim 领取一批 pending 事件并置为 processing。
// PostgreSQL 上使用 FOR UPDATE SKIP LOCKED，多个 relay 实例互不阻塞。
func (r *Relay) claim(ctx context.Context) ([]model.Outbox, error) {
	var batch []model.Outbox
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", model.OutboxPending).
			Order("created_at").Order("id").
			Limit(r.claimLimit).
			Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
		}
		return tx.Model(&model.Outbox{}).Where("id IN ?", ids).Update("status", model.OutboxProcessing).Error
	})
	return batch, err
}

// ProcessOnce 处理一批事件，返回成功投递的条数
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := r.claim(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, ev := range batch {
		if perr := r.pub.Publish(ctx, ev.AggregateID, ev.EventType, ev.Payload); perr != nil {
			r.retry(ctx, ev, perr)
			continue
		}
		now := time.Now().UTC()
		if err := r.db.WithContext(ctx).Model(&model.Outbox{}).
			Where("id = ?", ev.ID).
			Updates(map[string]any{"status": model.OutboxDone, "processed_at": now, "last_error": ""}).Error; err != nil {
			return sent, err
		}
		metrics.OutboxEvents.WithLabelValues("done").Inc()
		sent++
	}
	return sent, nil
}

// retry 投递失败：放回 pending，超过最大次数标记 failed
func (r *Relay) retry(ctx context.Context, ev model.Outbox, perr error) {
	attempts := ev.Attempts + 1
	status := model.OutboxPending
	result := "retry"
	if attempts >= r.maxAttempts {
		status = model.OutboxFailed
		result = "failed"
	}
	metrics.OutboxEvents.WithLabelValues(result).Inc()
	logger.Warn("publish outbox event failed",
		zap.String("id", ev.ID), zap.String("event", ev.EventType), zap.Int("attempts", attempts), zap.Error(perr))
	if err := r.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ?", ev.ID).
		Updates(map[string]any{"status": status, "attempts": attempts, "last_error": perr.Error()}).Error; err != nil {
		logger.Error("update outbox event failed", zap.String("id", ev.ID), zap.Error(err))
	}
}
