package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/repository"
	"github.com/d60-Lab/relation-feed/pkg/logger"
	"github.com/d60-Lab/relation-feed/pkg/metrics"
)

// Notifier 本地异步通知投递：关注、点赞等写操作不等待通知落库
type Notifier struct {
	repo repository.NotificationRepository
	ch   chan model.Notification
	wg   sync.WaitGroup
	// 每条通知落库后发送一次耗时，供基准统计；满了直接丢弃
	metricsCh chan time.Duration
}

func NewNotifier(repo repository.NotificationRepository, queueSize int) *Notifier {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &Notifier{repo: repo, ch: make(chan model.Notification, queueSize), metricsCh: make(chan time.Duration, 1024)}
}

// Start 启动 workers 个消费协程，返回停止函数。
// 停止时先等待队列排空（直到 ctx 结束），再通知 worker 退出。
func (n *Notifier) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			for {
				select {
				case job := <-n.ch:
					n.deliver(job)
				case <-stopCh:
					return
				}
			}
		}()
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() {
			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
		drain:
			for len(n.ch) > 0 {
				select {
				case <-ctx.Done():
					err = ctx.Err()
					break drain
				case <-ticker.C:
				}
			}
			close(stopCh)
			n.wg.Wait()
		})
		return err
	}
}

func (n *Notifier) deliver(job model.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	enq := job.CreatedAt
	job.CreatedAt = time.Time{}
	if err := n.repo.Create(ctx, &job); err != nil {
		logger.Error("deliver notification failed",
			zap.String("recipient", job.RecipientID), zap.String("verb", job.Verb), zap.Error(err))
		return
	}
	if !enq.IsZero() {
		select {
		case n.metricsCh <- time.Since(enq):
		default:
		}
	}
}

// Enqueue 非阻塞入队；队列满时丢弃并返回 false
func (n *Notifier) Enqueue(job model.Notification) bool {
	// CreatedAt 暂存入队时间，落库前清空由数据库填充
	job.CreatedAt = time.Now()
	select {
	case n.ch <- job:
		return true
	default:
		metrics.NotificationsDropped.Inc()
		logger.Warn("notifier queue full, drop notification",
			zap.String("recipient", job.RecipientID), zap.String("actor", job.ActorID), zap.String("verb", job.Verb))
		return false
	}
}

// Metrics 返回通知落库耗时的只读通道
func (n *Notifier) Metrics() <-chan time.Duration { return n.metricsCh }

// QueueLen 返回当前队列长度（采样值）
func (n *Notifier) QueueLen() int { return len(n.ch) }
