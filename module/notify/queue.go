package notify

import (
	"AltarProject/module/notify/model"
	"context"
	"sync"
)

// Queue 通知出队方（推送 worker）的入口
type Queue interface {
	Enqueue(ctx context.Context, n *model.Notification) error
}

// MemoryQueue 进程内队列，用于测试和 notify.queue: memory
type MemoryQueue struct {
	mu    sync.Mutex
	items []*model.Notification
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, n *model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	return nil
}

// Items 返回当前快照
func (q *MemoryQueue) Items() []*model.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*model.Notification(nil), q.items...)
}
