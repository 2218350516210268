package counter

import (
	"context"
	"sync"
)

// MemoryStore 进程内实现，用于测试和单机开发（counter.backend: memory）
type MemoryStore struct {
	mu  sync.Mutex
	seq map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seq: make(map[string]int64)}
}

func (s *MemoryStore) Load(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[name], nil
}

func (s *MemoryStore) CompareAndSwap(ctx context.Context, name string, prev, next int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq[name] != prev {
		return false, nil
	}
	s.seq[name] = next
	return true, nil
}

// Set 直接设置水位，仅供初始化/测试
func (s *MemoryStore) Set(name string, lastSeq int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[name] = lastSeq
}
