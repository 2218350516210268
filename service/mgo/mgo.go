package mgo

import (
	mgo "AltarProject/data/database/mgo/mongoutil"
	"AltarProject/logger"
	"AltarProject/tools/safe"
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type MongoManager struct {
	mu        sync.RWMutex
	client    *mgo.Client
	readyCh   chan struct{} // 首次就绪通知；只会被 close 一次
	readyOnce sync.Once

	lastErr atomic.Value // error
}

var globalMgr = MongoManager{readyCh: make(chan struct{})}

// StartAsync 一直运行到 ctx.Done()；首次连上时 close readyCh，后续掉线会自动重连
func StartAsync(ctx context.Context, cfg *mgo.Config) {
	safe.SafeGo(func() { globalMgr.run(ctx, cfg) })
}

func (m *MongoManager) run(ctx context.Context, cfg *mgo.Config) {
	const (
		baseBackoff = 200 * time.Millisecond
		maxBackoff  = 5 * time.Second
		healthEvery = 10 * time.Second
		failThresh  = 3
	)

	for {
		// ===== 连接阶段（带退避重试） =====
		attempt := 0
		for {
			if ctx.Err() != nil {
				return
			}
			cli, err := mgo.NewMongoDB(ctx, cfg)
			if err == nil {
				m.mu.Lock()
				m.client = cli
				m.mu.Unlock()
				m.readyOnce.Do(func() { close(m.readyCh) })
				logger.Info("mongo connected", zap.String("database", cfg.Database))
				break
			}

			m.lastErr.Store(err)
			logger.Warn("mongo connect failed", zap.Int("attempt", attempt), zap.Error(err))

			backoff := baseBackoff << attempt
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			jitter := time.Duration(rand.Int63n(int64(backoff / 5))) // 0~20%
			if !sleepCtx(ctx, backoff-jitter/2) {
				return
			}
			if attempt < 6 {
				attempt++
			}
		}

		// ===== 健康检查阶段（保持/掉线→重连）=====
		if !m.healthLoop(ctx, healthEvery, failThresh) {
			return
		}
	}
}

// healthLoop 返回 false 表示 ctx 结束，true 表示需要重连
func (m *MongoManager) healthLoop(ctx context.Context, every time.Duration, failThresh int) bool {
	fail := 0
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.drop()
			return false
		case <-ticker.C:
			m.mu.RLock()
			c := m.client
			m.mu.RUnlock()
			if c == nil {
				return true
			}
			if err := c.GetDB().Client().Ping(ctx, nil); err != nil {
				fail++
				m.lastErr.Store(err)
				if fail >= failThresh {
					logger.Warn("mongo ping failed, reconnecting", zap.Error(err))
					m.drop()
					return true
				}
			} else {
				fail = 0
			}
		}
	}
}

func (m *MongoManager) drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		_ = m.client.Close(context.Background())
		m.client = nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Ready 首次连接成功时会 close；可 select 等待
func Ready() <-chan struct{} {
	return globalMgr.readyCh
}

func Manager() *MongoManager {
	return &globalMgr
}

// Err 最近一次错误
func Err() error {
	if v := globalMgr.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func GetDB() *mongo.Database {
	db, ok := TryGetDB()
	if !ok {
		panic("Mongo not ready: wait Ready() or use TryGetDB()")
	}
	return db
}

func TryGetDB() (*mongo.Database, bool) {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.client == nil {
		return nil, false
	}
	return globalMgr.client.GetDB(), true
}

func WaitReady(ctx context.Context, m *MongoManager) error {
	m.mu.RLock()
	ready := m.client != nil
	m.mu.RUnlock()
	if ready {
		return nil
	}

	select {
	case <-m.readyCh:
		return nil
	case <-ctx.Done():
		if err := Err(); err != nil {
			return fmt.Errorf("mongo not ready: %w", err)
		}
		return ctx.Err()
	}
}
