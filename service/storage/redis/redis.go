package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisMu  sync.Mutex
	redisMgr *RedisManager
)

type RedisManager struct {
	client *redis.Client
}

// Config 用于初始化 Redis
type Config struct {
	Addr        string        `yaml:"addr" mapstructure:"addr"`
	Password    string        `yaml:"password" mapstructure:"password"`
	DB          int           `yaml:"db" mapstructure:"db"`
	PoolSize    int           `yaml:"poolSize" mapstructure:"poolSize"`
	DialTimeout time.Duration `yaml:"dialTimeout" mapstructure:"dialTimeout"`
}

// NewClient 创建并 Ping 一个独立客户端（不影响全局单例）
func NewClient(ctx context.Context, c Config) (*redis.Client, error) {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 3 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		PoolSize:    c.PoolSize,
		DialTimeout: c.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, c.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// InitRedis 初始化 Redis 管理器（单例），失败后可再次调用
func InitRedis(c Config) error {
	redisMu.Lock()
	defer redisMu.Unlock()
	if redisMgr != nil {
		return nil
	}
	rdb, err := NewClient(context.Background(), c)
	if err != nil {
		return err
	}
	redisMgr = &RedisManager{client: rdb}
	return nil
}

// GetRedis 获取 Redis Client
func GetRedis() *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()
	if redisMgr == nil {
		panic("Redis not initialized, call InitRedis first")
	}
	return redisMgr.client
}

// CloseRedis 关闭连接
func CloseRedis() error {
	redisMu.Lock()
	defer redisMu.Unlock()
	if redisMgr != nil && redisMgr.client != nil {
		err := redisMgr.client.Close()
		redisMgr = nil
		return err
	}
	return nil
}
