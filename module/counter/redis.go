package counter

import (
	"AltarProject/module/counter/model"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "counters:"

// RedisStore 每个计数器一个 hash：counters:{name} -> {last_seq, update_time}
// CAS 用 WATCH + MULTI，事务被打断（TxFailedErr）即视为冲突。
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore keyPrefix 不以 ":" 结尾时自动补上，"counters" 与 "counters:" 等价
func NewRedisStore(rdb redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultRedisKeyPrefix
	}
	if !strings.HasSuffix(keyPrefix, ":") {
		keyPrefix += ":"
	}
	return &RedisStore{rdb: rdb, prefix: keyPrefix}
}

func (s *RedisStore) key(name string) string { return s.prefix + name }

func (s *RedisStore) Load(ctx context.Context, name string) (int64, error) {
	return readLastSeq(ctx, s.rdb, s.key(name))
}

var errRedisMismatch = errors.New("last_seq mismatch")

func (s *RedisStore) CompareAndSwap(ctx context.Context, name string, prev, next int64) (bool, error) {
	key := s.key(name)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readLastSeq(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur != prev {
			return errRedisMismatch
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key,
				model.CounterFieldLastSeq, next,
				model.CounterFieldUpdateTime, time.Now().UnixMilli(),
			)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, errRedisMismatch):
		return false, nil
	default:
		return false, err
	}
}

type hashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func readLastSeq(ctx context.Context, c hashGetter, key string) (int64, error) {
	v, err := c.HGet(ctx, key, model.CounterFieldLastSeq).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}
