package server

import (
	"AltarProject/data/database"
	"AltarProject/data/database/bolt"
	"AltarProject/data/database/pg"
	"AltarProject/global/config"
	"AltarProject/logger"
	"AltarProject/module/counter"
	"AltarProject/module/notify"
	"AltarProject/service/callable"
	"AltarProject/service/kafka"
	mgoSrv "AltarProject/service/mgo"
	"AltarProject/service/natsx"
	"AltarProject/service/rpc"
	redis "AltarProject/service/storage/redis"
	"AltarProject/tools/errs"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Resources 按配置懒加载外部连接（Mongo/Redis/Postgres/bbolt/NATS/Kafka/gRPC），Close 时逆序释放
type Resources struct {
	cfg *config.AppConfig
	log *zap.Logger

	mu      sync.Mutex
	closers []func(context.Context) error

	mongoGate readyGate

	nats *natsx.NatsxClient
}

func NewResources(cfg *config.AppConfig) *Resources {
	return &Resources{cfg: cfg, log: logger.L("resources")}
}

func (r *Resources) onClose(fn func(context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, fn)
}

func (r *Resources) Close(ctx context.Context) error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var all []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			all = append(all, err)
		}
	}
	return errors.Join(all...)
}

// readyGate start 只执行一次；等待失败不缓存，下次调用重新等待
type readyGate struct {
	mu      sync.Mutex
	started bool
	ready   bool
}

func (g *readyGate) wait(ctx context.Context, start func(), wait func(context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ready {
		return nil
	}
	if !g.started {
		start()
		g.started = true
	}
	if err := wait(ctx); err != nil {
		return err
	}
	g.ready = true
	return nil
}

// mongo 交给 service/mgo 的后台管理器，首次连上之前阻塞
func (r *Resources) mongo(ctx context.Context) (database.DBProvider, error) {
	err := r.mongoGate.wait(ctx, func() {
		runCtx, cancel := context.WithCancel(context.Background())
		mgoSrv.StartAsync(runCtx, &r.cfg.Mongo)
		r.onClose(func(context.Context) error { cancel(); return nil })
	}, func(ctx context.Context) error {
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return mgoSrv.WaitReady(waitCtx, mgoSrv.Manager())
	})
	if err != nil {
		return nil, err
	}
	return mgoSrv.TryGetDB, nil
}

func (r *Resources) NATS() (*natsx.NatsxClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nats != nil {
		return r.nats, nil
	}
	cli, err := natsx.NewNatsxClient(r.cfg.NATS)
	if err != nil {
		return nil, err
	}
	r.nats = cli
	r.closers = append(r.closers, func(context.Context) error { return cli.Close() })
	return cli, nil
}

// CounterStore counter.backend 对应的存储
func (r *Resources) CounterStore(ctx context.Context) (counter.Store, error) {
	c := r.cfg.Counter
	switch c.Backend {
	case config.BackendMemory:
		return counter.NewMemoryStore(), nil
	case config.BackendMongo:
		db, err := r.mongo(ctx)
		if err != nil {
			return nil, err
		}
		return counter.NewMongoStoreFrom(db, c.Collection), nil
	case config.BackendRedis:
		if err := redis.InitRedis(r.cfg.Redis); err != nil {
			return nil, errs.WrapMsg(err, "init redis", "addr", r.cfg.Redis.Addr)
		}
		r.onClose(func(context.Context) error { return redis.CloseRedis() })
		return counter.NewRedisStore(redis.GetRedis(), c.Collection), nil
	case config.BackendPostgres:
		pool, err := pg.NewPool(ctx, r.cfg.Postgres)
		if err != nil {
			return nil, err
		}
		r.onClose(func(context.Context) error { pool.Close(); return nil })
		s := counter.NewPostgresStore(pool, c.Collection)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, errs.WrapMsg(err, "ensure counter schema")
		}
		return s, nil
	case config.BackendBolt:
		db, err := bolt.Open(r.cfg.Bolt)
		if err != nil {
			return nil, err
		}
		r.onClose(func(context.Context) error { return db.Close() })
		s, err := counter.NewBoltStore(db, c.Collection)
		if err != nil {
			return nil, errs.WrapMsg(err, "init bolt bucket", "path", r.cfg.Bolt.Path)
		}
		return s, nil
	default:
		return nil, errs.ErrInvalidArgument.WrapMsg("unknown counter backend", "backend", c.Backend)
	}
}

// Allocator 按 counter 配置构造发号器
func (r *Resources) Allocator(ctx context.Context) (*counter.Allocator, error) {
	store, err := r.CounterStore(ctx)
	if err != nil {
		return nil, err
	}
	c := r.cfg.Counter
	return counter.NewAllocator(store, counter.Options{
		MaxRetry:    c.MaxRetry,
		BaseBackoff: c.BaseBackoff,
		MaxBackoff:  c.MaxBackoff,
	}), nil
}

// NotifyQueue notify.queue 对应的通知队列
func (r *Resources) NotifyQueue(ctx context.Context) (notify.Queue, error) {
	n := r.cfg.Notify
	switch n.Queue {
	case config.QueueMemory:
		return notify.NewMemoryQueue(), nil
	case config.QueueKafka:
		topic := n.Subject
		if topic == "" {
			topic = r.cfg.Kafka.Topic
		}
		if topic == "" {
			topic = notify.DefaultKafkaTopic
		}
		if r.cfg.Kafka.AutoCreateTopic {
			if err := kafka.EnsureTopicWith(r.cfg.Kafka, topic); err != nil {
				return nil, err
			}
		}
		p, err := kafka.NewSyncProducer(r.cfg.Kafka)
		if err != nil {
			return nil, errs.WrapMsg(err, "kafka producer", "brokers", r.cfg.Kafka.Brokers)
		}
		q := notify.NewKafkaQueue(p, topic)
		r.onClose(func(context.Context) error { return q.Close() })
		return q, nil
	case config.QueueNATS:
		cli, err := r.NATS()
		if err != nil {
			return nil, err
		}
		return notify.NewNATSQueue(cli, n.Subject), nil
	case config.QueueMongo:
		db, err := r.mongo(ctx)
		if err != nil {
			return nil, err
		}
		return notify.NewMongoQueue(db), nil
	default:
		return nil, errs.ErrInvalidArgument.WrapMsg("unknown notify queue", "queue", n.Queue)
	}
}

// Caller notify.transport 对应的远端调用方式；local 直接走进程内 Registry
func (r *Resources) Caller(ctx context.Context, local *callable.Registry) (callable.Caller, error) {
	n := r.cfg.Notify
	switch n.Transport {
	case config.TransportLocal:
		if local == nil {
			return nil, errs.ErrInvalidArgument.WrapMsg("local transport needs a registry")
		}
		return local, nil
	case config.TransportHTTP:
		return callable.NewHTTPClient(callable.HTTPConfig{BaseURL: n.Target, Timeout: n.Timeout, Token: n.Token}), nil
	case config.TransportGRPC:
		m := rpc.NewManager(rpc.Config{Target: n.Target, DialTimeout: n.Timeout, HealthService: callable.GRPCServiceName})
		m.Start()
		r.onClose(func(context.Context) error { m.Stop(); return nil })
		waitCtx, cancel := context.WithTimeout(ctx, n.Timeout)
		defer cancel()
		if err := m.WaitReady(waitCtx); err != nil {
			r.log.Warn("grpc target not ready yet", zap.String("target", n.Target), zap.Error(err))
		}
		return callable.NewGRPCClient(m), nil
	case config.TransportNATS:
		cli, err := r.NATS()
		if err != nil {
			return nil, err
		}
		return callable.NewNATSClient(cli.Conn(), r.cfg.NATS.SubjectPrefix), nil
	default:
		return nil, errs.ErrInvalidArgument.WrapMsg("unknown notify transport", "transport", n.Transport)
	}
}
