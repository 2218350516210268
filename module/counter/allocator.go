package counter

import (
	"AltarProject/logger"
	"AltarProject/tools/errs"
	"AltarProject/tools/safe"
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	defaultMaxRetry    = 10
	defaultBaseBackoff = 2 * time.Millisecond
	defaultMaxBackoff  = 50 * time.Millisecond

	MaxNameLength = 256 // 计数器名的最大字节数，超出返回 InvalidArgument
	MaxPadLength  = 64  // 补零位数上限，超出返回 InvalidArgument
)

// errConflict CAS 时 last_seq 已被别的调用方改掉，需要重读再试
var errConflict = errors.New("counter: concurrent update")

type Options struct {
	MaxRetry    int           // CAS 冲突后的最大重试次数
	BaseBackoff time.Duration // 首次重试等待
	MaxBackoff  time.Duration // 单次等待上限
}

// Allocator 按计数器名发放严格递增、无空洞、无重复的序号。
// 不缓存号段：每次都重新读取当前 last_seq 再 CAS。
type Allocator struct {
	store Store
	opts  Options
	log   *zap.Logger
}

func NewAllocator(store Store, opts Options) *Allocator {
	safe.MustNotNil(store, "counter store")
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = defaultMaxRetry
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = defaultBaseBackoff
	}
	if opts.MaxBackoff < opts.BaseBackoff {
		opts.MaxBackoff = defaultMaxBackoff
		if opts.MaxBackoff < opts.BaseBackoff {
			opts.MaxBackoff = opts.BaseBackoff
		}
	}
	return &Allocator{store: store, opts: opts, log: logger.L("counter")}
}

type allocOptions struct {
	prefix    string
	padLength int
}

type AllocOption func(*allocOptions)

// WithPrefix 展示 ID 的前缀，默认 ""
func WithPrefix(prefix string) AllocOption {
	return func(o *allocOptions) { o.prefix = prefix }
}

// WithPadLength 补零后的最少位数，默认 5，取值 [1, MaxPadLength]，越界返回 InvalidArgument
func WithPadLength(n int) AllocOption {
	return func(o *allocOptions) { o.padLength = n }
}

// Allocation 一次发号的结果
type Allocation struct {
	ID  string `json:"id"`
	Seq int64  `json:"seq"`
}

// Allocate 发放 name 的下一个序号并渲染成展示 ID，例如 Allocate(ctx, "server_group_seq", WithPrefix("SG")) => "SG00001"
func (a *Allocator) Allocate(ctx context.Context, name string, opts ...AllocOption) (string, error) {
	out, err := a.Issue(ctx, name, opts...)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

// Issue 同 Allocate，同时返回数值序号
func (a *Allocator) Issue(ctx context.Context, name string, opts ...AllocOption) (Allocation, error) {
	o := allocOptions{padLength: DefaultPadLength}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateName(name); err != nil {
		return Allocation{}, err
	}
	if o.padLength < 1 || o.padLength > MaxPadLength {
		return Allocation{}, errs.ErrInvalidArgument.WrapMsg("pad length out of range", "padLength", o.padLength)
	}

	seq, err := a.NextSeq(ctx, name)
	if err != nil {
		return Allocation{}, err
	}
	return Allocation{ID: Format(o.prefix, seq, o.padLength), Seq: seq}, nil
}

// NextSeq 原子地把 name 的 last_seq 加一并返回新值。
// 失败时 last_seq 保持不变（不会烧号），返回 StorageTransactionError，调用方可整体重试。
func (a *Allocator) NextSeq(ctx context.Context, name string) (int64, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}

	var (
		next     int64
		attempts int
	)
	op := func() error {
		attempts++
		cur, err := a.store.Load(ctx, name)
		if err != nil {
			return backoff.Permanent(err)
		}
		if cur < 0 {
			return backoff.Permanent(errs.New("negative last_seq", "counter", name, "last_seq", cur))
		}
		ok, err := a.store.CompareAndSwap(ctx, name, cur, cur+1)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			a.log.Debug("cas conflict", zap.String("counter", name), zap.Int64("seen", cur), zap.Int("attempt", attempts))
			return errConflict
		}
		next = cur + 1
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(a.newBackOff(), uint64(a.opts.MaxRetry)), ctx)); err != nil {
		if errors.Is(err, errConflict) {
			a.log.Error("retry budget exhausted", zap.String("counter", name), zap.Int("attempts", attempts))
			return 0, errs.ErrStorageTransaction.WrapMsg("retry budget exhausted", "counter", name, "attempts", attempts)
		}
		return 0, errs.ErrStorageTransaction.WrapCause(err, "allocate", "counter", name, "attempts", attempts)
	}
	return next, nil
}

// Current 读取 name 当前的 last_seq，不做修改
func (a *Allocator) Current(ctx context.Context, name string) (int64, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}
	cur, err := a.store.Load(ctx, name)
	if err != nil {
		return 0, errs.ErrStorageTransaction.WrapCause(err, "load", "counter", name)
	}
	return cur, nil
}

func (a *Allocator) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.opts.BaseBackoff
	b.MaxInterval = a.opts.MaxBackoff
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxElapsedTime = 0 // 只受 MaxRetry 和 ctx 约束
	b.Reset()
	return b
}

func validateName(name string) error {
	if name == "" {
		return errs.ErrInvalidArgument.WrapMsg("counter name is required")
	}
	if len(name) > MaxNameLength {
		return errs.ErrInvalidArgument.WrapMsg("counter name too long", "length", len(name))
	}
	return nil
}
