package callable

import (
	"AltarProject/logger"
	"AltarProject/tools/errs"
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler 具名函数的实现；payload 为 JSON 对象，返回值必须可 JSON 序列化
type Handler func(ctx context.Context, payload map[string]any) (any, error)

// Middleware 包装 Handler，按注册顺序由外向内执行
type Middleware func(name string, next Handler) Handler

// Caller 按名字调用函数。所有 transport 客户端失败时都返回 *Error
type Caller interface {
	Call(ctx context.Context, name string, payload map[string]any) (any, error)
}

// CallerFunc 让普通函数满足 Caller
type CallerFunc func(ctx context.Context, name string, payload map[string]any) (any, error)

func (f CallerFunc) Call(ctx context.Context, name string, payload map[string]any) (any, error) {
	return f(ctx, name, payload)
}

// Registry 进程内函数表，同时是 gRPC / HTTP / NATS 服务端的分发入口
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	mids     []Middleware
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register 注册函数，重名返回 InvalidArgument
func (r *Registry) Register(name string, h Handler) error {
	if name == "" || h == nil {
		return errs.ErrInvalidArgument.WrapMsg("callable name and handler are required", "name", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; ok {
		return errs.ErrInvalidArgument.WrapMsg("callable already registered", "name", name)
	}
	r.handlers[name] = h
	return nil
}

// MustRegister 启动期注册，失败直接 panic
func (r *Registry) MustRegister(name string, h Handler) {
	if err := r.Register(name, h); err != nil {
		panic(err)
	}
}

// Unregister 删除函数，用于模拟"旧部署上不存在该函数"
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// Use 追加中间件，对之后的每次调用生效
func (r *Registry) Use(mids ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mids = append(r.mids, mids...)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Call 实现 Caller；未注册返回 NOT_FOUND
func (r *Registry) Call(ctx context.Context, name string, payload map[string]any) (any, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	mids := append([]Middleware(nil), r.mids...)
	r.mu.RUnlock()
	if !ok {
		return nil, NewError(StatusNotFound, "function %s not found", name)
	}
	for i := len(mids) - 1; i >= 0; i-- {
		h = mids[i](name, h)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	res, err := h(ctx, payload)
	if err != nil {
		return nil, FromError(err)
	}
	return res, nil
}

// Recovery 把 handler 的 panic 转成 INTERNAL
func Recovery() Middleware {
	return func(name string, next Handler) Handler {
		return func(ctx context.Context, payload map[string]any) (res any, err error) {
			defer func() {
				if p := recover(); p != nil {
					logger.L("callable").Error("handler panic", zap.String("function", name), zap.Any("panic", p), zap.Stack("stack"))
					res, err = nil, NewError(StatusInternal, "internal error").WithCause(errs.ErrPanic(p))
				}
			}()
			return next(ctx, payload)
		}
	}
}

// AccessLog 记录每次调用的耗时和状态
func AccessLog(l *zap.Logger) Middleware {
	if l == nil {
		l = logger.L("callable")
	}
	return func(name string, next Handler) Handler {
		return func(ctx context.Context, payload map[string]any) (any, error) {
			start := time.Now()
			res, err := next(ctx, payload)
			fields := []zap.Field{zap.String("function", name), zap.Duration("cost", time.Since(start))}
			if id := RequestIDFromContext(ctx); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}
			if err != nil {
				l.Warn("callable failed", append(fields, zap.String("status", string(FromError(err).Status)), zap.Error(err))...)
			} else {
				l.Info("callable ok", fields...)
			}
			return res, err
		}
	}
}
