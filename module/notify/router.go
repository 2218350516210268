package notify

import (
	"AltarProject/logger"
	"AltarProject/service/callable"
	"AltarProject/tools/safe"
	"context"

	"go.uber.org/zap"
)

const (
	ProcEnqueue    = "admin_enqueueNotification"
	ProcManualSend = "admin_manualSendNotification"
)

// Router 发送通知：优先调用新函数，仅当新函数在目标部署上不存在时回退到旧函数。
// 每次调用都重新判断，不记忆上一次的结果。
type Router struct {
	caller  callable.Caller
	primary string
	legacy  string
	log     *zap.Logger
}

type RouterOption func(*Router)

// WithProcedures 覆盖主/备函数名，空字符串保持默认
func WithProcedures(primary, legacy string) RouterOption {
	return func(r *Router) {
		if primary != "" {
			r.primary = primary
		}
		if legacy != "" {
			r.legacy = legacy
		}
	}
}

func WithLogger(l *zap.Logger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

func NewRouter(caller callable.Caller, opts ...RouterOption) *Router {
	safe.MustNotNil(caller, "caller")
	r := &Router{
		caller:  caller,
		primary: ProcEnqueue,
		legacy:  ProcManualSend,
		log:     logger.L("notify.router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Primary() string { return r.primary }
func (r *Router) Legacy() string  { return r.legacy }

// SendNotification 最多两次顺序调用。
// 非"不存在"类错误原样返回；回退调用失败时返回回退调用的错误。
func (r *Router) SendNotification(ctx context.Context, payload map[string]any) (any, error) {
	res, err := r.caller.Call(ctx, r.primary, payload)
	if err == nil {
		return res, nil
	}
	if !IsFunctionNotFound(err, r.primary) {
		return nil, err
	}

	r.log.Warn("primary procedure unavailable, falling back",
		zap.String("primary", r.primary),
		zap.String("legacy", r.legacy),
		zap.String("request_id", callable.RequestIDFromContext(ctx)),
		zap.Error(err))

	return r.caller.Call(ctx, r.legacy, payload)
}
