package server

import (
	"AltarProject/module/counter"
	"AltarProject/module/notify"
	"AltarProject/service/callable"
	"context"
)

// BuildRegistry 注册本服务对外提供的全部函数：getNextCounter 与通知函数
func BuildRegistry(ctx context.Context, res *Resources) (*callable.Registry, error) {
	reg := callable.NewRegistry()
	reg.Use(callable.Recovery(), callable.AccessLog(nil))

	alloc, err := res.Allocator(ctx)
	if err != nil {
		return nil, err
	}
	if err := counter.NewHandler(alloc).RegisterCallables(reg); err != nil {
		return nil, err
	}

	q, err := res.NotifyQueue(ctx)
	if err != nil {
		return nil, err
	}
	if err := notify.NewHandler(q).RegisterCallables(reg, res.cfg.Notify.Serve...); err != nil {
		return nil, err
	}
	return reg, nil
}

// Router 按 notify 配置构造通知路由；local 传输时直接调用 reg
func Router(ctx context.Context, res *Resources, reg *callable.Registry) (*notify.Router, error) {
	caller, err := res.Caller(ctx, reg)
	if err != nil {
		return nil, err
	}
	n := res.cfg.Notify
	return notify.NewRouter(caller, notify.WithProcedures(n.Primary, n.Legacy)), nil
}
