package counter

import (
	"AltarProject/service/callable"
	"AltarProject/tools/decode"
	"AltarProject/tools/errs"
	"AltarProject/tools/safe"
	"context"
)

// ProcGetNextCounter 对外暴露的函数名
const ProcGetNextCounter = "getNextCounter"

// AllocateRequest getNextCounter 的 payload
type AllocateRequest struct {
	CounterName string `json:"counterName"`
	Prefix      string `json:"prefix,omitempty"`
	PadLength   *int   `json:"padLength,omitempty"`
}

// Handler 把 Allocator 暴露为 callable
type Handler struct {
	alloc *Allocator
}

func NewHandler(alloc *Allocator) *Handler {
	safe.MustNotNil(alloc, "allocator")
	return &Handler{alloc: alloc}
}

// GetNextCounter 返回 {"id": "SG00001", "seq": 1}
func (h *Handler) GetNextCounter(ctx context.Context, payload map[string]any) (any, error) {
	req, err := decode.DecodeMap[AllocateRequest](payload)
	if err != nil {
		return nil, errs.ErrInvalidArgument.WrapCause(err, "decode payload")
	}
	out, err := h.alloc.Issue(ctx, req.CounterName,
		WithPrefix(req.Prefix), WithPadLength(safe.DefaultInt(req.PadLength, DefaultPadLength)))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterCallables 注册本模块的全部函数
func (h *Handler) RegisterCallables(reg *callable.Registry) error {
	return reg.Register(ProcGetNextCounter, h.GetNextCounter)
}
