package notify

import (
	"AltarProject/module/notify/model"
	"AltarProject/service/callable"
	"AltarProject/tools/decode"
	"AltarProject/tools/errs"
	"AltarProject/tools/ids"
	"AltarProject/tools/safe"
	"context"
	"strings"
	"time"
)

const DefaultAudience = "all"

// SendRequest 两个通知函数共用的 payload
type SendRequest struct {
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Audience string         `json:"audience"`
	Channels []string       `json:"channels"`
	Data     map[string]any `json:"data"`
}

// SendResult 两个通知函数共用的返回
type SendResult struct {
	ID        string `json:"id"`
	Queued    bool   `json:"queued"`
	Procedure string `json:"procedure"`
}

// Handler 通知函数的服务端实现：校验、分配 ID、入队
type Handler struct {
	queue Queue
	newID func() string
	now   func() time.Time
}

func NewHandler(q Queue) *Handler {
	safe.MustNotNil(q, "notify queue")
	return &Handler{queue: q, newID: ids.GenerateString, now: time.Now}
}

// Enqueue admin_enqueueNotification
func (h *Handler) Enqueue(ctx context.Context, payload map[string]any) (any, error) {
	return h.send(ctx, ProcEnqueue, model.SourceQueue, payload)
}

// ManualSend admin_manualSendNotification，旧部署上的同名函数
func (h *Handler) ManualSend(ctx context.Context, payload map[string]any) (any, error) {
	return h.send(ctx, ProcManualSend, model.SourceManual, payload)
}

func (h *Handler) send(ctx context.Context, proc, source string, payload map[string]any) (any, error) {
	req, err := decode.DecodeMap[SendRequest](payload)
	if err != nil {
		return nil, errs.ErrInvalidArgument.WrapCause(err, "decode payload")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Title == "" && req.Body == "" {
		return nil, errs.ErrInvalidArgument.WrapMsg("title or body is required")
	}
	if req.Audience == "" {
		req.Audience = DefaultAudience
	}

	n := &model.Notification{
		ID:         h.newID(),
		Title:      req.Title,
		Body:       req.Body,
		Audience:   req.Audience,
		Channels:   req.Channels,
		Data:       req.Data,
		Source:     source,
		Procedure:  proc,
		RequestID:  callable.RequestIDFromContext(ctx),
		Status:     model.StatusPending,
		CreateTime: h.now().UTC(),
	}
	if err := h.queue.Enqueue(ctx, n); err != nil {
		return nil, errs.ErrStorageTransaction.WrapCause(err, "enqueue notification", "id", n.ID)
	}
	return SendResult{ID: n.ID, Queued: true, Procedure: proc}, nil
}

// RegisterCallables 注册通知函数；procs 为空时两个都注册。
// 只注册 ProcManualSend 即模拟尚未升级的旧部署。
func (h *Handler) RegisterCallables(reg *callable.Registry, procs ...string) error {
	if len(procs) == 0 {
		procs = []string{ProcEnqueue, ProcManualSend}
	}
	for _, p := range procs {
		var fn callable.Handler
		switch p {
		case ProcEnqueue:
			fn = h.Enqueue
		case ProcManualSend:
			fn = h.ManualSend
		default:
			return errs.ErrInvalidArgument.WrapMsg("unknown notification procedure", "name", p)
		}
		if err := reg.Register(p, fn); err != nil {
			return err
		}
	}
	return nil
}
