package callable

import (
	"AltarProject/logger"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const DefaultNATSSubjectPrefix = "callable."

func natsPrefix(p string) string {
	if p == "" {
		return DefaultNATSSubjectPrefix
	}
	if !strings.HasSuffix(p, ".") {
		p += "."
	}
	return p
}

// NATSClient request/reply 调用；没有订阅者时 NATS 返回 ErrNoResponders，映射为 NOT_FOUND
type NATSClient struct {
	nc     *nats.Conn
	prefix string
}

func NewNATSClient(nc *nats.Conn, subjectPrefix string) *NATSClient {
	return &NATSClient{nc: nc, prefix: natsPrefix(subjectPrefix)}
}

func (c *NATSClient) Call(ctx context.Context, name string, payload map[string]any) (any, error) {
	data, err := json.Marshal(httpRequest{Data: payload})
	if err != nil {
		return nil, NewError(StatusInvalidArgument, "encode payload: %v", err).WithCause(err)
	}
	msg := nats.NewMsg(c.prefix + name)
	msg.Data = data
	if id := RequestIDFromContext(ctx); id != "" {
		msg.Header.Set(HeaderRequestID, id)
	}

	reply, err := c.nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return nil, NewError(StatusNotFound, "function %s not found: %v", name, err).WithCause(err)
		}
		if errors.Is(err, nats.ErrTimeout) {
			return nil, NewError(StatusDeadlineExceeded, "%v", err).WithCause(err)
		}
		if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrInvalidConnection) {
			return nil, NewError(StatusUnavailable, "%v", err).WithCause(err)
		}
		return nil, FromError(err)
	}

	var out httpResponse
	if err := json.Unmarshal(reply.Data, &out); err != nil {
		return nil, NewError(StatusInternal, "decode reply: %v", err).WithCause(err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return out.Result, nil
}

// ServeNATS 以 queue group 订阅 {prefix}>，把请求分发到 Registry
func ServeNATS(nc *nats.Conn, reg *Registry, subjectPrefix, queue string) (*nats.Subscription, error) {
	prefix := natsPrefix(subjectPrefix)
	log := logger.L("callable.nats")
	return nc.QueueSubscribe(prefix+">", queue, func(m *nats.Msg) {
		name := strings.TrimPrefix(m.Subject, prefix)
		ctx := context.Background()
		if m.Header != nil {
			ctx = WithRequestID(ctx, m.Header.Get(HeaderRequestID))
		}

		var (
			req httpRequest
			out httpResponse
		)
		if len(m.Data) > 0 {
			if err := json.Unmarshal(m.Data, &req); err != nil {
				out.Error = NewError(StatusInvalidArgument, "invalid request body: %v", err)
			}
		}
		if out.Error == nil {
			res, err := reg.Call(ctx, name, req.Data)
			if err != nil {
				out.Error = FromError(err)
			} else {
				out.Result = res
			}
		}

		data, err := json.Marshal(out)
		if err != nil {
			log.Error("encode reply", zap.String("function", name), zap.Error(err))
			data, _ = json.Marshal(httpResponse{Error: NewError(StatusInternal, "encode result: %v", err)})
		}
		if err := m.Respond(data); err != nil {
			log.Warn("respond failed", zap.String("subject", m.Subject), zap.Error(err))
		}
	})
}
