package notify

import (
	"AltarProject/module/notify/model"
	"AltarProject/service/natsx"
	"AltarProject/tools/errs"
	"context"
	"encoding/json"
)

const DefaultNATSSubject = "altar.notifications"

// NATSQueue 以通知 ID 作为 Nats-Msg-Id 发布，JetStream 下重复入队会被服务端去重
type NATSQueue struct {
	cli     *natsx.NatsxClient
	subject string
}

func NewNATSQueue(cli *natsx.NatsxClient, subject string) *NATSQueue {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSQueue{cli: cli, subject: subject}
}

func (q *NATSQueue) Enqueue(ctx context.Context, n *model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return errs.WrapMsg(err, "marshal notification", "id", n.ID)
	}
	hdr := map[string]string{"Source": n.Source, "Audience": n.Audience}
	if err := q.cli.PublishOnce(ctx, q.subject, data, hdr, n.ID); err != nil {
		return errs.WrapMsg(err, "nats publish", "subject", q.subject, "id", n.ID)
	}
	return nil
}
