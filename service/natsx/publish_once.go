package natsx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/nats-io/nats.go"
)

const HeaderMsgID = "Nats-Msg-Id"

// 生成随机 msgID（16字节）
func genMsgID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// PublishOnce 带 Nats-Msg-Id 的发布；JetStream 模式下服务端按 msgID 去重
// - msgID 为空则自动生成
func (c *NatsxClient) PublishOnce(ctx context.Context, subject string, data []byte, hdr map[string]string, msgID string) error {
	if msgID == "" {
		msgID = genMsgID()
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Add(k, v)
	}
	msg.Header.Set(HeaderMsgID, msgID)

	if !c.cfg.JetStream {
		if err := c.nc.PublishMsg(msg); err != nil {
			return fmt.Errorf("publish failed: %w", err)
		}
		return nil
	}

	js, err := c.ensureJS()
	if err != nil {
		return fmt.Errorf("init jetstream: %w", err)
	}
	if _, err := js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}
