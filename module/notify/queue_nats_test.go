package notify

import (
	"AltarProject/module/notify/model"
	"AltarProject/service/callable"
	"AltarProject/service/natsx"
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runNATS(t *testing.T, jetStream bool) *server.Server {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	if jetStream {
		opts.JetStream = true
		opts.StoreDir = t.TempDir()
	}
	s := natsserver.RunServer(&opts)
	t.Cleanup(s.Shutdown)
	return s
}

func newNATSClient(t *testing.T, s *server.Server, jetStream bool) *natsx.NatsxClient {
	t.Helper()
	cli, err := natsx.NewNatsxClient(natsx.NatsxConfig{Servers: []string{s.ClientURL()}, Name: "altar-test", JetStream: jetStream})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })
	return cli
}

func testNotification(id string) *model.Notification {
	return &model.Notification{
		ID:         id,
		Title:      "Sunday Mass",
		Audience:   "group:servers",
		Source:     model.SourceQueue,
		Procedure:  ProcEnqueue,
		Status:     model.StatusPending,
		CreateTime: time.Unix(1700000000, 0).UTC(),
	}
}

func TestNATSQueueSetsMsgID(t *testing.T) {
	s := runNATS(t, false)
	cli := newNATSClient(t, s, false)

	sub, err := cli.Conn().SubscribeSync(DefaultNATSSubject)
	require.NoError(t, err)
	require.NoError(t, cli.Conn().Flush())

	require.NoError(t, NewNATSQueue(cli, "").Enqueue(context.Background(), testNotification("1001")))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "1001", msg.Header.Get(natsx.HeaderMsgID))
	assert.Equal(t, model.SourceQueue, msg.Header.Get("Source"))
	assert.Equal(t, "group:servers", msg.Header.Get("Audience"))

	var got model.Notification
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "1001", got.ID)
	assert.Equal(t, "Sunday Mass", got.Title)
}

// JetStream 按 Nats-Msg-Id 去重：同一通知重复入队只落一条
func TestNATSQueueJetStreamDedup(t *testing.T) {
	s := runNATS(t, true)
	cli := newNATSClient(t, s, true)

	js, err := cli.Conn().JetStream()
	require.NoError(t, err)
	_, err = js.AddStream(&nats.StreamConfig{Name: "NOTIFY", Subjects: []string{"altar.notify.>"}, Duplicates: time.Minute})
	require.NoError(t, err)

	q := NewNATSQueue(cli, "altar.notify.queue")
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, testNotification("2001")))
	require.NoError(t, q.Enqueue(ctx, testNotification("2001")))
	require.NoError(t, q.Enqueue(ctx, testNotification("2002")))

	info, err := js.StreamInfo("NOTIFY")
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.State.Msgs)
}

func TestNATSQueueJetStreamWithoutStream(t *testing.T) {
	s := runNATS(t, true)
	cli := newNATSClient(t, s, true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := NewNATSQueue(cli, "altar.unbound").Enqueue(ctx, testNotification("3001"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nats publish")
}

// 主函数在 NATS 上无人订阅（no responders）时回退到旧函数
func TestRouterFallsBackOverNATS(t *testing.T) {
	s := runNATS(t, false)
	cli := newNATSClient(t, s, false)
	nc := cli.Conn()

	var legacyCalls atomic.Int32
	_, err := nc.Subscribe(callable.DefaultNATSSubjectPrefix+ProcManualSend, func(m *nats.Msg) {
		legacyCalls.Add(1)
		var req struct {
			Data map[string]any `json:"data"`
		}
		_ = json.Unmarshal(m.Data, &req)
		out, _ := json.Marshal(map[string]any{"result": map[string]any{"procedure": ProcManualSend, "title": req.Data["title"]}})
		_ = m.Respond(out)
	})
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	r := NewRouter(callable.NewNATSClient(nc, ""))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := r.SendNotification(ctx, map[string]any{"title": "Vigil"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"procedure": ProcManualSend, "title": "Vigil"}, res)
	assert.EqualValues(t, 1, legacyCalls.Load())
}

// 两个函数都在线时只调主函数
func TestRouterPrimaryOverNATS(t *testing.T) {
	s := runNATS(t, false)
	cli := newNATSClient(t, s, false)

	q := NewMemoryQueue()
	reg := callable.NewRegistry()
	require.NoError(t, newTestHandler(q).RegisterCallables(reg))
	sub, err := callable.ServeNATS(cli.Conn(), reg, "", "altar")
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, cli.Conn().Flush())

	res, err := NewRouter(callable.NewNATSClient(cli.Conn(), "")).SendNotification(context.Background(), map[string]any{"body": "Practice moved"})
	require.NoError(t, err)
	assert.Equal(t, ProcEnqueue, res.(map[string]any)["procedure"])
	require.Len(t, q.Items(), 1)
}
