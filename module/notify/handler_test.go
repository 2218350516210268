package notify

import (
	"AltarProject/module/notify/model"
	"AltarProject/service/callable"
	"AltarProject/tools/errs"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(q Queue) *Handler {
	h := NewHandler(q)
	h.newID = func() string { return "1001" }
	h.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	return h
}

func TestHandlerEnqueue(t *testing.T) {
	q := NewMemoryQueue()
	h := newTestHandler(q)
	ctx := callable.WithRequestID(context.Background(), "req-9")

	res, err := h.Enqueue(ctx, map[string]any{
		"title":    " Sunday Mass ",
		"body":     "Servers arrive 30 minutes early",
		"channels": []any{"push", "email"},
	})
	require.NoError(t, err)
	assert.Equal(t, SendResult{ID: "1001", Queued: true, Procedure: ProcEnqueue}, res)

	items := q.Items()
	require.Len(t, items, 1)
	n := items[0]
	assert.Equal(t, "Sunday Mass", n.Title)
	assert.Equal(t, DefaultAudience, n.Audience)
	assert.Equal(t, []string{"push", "email"}, n.Channels)
	assert.Equal(t, model.SourceQueue, n.Source)
	assert.Equal(t, model.StatusPending, n.Status)
	assert.Equal(t, "req-9", n.RequestID)
}

func TestHandlerManualSend(t *testing.T) {
	q := NewMemoryQueue()
	res, err := newTestHandler(q).ManualSend(context.Background(), map[string]any{"body": "Practice moved", "audience": "group:SG00001"})
	require.NoError(t, err)
	assert.Equal(t, ProcManualSend, res.(SendResult).Procedure)
	assert.Equal(t, model.SourceManual, q.Items()[0].Source)
	assert.Equal(t, "group:SG00001", q.Items()[0].Audience)
}

func TestHandlerInvalid(t *testing.T) {
	q := NewMemoryQueue()
	h := newTestHandler(q)

	_, err := h.Enqueue(context.Background(), map[string]any{"title": "  "})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = h.Enqueue(context.Background(), map[string]any{"title": "x", "data": "not an object"})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
	assert.Empty(t, q.Items())
}

type failingQueue struct{ err error }

func (q failingQueue) Enqueue(context.Context, *model.Notification) error { return q.err }

func TestHandlerQueueFailure(t *testing.T) {
	cause := errors.New("broker down")
	_, err := newTestHandler(failingQueue{err: cause}).Enqueue(context.Background(), map[string]any{"title": "x"})
	assert.True(t, errors.Is(err, errs.ErrStorageTransaction))
	assert.True(t, errors.Is(err, cause))
}

func TestRegisterCallables(t *testing.T) {
	h := newTestHandler(NewMemoryQueue())

	reg := callable.NewRegistry()
	require.NoError(t, h.RegisterCallables(reg))
	assert.Equal(t, []string{ProcEnqueue, ProcManualSend}, reg.Names())

	legacyOnly := callable.NewRegistry()
	require.NoError(t, h.RegisterCallables(legacyOnly, ProcManualSend))
	assert.Equal(t, []string{ProcManualSend}, legacyOnly.Names())

	assert.True(t, errors.Is(h.RegisterCallables(callable.NewRegistry(), "admin_other"), errs.ErrInvalidArgument))
}

// 旧部署只有 admin_manualSendNotification：经过真实 HTTP transport 仍能送达
func TestRouterAgainstLegacyDeployment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	q := NewMemoryQueue()
	reg := callable.NewRegistry()
	require.NoError(t, newTestHandler(q).RegisterCallables(reg, ProcManualSend))

	engine := gin.New()
	callable.MountHTTP(engine, reg)
	srv := httptest.NewServer(engine)
	defer srv.Close()

	r := NewRouter(callable.NewHTTPClient(callable.HTTPConfig{BaseURL: srv.URL}))
	res, err := r.SendNotification(context.Background(), map[string]any{"title": "Vigil", "body": "Servers needed"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "1001", "queued": true, "procedure": ProcManualSend}, res)

	require.Len(t, q.Items(), 1)
	assert.Equal(t, model.SourceManual, q.Items()[0].Source)
}

func TestRouterAgainstCurrentDeployment(t *testing.T) {
	q := NewMemoryQueue()
	reg := callable.NewRegistry()
	require.NoError(t, newTestHandler(q).RegisterCallables(reg))

	res, err := NewRouter(reg).SendNotification(context.Background(), map[string]any{"title": "Vigil"})
	require.NoError(t, err)
	assert.Equal(t, ProcEnqueue, res.(SendResult).Procedure)
	assert.Equal(t, model.SourceQueue, q.Items()[0].Source)
}

func TestRouterPassesThroughInvalidArgument(t *testing.T) {
	reg := callable.NewRegistry()
	require.NoError(t, newTestHandler(NewMemoryQueue()).RegisterCallables(reg))

	_, err := NewRouter(reg).SendNotification(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Equal(t, callable.StatusInvalidArgument, callable.FromError(err).Status)
}

func TestKafkaQueue(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var n model.Notification
		if err := json.Unmarshal(val, &n); err != nil {
			return err
		}
		if n.ID != "1001" || n.Audience != "group:SG00001" {
			return errors.New("unexpected notification")
		}
		return nil
	})
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	q := NewKafkaQueue(sp, "")
	h := newTestHandler(q)

	_, err := h.Enqueue(context.Background(), map[string]any{"title": "x", "audience": "group:SG00001"})
	require.NoError(t, err)

	_, err = h.Enqueue(context.Background(), map[string]any{"title": "y"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))

	require.NoError(t, q.Close())
}
