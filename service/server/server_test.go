package server

import (
	"AltarProject/global/config"
	"AltarProject/module/counter"
	"AltarProject/module/notify"
	"AltarProject/service/callable"
	"AltarProject/service/rpc"
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	c := config.Default()
	c.Bolt.Path = filepath.Join(t.TempDir(), "altar.db")
	require.NoError(t, c.ValidateAndSetDefaults())
	return &c
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return lis
}

func startServer(t *testing.T, cfg *config.AppConfig) (httpURL, grpcAddr string, res *Resources) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())

	res = NewResources(cfg)
	reg, err := BuildRegistry(ctx, res)
	require.NoError(t, err)

	httpLis, grpcLis := listen(t), listen(t)
	srv := New(cfg, reg, WithListeners(httpLis, grpcLis))
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(15 * time.Second):
			t.Error("server did not stop")
		}
		assert.NoError(t, res.Close(context.Background()))
	})
	return "http://" + httpLis.Addr().String(), grpcLis.Addr().String(), res
}

func TestServeCounterOverHTTPAndGRPC(t *testing.T) {
	cfg := testConfig(t)
	cfg.Counter.Backend = config.BackendBolt
	httpURL, grpcAddr, _ := startServer(t, cfg)
	ctx := context.Background()

	hc := callable.NewHTTPClient(callable.HTTPConfig{BaseURL: httpURL, Timeout: 5 * time.Second})
	res, err := hc.Call(ctx, counter.ProcGetNextCounter, map[string]any{"counterName": "server_group_seq", "prefix": "SG"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "SG00001", "seq": float64(1)}, res)

	m := rpc.NewManager(rpc.Config{Target: grpcAddr, HealthService: callable.GRPCServiceName})
	m.Start()
	defer m.Stop()
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, m.WaitReady(wctx))

	gc := callable.NewGRPCClient(m)
	res, err = gc.Call(ctx, counter.ProcGetNextCounter, map[string]any{"counterName": "server_group_seq", "prefix": "SG"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "SG00002", "seq": float64(2)}, res)

	_, err = gc.Call(ctx, counter.ProcGetNextCounter, map[string]any{"counterName": ""})
	require.Error(t, err)
	assert.Equal(t, callable.StatusInvalidArgument, callable.FromError(err).Status)
}

func TestHealthz(t *testing.T) {
	httpURL, _, _ := startServer(t, testConfig(t))

	resp, err := resty.New().R().Get(httpURL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), counter.ProcGetNextCounter)
	assert.NotEmpty(t, resp.Header().Get(callable.HeaderRequestID))
}

func TestRouterFallsBackAgainstLegacyServer(t *testing.T) {
	legacy := testConfig(t)
	legacy.Notify.Serve = []string{notify.ProcManualSend}
	httpURL, _, _ := startServer(t, legacy)

	client := testConfig(t)
	client.Notify.Transport = config.TransportHTTP
	client.Notify.Target = httpURL
	require.NoError(t, client.ValidateAndSetDefaults())

	res := NewResources(client)
	defer res.Close(context.Background())
	r, err := Router(context.Background(), res, nil)
	require.NoError(t, err)

	out, err := r.SendNotification(context.Background(), map[string]any{"title": "Easter Vigil"})
	require.NoError(t, err)
	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, notify.ProcManualSend, m["procedure"])
	assert.Equal(t, true, m["queued"])
}

func TestLocalRouter(t *testing.T) {
	cfg := testConfig(t)
	res := NewResources(cfg)
	defer res.Close(context.Background())

	reg, err := BuildRegistry(context.Background(), res)
	require.NoError(t, err)
	r, err := Router(context.Background(), res, reg)
	require.NoError(t, err)

	out, err := r.SendNotification(context.Background(), map[string]any{"body": "Rehearsal at 6pm"})
	require.NoError(t, err)
	assert.Equal(t, notify.ProcEnqueue, out.(notify.SendResult).Procedure)
}

func TestResourcesUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Counter.Backend = "etcd"
	_, err := NewResources(cfg).CounterStore(context.Background())
	require.Error(t, err)
}

// 后面的监听失败时，已经打开的监听要关掉
func TestRunClosesListenersOnStartupFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.GRPC.Addr = "256.0.0.1:bad"
	httpLis := listen(t)
	addr := httpLis.Addr().String()

	srv := New(cfg, callable.NewRegistry(), WithListeners(httpLis, nil))
	err := srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grpc listen")

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err == nil {
		_ = conn.Close()
	}
	assert.Error(t, err, "http listener still open")
}

func TestRunClosesListenersWhenNATSIsClosed(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	ns := natsserver.RunServer(&opts)
	defer ns.Shutdown()
	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	nc.Close()

	cfg := testConfig(t)
	httpLis, grpcLis := listen(t), listen(t)
	addrs := []string{httpLis.Addr().String(), grpcLis.Addr().String()}

	err = New(cfg, callable.NewRegistry(), WithListeners(httpLis, grpcLis), WithNATS(nc)).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)

	for _, addr := range addrs {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			_ = conn.Close()
		}
		assert.Error(t, err, addr)
	}
}
