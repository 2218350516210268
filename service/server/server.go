package server

import (
	"AltarProject/global/config"
	"AltarProject/logger"
	mid "AltarProject/middleware"
	"AltarProject/service/callable"
	"AltarProject/tools/errs"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 10 * time.Second

// Server 同一个 Registry 同时通过 HTTP、gRPC、NATS（可选）对外提供
type Server struct {
	cfg *config.AppConfig
	reg *callable.Registry
	nc  *nats.Conn
	log *zap.Logger

	// 非空时替代 cfg 中的监听地址（测试用 :0）
	httpLis net.Listener
	grpcLis net.Listener
}

type Option func(*Server)

// WithNATS 额外以 queue group 订阅 callable 请求
func WithNATS(nc *nats.Conn) Option {
	return func(s *Server) { s.nc = nc }
}

func WithListeners(httpLis, grpcLis net.Listener) Option {
	return func(s *Server) {
		s.httpLis = httpLis
		s.grpcLis = grpcLis
	}
}

func New(cfg *config.AppConfig, reg *callable.Registry, opts ...Option) *Server {
	s := &Server{cfg: cfg, reg: reg, log: logger.L("server")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine gin 路由：/healthz、/callable/:name
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(mid.Recovery(), mid.AccessLog(), mid.Manager().Use())
	mid.GET(r, "/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "functions": s.reg.Names()})
	}, mid.RouteOpt{})
	callable.MountHTTP(r, s.reg)
	return r
}

// Run 阻塞直到 ctx 结束或任一监听失败。
// 所有监听与订阅先全部建好再起 goroutine；中途失败时关闭已打开的部分。
func (s *Server) Run(ctx context.Context) (err error) {
	var (
		httpLis, grpcLis net.Listener
		sub              *nats.Subscription
	)
	defer func() {
		if err == nil {
			return
		}
		for _, lis := range []net.Listener{httpLis, grpcLis} {
			if lis != nil {
				_ = lis.Close()
			}
		}
		if sub != nil {
			_ = sub.Unsubscribe()
		}
	}()

	if s.cfg.HTTP.Enabled {
		if httpLis, err = s.listen(s.httpLis, s.cfg.HTTP.Addr); err != nil {
			return errs.WrapMsg(err, "http listen", "addr", s.cfg.HTTP.Addr)
		}
	}
	if s.cfg.GRPC.Enabled {
		if grpcLis, err = s.listen(s.grpcLis, s.cfg.GRPC.Addr); err != nil {
			return errs.WrapMsg(err, "grpc listen", "addr", s.cfg.GRPC.Addr)
		}
	}
	if s.nc != nil {
		if sub, err = callable.ServeNATS(s.nc, s.reg, s.cfg.NATS.SubjectPrefix, s.cfg.NATS.QueueGroup); err != nil {
			return errs.WrapMsg(err, "nats subscribe")
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	if httpLis != nil {
		srv := &http.Server{Handler: s.Engine(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			s.log.Info("http listening", zap.String("addr", httpLis.Addr().String()))
			if err := srv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if grpcLis != nil {
		gs := callable.NewGRPCServer(s.reg)
		hs := health.NewServer()
		healthpb.RegisterHealthServer(gs, hs)
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		hs.SetServingStatus(callable.GRPCServiceName, healthpb.HealthCheckResponse_SERVING)

		g.Go(func() error {
			s.log.Info("grpc listening", zap.String("addr", grpcLis.Addr().String()))
			if err := gs.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			hs.Shutdown()
			gs.GracefulStop()
			return nil
		})
	}

	if sub != nil {
		s.log.Info("nats subscribed", zap.String("subject", sub.Subject), zap.String("queue", sub.Queue))
		g.Go(func() error {
			<-ctx.Done()
			return sub.Drain()
		})
	}

	return g.Wait()
}

func (s *Server) listen(lis net.Listener, addr string) (net.Listener, error) {
	if lis != nil {
		return lis, nil
	}
	return net.Listen("tcp", addr)
}
