package rpc

import (
	"AltarProject/logger"
	"AltarProject/tools/safe"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

type Config struct {
	Target              string            `yaml:"target" mapstructure:"target"`                           // gRPC service address
	DialTimeout         time.Duration     `yaml:"dialTimeout" mapstructure:"dialTimeout"`                 // connection timeout
	HealthCheckInterval time.Duration     `yaml:"healthCheckInterval" mapstructure:"healthCheckInterval"` // health check interval
	HealthService       string            `yaml:"healthService" mapstructure:"healthService"`
	DialOptions         []grpc.DialOption `yaml:"-" mapstructure:"-"` // 测试时注入 bufconn dialer
}

// Manager 维护一条到 callable 服务的长连接，健康检查失败后自动重连
type Manager struct {
	cfg       Config
	mu        sync.RWMutex
	conn      *grpc.ClientConn
	healthy   bool
	ready     chan struct{}
	readyOnce sync.Once
	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewManager(cfg Config) *Manager {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = 10 * time.Second
	}
	return &Manager{
		cfg:    cfg,
		ready:  make(chan struct{}),
		stopCh: make(chan struct{}),
	}
}

func (m *Manager) Start() {
	m.startOnce.Do(func() {
		safe.SafeGo(m.run)
	})
}

func (m *Manager) run() {
	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		if err := m.connect(); err != nil {
			logger.Warn("[rpc] connect failed", zap.String("target", m.cfg.Target), zap.Error(err))
			select {
			case <-m.stopCh:
				return
			case <-time.After(2 * time.Second):
			}
			continue
		}

		safe.SafeGo(m.healthLoop)
		return
	}
}

func (m *Manager) connect() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DialTimeout)
	defer cancel()

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	}, m.cfg.DialOptions...)
	conn, err := grpc.DialContext(ctx, m.cfg.Target, opts...)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.conn = conn
	m.healthy = true
	m.mu.Unlock()
	m.readyOnce.Do(func() { close(m.ready) })

	logger.Info("[rpc] connected", zap.String("target", m.cfg.Target))
	return nil
}

func (m *Manager) healthLoop() {
	ticker := time.NewTicker(m.cfg.HealthCheckInterval)
	defer ticker.Stop()

	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()
	if conn == nil {
		return
	}
	health := grpc_health_v1.NewHealthClient(conn)

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			resp, err := health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: m.cfg.HealthService})
			cancel()
			if err != nil || resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
				logger.Warn("[rpc] health check failed", zap.String("target", m.cfg.Target), zap.Error(err))
				m.reconnect()
				return
			}
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) reconnect() {
	m.mu.Lock()
	if m.conn != nil {
		_ = m.conn.Close()
	}
	m.conn = nil
	m.healthy = false
	m.mu.Unlock()

	safe.SafeGo(m.run)
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.mu.Lock()
		if m.conn != nil {
			_ = m.conn.Close()
		}
		m.conn = nil
		m.healthy = false
		m.mu.Unlock()
	})
}

// WaitReady 等待首次连接成功
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

// Conn 当前连接；重连期间返回 Unavailable
func (m *Manager) Conn() (*grpc.ClientConn, error) {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil {
		return nil, status.Error(codes.Unavailable, "rpc connection not ready: "+m.cfg.Target)
	}
	return conn, nil
}
