package natsx

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsxConfig 客户端配置
type NatsxConfig struct {
	Servers         []string      `yaml:"servers" mapstructure:"servers"`
	Name            string        `yaml:"name" mapstructure:"name"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	ReconnectWait   time.Duration `yaml:"reconnectWait" mapstructure:"reconnectWait"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	PublishAsyncMax int           `yaml:"publishAsyncMax" mapstructure:"publishAsyncMax"`
	SubjectPrefix   string        `yaml:"subjectPrefix" mapstructure:"subjectPrefix"` // callable 请求主题前缀
	QueueGroup      string        `yaml:"queueGroup" mapstructure:"queueGroup"`
	JetStream       bool          `yaml:"jetStream" mapstructure:"jetStream"` // 通知队列走 JetStream
}

// NatsxClient 统一客户端
type NatsxClient struct {
	cfg NatsxConfig
	nc  *nats.Conn

	jsOnce sync.Once
	js     nats.JetStreamContext
	jsErr  error
}

// NewNatsxClient 连接 NATS
func NewNatsxClient(cfg NatsxConfig) (*NatsxClient, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.PublishAsyncMax == 0 {
		cfg.PublishAsyncMax = 4096
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NatsxClient{cfg: cfg, nc: nc}, nil
}

func (c *NatsxClient) Conn() *nats.Conn {
	return c.nc
}

func (c *NatsxClient) Config() NatsxConfig {
	return c.cfg
}

// Close 优雅关闭（Drain 会先处理完已收到的消息）
func (c *NatsxClient) Close() error {
	if c.nc == nil {
		return nil
	}
	return c.nc.Drain()
}

// ensureJS 初始化 JetStream 上下文
func (c *NatsxClient) ensureJS() (nats.JetStreamContext, error) {
	c.jsOnce.Do(func() {
		c.js, c.jsErr = c.nc.JetStream(nats.PublishAsyncMaxPending(c.cfg.PublishAsyncMax))
	})
	return c.js, c.jsErr
}
