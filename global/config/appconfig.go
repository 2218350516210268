package config

import (
	"AltarProject/data/database/bolt"
	"AltarProject/data/database/mgo/mongoutil"
	"AltarProject/data/database/pg"
	"AltarProject/service/kafka"
	"AltarProject/service/natsx"
	redis "AltarProject/service/storage/redis"
	"time"
)

type AppConfig struct {
	NodeID int64 `yaml:"nodeId" mapstructure:"nodeId"` // 雪花 ID 节点号 0~1023

	Log  LogConfig  `yaml:"log" mapstructure:"log"`
	HTTP HTTPConfig `yaml:"http" mapstructure:"http"`
	GRPC GRPCConfig `yaml:"grpc" mapstructure:"grpc"`

	Mongo    mongoutil.Config  `yaml:"mongo" mapstructure:"mongo"`
	Redis    redis.Config      `yaml:"redis" mapstructure:"redis"`
	Postgres pg.Config         `yaml:"postgres" mapstructure:"postgres"`
	Bolt     bolt.Config       `yaml:"bolt" mapstructure:"bolt"`
	NATS     natsx.NatsxConfig `yaml:"nats" mapstructure:"nats"`
	Kafka    kafka.Config      `yaml:"kafka" mapstructure:"kafka"`

	Counter CounterConfig `yaml:"counter" mapstructure:"counter"`
	Notify  NotifyConfig  `yaml:"notify" mapstructure:"notify"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`
}

type GRPCConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`
}

const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

type CounterConfig struct {
	Backend     string        `yaml:"backend" mapstructure:"backend"`
	MaxRetry    int           `yaml:"maxRetry" mapstructure:"maxRetry"`
	BaseBackoff time.Duration `yaml:"baseBackoff" mapstructure:"baseBackoff"`
	MaxBackoff  time.Duration `yaml:"maxBackoff" mapstructure:"maxBackoff"`
	Collection  string        `yaml:"collection" mapstructure:"collection"` // mongo 集合 / pg 表 / bolt bucket / redis key 前缀
}

// Persistent memory 后端进程退出即丢失，重启后会重复发号
func (c CounterConfig) Persistent() bool {
	return c.Backend != BackendMemory
}

const (
	TransportLocal = "local"
	TransportHTTP  = "http"
	TransportGRPC  = "grpc"
	TransportNATS  = "nats"

	QueueMemory = "memory"
	QueueKafka  = "kafka"
	QueueNATS   = "nats"
	QueueMongo  = "mongo"
)

type NotifyConfig struct {
	Primary   string        `yaml:"primary" mapstructure:"primary"`
	Legacy    string        `yaml:"legacy" mapstructure:"legacy"`
	Transport string        `yaml:"transport" mapstructure:"transport"` // 路由调用远端函数的方式
	Target    string        `yaml:"target" mapstructure:"target"`       // http base url / grpc target
	Token     string        `yaml:"token" mapstructure:"token"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`

	Queue   string   `yaml:"queue" mapstructure:"queue"`     // 服务端通知入队方式
	Subject string   `yaml:"subject" mapstructure:"subject"` // nats subject / kafka topic
	Serve   []string `yaml:"serve" mapstructure:"serve"`     // serve 时注册的通知函数，为空则全部注册
}
