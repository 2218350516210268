package config

import (
	"AltarProject/data/database/bolt"
	"AltarProject/data/database/mgo/mongoutil"
	"AltarProject/data/database/pg"
	"AltarProject/logger"
	"AltarProject/service/kafka"
	"AltarProject/service/natsx"
	redis "AltarProject/service/storage/redis"
	"AltarProject/tools"
	"AltarProject/tools/errs"
	"AltarProject/tools/ids"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量覆盖：ALTAR_<SECTION>_<FIELD>，例如 ALTAR_COUNTER_BACKEND=redis、ALTAR_NOTIFY_TARGET=...
// 不属于任何 section 的作为顶层字段，例如 ALTAR_NODE_ID=7
const EnvPrefix = "ALTAR_"

var Global = Default()

func Default() AppConfig {
	return AppConfig{
		NodeID: 1,
		Log:    LogConfig{Level: "info"},
		HTTP:   HTTPConfig{Enabled: true, Addr: ":8080"},
		GRPC:   GRPCConfig{Enabled: true, Addr: ":50051"},
		Mongo: mongoutil.Config{
			Uri:         "mongodb://localhost:27017",
			Database:    "altar",
			MaxPoolSize: 20,
			MaxRetry:    3,
		},
		Redis:    redis.Config{Addr: "127.0.0.1:6379"},
		Postgres: pg.Config{MaxConns: 10},
		Bolt:     bolt.Config{Path: "data/altar.db", Timeout: time.Second},
		NATS: natsx.NatsxConfig{
			Servers:       []string{"nats://127.0.0.1:4222"},
			Name:          "altar",
			SubjectPrefix: "callable.",
			QueueGroup:    "altar",
		},
		Kafka: kafka.Config{Brokers: []string{"127.0.0.1:9092"}, ClientID: "altar"},
		Counter: CounterConfig{
			Backend:     BackendBolt,
			MaxRetry:    10,
			BaseBackoff: 2 * time.Millisecond,
			MaxBackoff:  50 * time.Millisecond,
		},
		Notify: NotifyConfig{
			Primary:   "admin_enqueueNotification",
			Legacy:    "admin_manualSendNotification",
			Transport: TransportLocal,
			Timeout:   10 * time.Second,
			Queue:     QueueMemory,
		},
	}
}

// Load 默认值 <- YAML 文件（path 为空则跳过）<- 环境变量
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.WrapMsg(err, "read config", "path", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, errs.WrapMsg(err, "parse config", "path", path)
		}
	}
	if err := ApplyEnv(&cfg, tools.EnvWithPrefix(EnvPrefix)); err != nil {
		return nil, err
	}
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv 把去掉前缀后的环境变量覆盖到 cfg 上；值按目标字段类型宽松解析
func ApplyEnv(cfg *AppConfig, env map[string]string) error {
	if len(env) == 0 {
		return nil
	}
	sections := sectionNames()
	tree := map[string]any{}
	for k, v := range env {
		head, rest, ok := strings.Cut(k, "_")
		if ok && sections[normalize(head)] {
			sub, _ := tree[head].(map[string]any)
			if sub == nil {
				sub = map[string]any{}
				tree[head] = sub
			}
			sub[rest] = v
			continue
		}
		tree[k] = v
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		MatchName:        func(mapKey, fieldName string) bool { return normalize(mapKey) == normalize(fieldName) },
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return errs.WrapMsg(err, "new env decoder")
	}
	if err := dec.Decode(tree); err != nil {
		return errs.WrapMsg(err, "apply env overrides")
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

// sectionNames AppConfig 中结构体类型字段的 tag 名
func sectionNames() map[string]bool {
	out := map[string]bool{}
	t := reflect.TypeOf(AppConfig{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type.Kind() != reflect.Struct {
			continue
		}
		out[normalize(f.Tag.Get("mapstructure"))] = true
	}
	return out
}

// ValidateAndSetDefaults 校验取值范围，补齐被显式清空的字段
func (c *AppConfig) ValidateAndSetDefaults() error {
	def := Default()
	if c.NodeID < 0 || c.NodeID > 1023 {
		return errs.ErrInvalidArgument.WrapMsg("nodeId out of range", "nodeId", c.NodeID)
	}

	switch c.Counter.Backend {
	case BackendMemory, BackendMongo, BackendRedis, BackendPostgres, BackendBolt:
	case "":
		c.Counter.Backend = def.Counter.Backend
	default:
		return errs.ErrInvalidArgument.WrapMsg("unknown counter backend", "backend", c.Counter.Backend)
	}
	if c.Counter.MaxRetry <= 0 {
		c.Counter.MaxRetry = def.Counter.MaxRetry
	}
	if c.Counter.Backend == BackendPostgres && c.Postgres.DSN == "" {
		return errs.ErrInvalidArgument.WrapMsg("postgres.dsn is required for counter backend postgres")
	}

	if c.Notify.Primary == "" {
		c.Notify.Primary = def.Notify.Primary
	}
	if c.Notify.Legacy == "" {
		c.Notify.Legacy = def.Notify.Legacy
	}
	if c.Notify.Primary == c.Notify.Legacy {
		return errs.ErrInvalidArgument.WrapMsg("notify.primary and notify.legacy must differ", "name", c.Notify.Primary)
	}
	switch c.Notify.Transport {
	case TransportLocal, TransportNATS:
	case TransportHTTP, TransportGRPC:
		if c.Notify.Target == "" {
			return errs.ErrInvalidArgument.WrapMsg("notify.target is required", "transport", c.Notify.Transport)
		}
	case "":
		c.Notify.Transport = def.Notify.Transport
	default:
		return errs.ErrInvalidArgument.WrapMsg("unknown notify transport", "transport", c.Notify.Transport)
	}
	switch c.Notify.Queue {
	case QueueMemory, QueueKafka, QueueNATS, QueueMongo:
	case "":
		c.Notify.Queue = def.Notify.Queue
	default:
		return errs.ErrInvalidArgument.WrapMsg("unknown notify queue", "queue", c.Notify.Queue)
	}
	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = def.Notify.Timeout
	}
	return nil
}

// ConfigAll 把配置应用到进程级单例：日志级别、雪花节点号
func ConfigAll(c *AppConfig) error {
	Global = *c
	if err := logger.SetLevel(c.Log.Level); err != nil {
		return errs.WrapMsg(err, "set log level", "level", c.Log.Level)
	}
	ConfigIds(c.NodeID)
	return nil
}

func ConfigIds(nodeID int64) {
	logger.Infof("配置id生成 node=%d", nodeID)
	ids.SetNodeID(nodeID)
}
