package kafka

import (
	"strings"
	"time"

	"github.com/Shopify/sarama"
)

type Config struct {
	Brokers             []string `yaml:"brokers" mapstructure:"brokers"`
	Topic               string   `yaml:"topic" mapstructure:"topic"`
	Version             string   `yaml:"version" mapstructure:"version"` // 例如 "2.1.0"
	ProducerRetries     int      `yaml:"producerRetries" mapstructure:"producerRetries"`
	ProducerCompression string   `yaml:"producerCompression" mapstructure:"producerCompression"` // none/snappy/lz4/zstd
	ClientID            string   `yaml:"clientId" mapstructure:"clientId"`

	// 启动时确保 Topic 存在（不存在则创建，分区不足则扩）
	AutoCreateTopic   bool  `yaml:"autoCreateTopic" mapstructure:"autoCreateTopic"`
	Partitions        int32 `yaml:"partitions" mapstructure:"partitions"`
	ReplicationFactor int16 `yaml:"replicationFactor" mapstructure:"replicationFactor"`
}

// BuildBaseConfig 生成 sarama 配置；同步生产者要求 Return.Successes = true
func BuildBaseConfig(c Config) (*sarama.Config, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	if c.Version != "" {
		v, err := sarama.ParseKafkaVersion(c.Version)
		if err != nil {
			return nil, err
		}
		cfg.Version = v
	}
	if c.ClientID != "" {
		cfg.ClientID = c.ClientID
	}

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	if c.ProducerRetries <= 0 {
		c.ProducerRetries = 1
	}
	cfg.Producer.Retry.Max = c.ProducerRetries
	cfg.Producer.Partitioner = sarama.NewHashPartitioner // Key 控制分区
	switch strings.ToLower(c.ProducerCompression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg, nil
}
