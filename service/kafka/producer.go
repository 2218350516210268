package kafka

import (
	"errors"

	"github.com/Shopify/sarama"
)

// NewSyncProducer 同步生产者；通知入队需要拿到 partition/offset 才算成功
func NewSyncProducer(c Config) (sarama.SyncProducer, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers missing")
	}
	cfg, err := BuildBaseConfig(c)
	if err != nil {
		return nil, err
	}
	return sarama.NewSyncProducer(c.Brokers, cfg)
}
