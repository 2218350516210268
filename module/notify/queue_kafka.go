package notify

import (
	"AltarProject/logger"
	"AltarProject/module/notify/model"
	"AltarProject/tools/errs"
	"context"
	"encoding/json"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

const DefaultKafkaTopic = "altar.notifications"

// KafkaQueue 同步写入 Kafka；Key = audience，同一受众的通知落在同一分区保证顺序
type KafkaQueue struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaQueue(p sarama.SyncProducer, topic string) *KafkaQueue {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &KafkaQueue{producer: p, topic: topic}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, n *model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(n)
	if err != nil {
		return errs.WrapMsg(err, "marshal notification", "id", n.ID)
	}
	msg := &sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(n.Audience),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("notification_id"), Value: []byte(n.ID)},
			{Key: []byte("source"), Value: []byte(n.Source)},
		},
	}
	partition, offset, err := q.producer.SendMessage(msg)
	if err != nil {
		return errs.WrapMsg(err, "kafka send", "topic", q.topic, "id", n.ID)
	}
	logger.L("notify.kafka").Debug("notification queued",
		zap.String("id", n.ID), zap.Int32("partition", partition), zap.Int64("offset", offset))
	return nil
}

func (q *KafkaQueue) Close() error {
	return q.producer.Close()
}
