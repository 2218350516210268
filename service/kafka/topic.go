package kafka

import (
	"AltarProject/logger"
	"AltarProject/tools/errs"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

const defaultPartitions = int32(3)

// TopicAdmin sarama.ClusterAdmin 中建 topic 用到的部分
type TopicAdmin interface {
	ListTopics() (map[string]sarama.TopicDetail, error)
	CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error
	CreatePartitions(topic string, count int32, assignment [][]int32, validateOnly bool) error
}

// TopicDetail 按配置生成 topic 参数；min.insync.replicas 跟随副本数
func TopicDetail(c Config) *sarama.TopicDetail {
	parts := c.Partitions
	if parts <= 0 {
		parts = defaultPartitions
	}
	rep := c.ReplicationFactor
	if rep <= 0 {
		rep = 1
	}
	minISR := "1"
	if rep > 1 {
		minISR = fmt.Sprintf("%d", rep-1)
	}
	retention := fmt.Sprintf("%d", (7 * 24 * time.Hour).Milliseconds())
	return &sarama.TopicDetail{
		NumPartitions:     parts,
		ReplicationFactor: rep,
		ConfigEntries: map[string]*string{
			"cleanup.policy":                 ptr("delete"),
			"retention.ms":                   &retention,
			"min.insync.replicas":            &minISR,
			"unclean.leader.election.enable": ptr("false"),
		},
	}
}

// EnsureTopic 幂等：不存在则创建；已存在且分区数少于期望时扩分区（Kafka 只能增不能减）
func EnsureTopic(admin TopicAdmin, topic string, c Config) error {
	if topic == "" {
		return errs.ErrInvalidArgument.WrapMsg("kafka topic missing")
	}
	existing, err := admin.ListTopics()
	if err != nil {
		return errs.WrapMsg(err, "list topics")
	}
	want := TopicDetail(c)
	log := logger.L("kafka")

	cur, ok := existing[topic]
	if !ok {
		if err := admin.CreateTopic(topic, want, false); err != nil && !isTopicExistsErr(err) {
			return errs.WrapMsg(err, "create topic", "topic", topic)
		}
		log.Info("topic created", zap.String("topic", topic),
			zap.Int32("partitions", want.NumPartitions), zap.Int16("rf", want.ReplicationFactor))
		return nil
	}
	if cur.NumPartitions > 0 && cur.NumPartitions < want.NumPartitions {
		if err := admin.CreatePartitions(topic, want.NumPartitions, nil, false); err != nil {
			return errs.WrapMsg(err, "expand partitions", "topic", topic, "from", cur.NumPartitions, "to", want.NumPartitions)
		}
		log.Info("topic partitions expanded", zap.String("topic", topic),
			zap.Int32("from", cur.NumPartitions), zap.Int32("to", want.NumPartitions))
	}
	return nil
}

// EnsureTopicWith 用 brokers 临时建一个 ClusterAdmin
func EnsureTopicWith(c Config, topic string) error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka brokers missing")
	}
	cfg, err := BuildBaseConfig(c)
	if err != nil {
		return err
	}
	cfg.Admin.Timeout = 15 * time.Second
	admin, err := sarama.NewClusterAdmin(c.Brokers, cfg)
	if err != nil {
		return errs.WrapMsg(err, "new cluster admin")
	}
	defer func() {
		if e := admin.Close(); e != nil {
			logger.L("kafka").Warn("close cluster admin", zap.Error(e))
		}
	}()
	return EnsureTopic(admin, topic, c)
}

func ptr[T any](v T) *T { return &v }

func isTopicExistsErr(err error) bool {
	if errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return true
	}
	var te *sarama.TopicError
	if errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
