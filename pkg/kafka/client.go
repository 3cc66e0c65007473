// Package kafka 提供了与 Kafka 消息队列交互的功能，用于异步触发语料重载。
package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"docqa-go/internal/config"
	"docqa-go/pkg/log"
	"docqa-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// TaskProcessor 处理一次语料重载任务，使 Kafka 消费者与具体的服务实现解耦。
type TaskProcessor interface {
	ProcessReload(ctx context.Context, task tasks.CorpusReloadTask) error
}

var producer *kafka.Writer

// ErrProducerNotInitialized 表示 Kafka 未启用或生产者尚未初始化。
var ErrProducerNotInitialized = errors.New("kafka producer not initialized")

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers(cfg)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka 生产者初始化成功")
}

// CloseProducer 关闭生产者并刷新缓冲的消息。
func CloseProducer() {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		log.Errorf("关闭 Kafka 生产者失败: %v", err)
	}
}

// ProduceReloadTask 发送一个语料重载任务到 Kafka。
func ProduceReloadTask(ctx context.Context, task tasks.CorpusReloadTask) error {
	if producer == nil {
		return ErrProducerNotInitialized
	}
	taskBytes, err := task.Encode()
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.RequestID),
		Value: taskBytes,
	})
}

// Queue 以接口形式暴露 ProduceReloadTask，供 handler 依赖注入。
type Queue struct{}

func (Queue) EnqueueReload(ctx context.Context, task tasks.CorpusReloadTask) error {
	return ProduceReloadTask(ctx, task)
}

// StartConsumer 启动一个 Kafka 消费者来处理重载任务，ctx 取消时退出。
// 重载是幂等的，无论成功与否都提交 offset，失败只记录日志。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  time.Second,
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者退出")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}

		log.Infof("收到 Kafka 消息: offset %d", m.Offset)

		task, err := tasks.DecodeReloadTask(m.Value)
		if err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		} else if err := processor.ProcessReload(ctx, task); err != nil {
			log.Errorf("处理重载任务失败: request_id=%s, error: %v", task.RequestID, err)
		} else {
			log.Infof("重载任务处理成功: request_id=%s", task.RequestID)
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}
