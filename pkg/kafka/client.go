// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"docqa-go/internal/config"
	"docqa-go/pkg/log"
	"docqa-go/pkg/tasks"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// MaxAttempts 是单个导入任务的最大尝试次数，达到后提交 offset 放弃重试。
const MaxAttempts = 3

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestTask) error
}

// AttemptCounter 记录每个文件的失败次数。
type AttemptCounter interface {
	IncrAttempts(ctx context.Context, fileMD5 string) (int64, error)
	ClearAttempts(ctx context.Context, fileMD5 string) error
}

// Producer 发送导入任务。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers(cfg)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	log.Infof("Kafka 生产者初始化成功, topic: %s", cfg.Topic)
	return &Producer{writer: w}
}

// ProduceIngestTask 发送一个导入任务到 Kafka，以文件 MD5 作为消息 key。
func (p *Producer) ProduceIngestTask(ctx context.Context, task tasks.IngestTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.FileMD5),
		Value: taskBytes,
	})
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

func brokers(cfg config.KafkaConfig) []string {
	parts := strings.Split(cfg.Brokers, ",")
	out := make([]string, 0, len(parts))
	for _, b := range parts {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// StartConsumer 启动一个 Kafka 消费者来处理导入任务，ctx 结束时退出。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, attempts AttemptCounter) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s', group: %s", cfg.Topic, cfg.GroupID)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("从 Kafka 读取消息失败", err)
			}
			break
		}

		log.Infof("收到 Kafka 消息: offset %d", m.Offset)
		if handleMessage(ctx, m.Value, processor, attempts) {
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
}

// retryBackoff 是两次重试之间的基础等待时间，按已失败次数线性增长。
var retryBackoff = 2 * time.Second

// handleMessage 处理一条消息并返回是否应提交 offset。
// 失败的任务在当前消费者内重试，直到成功或累计失败达到 MaxAttempts；
// 只有 ctx 结束时才返回 false，此时消费循环随之退出，重启后从未提交的 offset 重新投递。
func handleMessage(ctx context.Context, value []byte, processor TaskProcessor, attempts AttemptCounter) bool {
	var task tasks.IngestTask
	if err := json.Unmarshal(value, &task); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return true
	}

	for local := int64(1); ; local++ {
		log.Infof("开始处理导入任务: MD5=%s, FileName=%s, 第 %d 次", task.FileMD5, task.FileName, local)
		err := processor.Process(ctx, task)
		if err == nil {
			log.Infof("导入任务处理成功: MD5=%s", task.FileMD5)
			_ = attempts.ClearAttempts(context.Background(), task.FileMD5)
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		log.Errorf("处理导入任务失败: MD5=%s, Error: %v", task.FileMD5, err)

		// 计数器跨重启累计；Redis 不可用时退回本地计数
		n, incErr := attempts.IncrAttempts(context.Background(), task.FileMD5)
		if incErr != nil {
			log.Warnf("记录导入失败次数失败, 使用本地计数: MD5=%s, Error: %v", task.FileMD5, incErr)
			n = local
		}
		if n >= MaxAttempts {
			log.Errorf("导入任务多次失败(>=%d)，提交 offset 终止重试: MD5=%s", MaxAttempts, task.FileMD5)
			return true
		}

		timer := time.NewTimer(retryBackoff * time.Duration(n))
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
