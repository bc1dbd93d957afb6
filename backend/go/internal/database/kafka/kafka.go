package kafka

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"

	"scale/backend/go/internal/config"

	"github.com/segmentio/kafka-go"
)

// Client 持有用于管理的 Kafka 连接。
// 生产和消费各自创建自己的 Writer/Reader，这个连接只负责
// 启动时的主题创建和健康检查。
type Client struct {
	Conn   *kafka.Conn
	Config *config.KafkaConfig
}

var (
	client  *Client
	once    sync.Once
	initErr error
)

// GetClient 使用单例模式初始化并返回一个 Kafka 管理客户端。
// 首次调用时，它会连接到 Kafka 并确保任务主题存在。
// 任务主题固定为单分区：调度队列按分区保序，且同一时刻只有一个
// 消费组成员在消费，满足"同一任务不会被并发处理"的前提。
func GetClient(cfg *config.KafkaConfig) (*Client, error) {
	once.Do(func() {
		if len(cfg.Brokers) == 0 {
			initErr = fmt.Errorf("未配置 Kafka brokers")
			return
		}
		if cfg.TasksTopic == "" {
			initErr = fmt.Errorf("未配置 Kafka 任务主题")
			return
		}

		// 1. 建立管理连接
		conn, err := kafka.Dial("tcp", cfg.Brokers[0])
		if err != nil {
			initErr = fmt.Errorf("kafka 初始化连接失败: %w", err)
			return
		}

		// 2. 获取已存在的主题
		partitions, err := conn.ReadPartitions()
		if err != nil {
			initErr = fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
			conn.Close()
			return
		}
		existingTopics := make(map[string]struct{})
		for _, p := range partitions {
			existingTopics[p.Topic] = struct{}{}
		}

		// 3. 任务主题不存在时创建它
		if _, exists := existingTopics[cfg.TasksTopic]; !exists {
			log.Printf("主题 '%s' 不存在，准备创建...", cfg.TasksTopic)
			err = conn.CreateTopics(kafka.TopicConfig{
				Topic:             cfg.TasksTopic,
				NumPartitions:     1,
				ReplicationFactor: 1,
			})
			if err != nil {
				initErr = fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
				conn.Close()
				return
			}
			log.Printf("成功创建 Kafka 主题 '%s'。", cfg.TasksTopic)
		}

		log.Println("✅ 成功初始化 Kafka 客户端!")
		client = &Client{Conn: conn, Config: cfg}
	})

	return client, initErr
}

// Close 安全地关闭单例的 Kafka 管理连接。
func (c *Client) Close() error {
	if c == nil || c.Conn == nil {
		return nil
	}
	if err := c.Conn.Close(); err != nil {
		return fmt.Errorf("关闭 Kafka 管理连接失败: %w", err)
	}
	return nil
}

// HealthCheck 检查 Kafka 连接的健康状况。
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.Conn == nil {
		return fmt.Errorf("kafka 客户端未初始化，无法进行健康检查")
	}
	_, err := c.Conn.Controller()
	return err
}

// GetControllerInfo 返回 Kafka 控制器的信息。
func (c *Client) GetControllerInfo() (string, error) {
	if c == nil || c.Conn == nil {
		return "", fmt.Errorf("kafka 客户端未初始化")
	}
	controller, err := c.Conn.Controller()
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)), nil
}
