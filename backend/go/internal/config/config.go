package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`    // Kafka broker 地址列表
	TasksTopic string   `yaml:"tasksTopic"` // 任务调度主题（单分区，保证顺序与独占消费）
	GroupID    string   `yaml:"groupID"`    // Worker 消费组 ID
}

// DatabasesConfig 汇总了所有后端存储的连接配置。
type DatabasesConfig struct {
	MySQL MySQLConfig `yaml:"mysql"`
	Redis RedisConfig `yaml:"redis"`
	Kafka KafkaConfig `yaml:"kafka"`
}

// AuthConfig 定义了认证相关的配置。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // JWT 签名密钥
}

// LoggerConfig 定义了日志的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (debug, info, warn, error)
}

// GatewayConfig 定义了 Gateway 服务的配置。
type GatewayConfig struct {
	ServerAddress  string `yaml:"serverAddress"`  // HTTP 监听地址 (例如: ":8080")
	UploadDir      string `yaml:"uploadDir"`      // 上传文件的保存目录
	AwaitTimeout   int    `yaml:"awaitTimeout"`   // 等待任务结果的超时 (秒)
	PollInterval   int    `yaml:"pollInterval"`   // 轮询任务状态的间隔 (秒)
	ResultCacheTTL int    `yaml:"resultCacheTTL"` // 终态结果在 Redis 中的缓存时长 (秒)
}

// WorkerConfig 定义了 Worker 服务的配置。
type WorkerConfig struct {
	ReconnectDelay int `yaml:"reconnectDelay"` // 队列拉取失败后的固定重试间隔 (秒)
}

// SummarizerConfig 定义了摘要适配器的配置。
type SummarizerConfig struct {
	Model   string `yaml:"model"`   // Gemini 模型名称
	TempDir string `yaml:"tempDir"` // 临时转录文件的目录
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是应用程序的顶层配置结构。
type AppConfig struct {
	Logger         LoggerConfig         `yaml:"logger"`
	Databases      DatabasesConfig      `yaml:"databases"`
	Auth           AuthConfig           `yaml:"auth"`
	Gateway        GatewayConfig        `yaml:"gateway"`
	Worker         WorkerConfig         `yaml:"worker"`
	Summarizer     SummarizerConfig     `yaml:"summarizer"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
func LoadConfig(path string) (*AppConfig, error) {
	// 读取 YAML 文件内容。
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	// 将 YAML 内容解析到 cfg 结构体中。
	err = yaml.Unmarshal(yamlFile, &cfg)
	if err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	return &cfg, nil
}
