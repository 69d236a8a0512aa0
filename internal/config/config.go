package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "github.com/kev129/deleton/common/config"
)

// 消息源类型
const (
	SourceKafka = "kafka"
	SourceMQTT  = "mqtt"
	SourceRedis = "redis"
)

// Config Deleton 各服务共享的配置
// 启动时从环境变量加载一次，通过构造函数显式传递
type Config struct {
	Database commoncfg.DatabaseConfig
	Redis    commoncfg.RedisConfig
	Kafka    commoncfg.KafkaConfig
	MQTT     commoncfg.MQTTConfig

	// 数据库 schema / 表
	Schema struct {
		Staging         string
		Production      string
		ProductionTable string
	}

	// 抽取服务配置
	Extract struct {
		SourceType    string        // kafka | mqtt | redis
		PollTimeout   time.Duration // 单次拉取等待时间
		SinkTimeout   time.Duration // 单次写入超时
		Stream        string        // Redis Streams 名称（SourceType=redis）
		ConsumerGroup string
		ConsumerName  string
		Breaker       struct {
			FailureThreshold int
			OpenTimeout      time.Duration
		}
	}

	// 实时骑行配置
	Live struct {
		KeyPrefix string
		TTL       time.Duration
		AlertTTL  time.Duration
		// MailTimeout 告警邮件发送超时
		MailTimeout time.Duration
	}

	// 转换服务配置
	Transform struct {
		Interval time.Duration
	}

	// 看板配置
	Dashboard struct {
		Window time.Duration // 只统计最近一段时间的读数
	}

	// 日报配置
	Report struct {
		Schedule   string
		Window     time.Duration
		Recipients []string
	}

	Mail struct {
		APIURL string
		APIKey string
		Sender string
	}

	HTTP struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "deleton"
	cfg.Database.SSLMode = "disable"
	cfg.Database.LoadFromEnv("DB")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "5"), 5)

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.GroupID = "deleton-extract"
	cfg.Kafka.Topic = "deloton"
	cfg.Kafka.UseTLS = true
	cfg.Kafka.StartOffset = "last"
	cfg.Kafka.LoadFromEnv("KAFKA")

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "deleton-extract"
	cfg.MQTT.Topic = "deloton/logs"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Schema.Staging = getEnv("STAGING_SCHEMA", "deleton_staging")
	cfg.Schema.Production = getEnv("PRODUCTION_SCHEMA", "deleton_production")
	cfg.Schema.ProductionTable = getEnv("PRODUCTION_TABLE", "ride_facts")

	cfg.Extract.SourceType = getEnv("SOURCE_TYPE", SourceKafka)
	cfg.Extract.PollTimeout = parseDuration(getEnv("POLL_TIMEOUT", "500ms"), 500*time.Millisecond)
	cfg.Extract.SinkTimeout = parseDuration(getEnv("SINK_TIMEOUT", "5s"), 5*time.Second)
	cfg.Extract.Stream = getEnv("STREAM_LOGS", "deloton:logs:stream")
	cfg.Extract.ConsumerGroup = getEnv("CONSUMER_GROUP", "deleton-extract-group")
	cfg.Extract.ConsumerName = getEnv("CONSUMER_NAME", "deleton-extract-1")
	cfg.Extract.Breaker.FailureThreshold = parseInt(getEnv("BREAKER_FAILURES", "5"), 5)
	cfg.Extract.Breaker.OpenTimeout = parseDuration(getEnv("BREAKER_OPEN_TIMEOUT", "30s"), 30*time.Second)

	cfg.Live.KeyPrefix = getEnv("LIVE_KEY_PREFIX", "deleton:ride:")
	cfg.Live.TTL = parseDuration(getEnv("LIVE_TTL", "1m"), time.Minute)
	cfg.Live.AlertTTL = parseDuration(getEnv("LIVE_ALERT_TTL", "1h"), time.Hour)
	cfg.Live.MailTimeout = parseDuration(getEnv("LIVE_MAIL_TIMEOUT", "30s"), 30*time.Second)

	cfg.Transform.Interval = parseDuration(getEnv("TRANSFORM_INTERVAL", "1m"), time.Minute)

	cfg.Dashboard.Window = parseDuration(getEnv("DASHBOARD_WINDOW", "11h"), 11*time.Hour)

	cfg.Report.Schedule = getEnv("REPORT_SCHEDULE", "0 0 9 * * *")
	cfg.Report.Window = parseDuration(getEnv("REPORT_WINDOW", "24h"), 24*time.Hour)
	cfg.Report.Recipients = splitList(getEnv("REPORT_RECIPIENTS", ""))

	cfg.Mail.APIURL = getEnv("MAIL_API_URL", "http://localhost:8025/api/v1/send")
	cfg.Mail.APIKey = getEnv("MAIL_API_KEY", "")
	cfg.Mail.Sender = getEnv("SENDER", "deloton@localhost")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":5001")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Extract.SourceType {
	case SourceKafka, SourceMQTT, SourceRedis:
	default:
		return fmt.Errorf("unsupported SOURCE_TYPE: %s", c.Extract.SourceType)
	}
	if c.Extract.PollTimeout <= 0 {
		return fmt.Errorf("POLL_TIMEOUT must be positive")
	}
	if c.Transform.Interval <= 0 {
		return fmt.Errorf("TRANSFORM_INTERVAL must be positive")
	}
	if c.Extract.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("BREAKER_FAILURES must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
