package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置（传感器数据源为 mqtt 时使用）
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// GatewayConfig 电话/短信网关配置（紧急调度适配器）
type GatewayConfig struct {
	BaseURL    string
	APIKey     string
	TimeoutSec int
	RetryCount int
}

// Config 守护引擎服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Gateway  GatewayConfig

	// 引擎特定配置
	Guardian struct {
		// 滚动窗口容量（每个信号域一个窗口）
		WindowCapacity int

		// 确认宽限期（秒），超时未确认且需要升级时自动调度
		GracePeriodSec int

		// 检测周期（秒）
		DetectIntervalSec int

		// 各信号域采样间隔（秒；motion 为高频域，单位同样是秒）
		VitalsIntervalSec     int
		BehavioralIntervalSec int
		LocationIntervalSec   int
		AudioIntervalSec      int
		MotionIntervalSec     int

		// 位置采样超时（秒），超时后本轮 location 置空，不阻塞检测
		LocationTimeoutSec int

		// 行为检测关键词（逗号分隔的环境变量）
		BehavioralKeywords []string

		// 传感器数据源："simulated" 或 "mqtt"
		SensorSource string

		// MQTT 传感器主题前缀，如 "vital-guardian/sensor/"
		SensorTopicPrefix string
	}

	// Redis 缓存配置
	Cache struct {
		StatusKeyPrefix string // 状态缓存键前缀，如 "vital-guardian:status:"
		AlertKeyPrefix  string // 活跃告警缓存键前缀，如 "vital-guardian:alert:"
		StatusTTL       int    // 状态缓存 TTL（秒）
		AlertTTL        int    // 告警缓存 TTL（秒）
	}

	HTTP struct {
		ListenAddr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "guardian")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "vital-guardian")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.Gateway.BaseURL = getEnv("GATEWAY_BASE_URL", "http://localhost:8090")
	cfg.Gateway.APIKey = getEnv("GATEWAY_API_KEY", "")
	cfg.Gateway.TimeoutSec = getEnvInt("GATEWAY_TIMEOUT", 10)
	cfg.Gateway.RetryCount = getEnvInt("GATEWAY_RETRY_COUNT", 2)

	// 引擎配置
	cfg.Guardian.WindowCapacity = getEnvInt("GUARDIAN_WINDOW_CAPACITY", 100)
	cfg.Guardian.GracePeriodSec = getEnvInt("GUARDIAN_GRACE_PERIOD", 30)
	cfg.Guardian.DetectIntervalSec = getEnvInt("GUARDIAN_DETECT_INTERVAL", 30)
	cfg.Guardian.VitalsIntervalSec = getEnvInt("GUARDIAN_VITALS_INTERVAL", 5)
	cfg.Guardian.BehavioralIntervalSec = getEnvInt("GUARDIAN_BEHAVIORAL_INTERVAL", 15)
	cfg.Guardian.LocationIntervalSec = getEnvInt("GUARDIAN_LOCATION_INTERVAL", 30)
	cfg.Guardian.AudioIntervalSec = getEnvInt("GUARDIAN_AUDIO_INTERVAL", 10)
	cfg.Guardian.MotionIntervalSec = getEnvInt("GUARDIAN_MOTION_INTERVAL", 1)
	cfg.Guardian.LocationTimeoutSec = getEnvInt("GUARDIAN_LOCATION_TIMEOUT", 2)
	cfg.Guardian.BehavioralKeywords = getEnvList("GUARDIAN_BEHAVIORAL_KEYWORDS",
		"want to die,hurt myself,end it all,no reason to live,suicide")
	cfg.Guardian.SensorSource = getEnv("GUARDIAN_SENSOR_SOURCE", "simulated")
	cfg.Guardian.SensorTopicPrefix = getEnv("GUARDIAN_SENSOR_TOPIC_PREFIX", "vital-guardian/sensor/")

	// 缓存配置
	cfg.Cache.StatusKeyPrefix = getEnv("CACHE_STATUS_PREFIX", "vital-guardian:status:")
	cfg.Cache.AlertKeyPrefix = getEnv("CACHE_ALERT_PREFIX", "vital-guardian:alert:")
	cfg.Cache.StatusTTL = getEnvInt("CACHE_STATUS_TTL", 60)
	cfg.Cache.AlertTTL = getEnvInt("CACHE_ALERT_TTL", 300)

	cfg.HTTP.ListenAddr = getEnv("HTTP_LISTEN_ADDR", ":8080")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			list = append(list, p)
		}
	}
	return list
}
